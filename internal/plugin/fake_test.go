package plugin

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/arko-chat/paybridge/internal/events"
	"github.com/arko-chat/paybridge/internal/sdk"
)

type payCall struct {
	ref   sdk.ControllerRef
	order sdk.OrderParams
	done  *sdk.Completion
}

// fakeAdapter records every call and parks completions until the test
// resolves them.
type fakeAdapter struct {
	mu sync.Mutex

	calls       int
	configured  []sdk.Config
	views       []sdk.ButtonParams
	pays        []payCall
	flows       map[sdk.ControllerRef]func(sdk.ControllerRef)
	controllers int

	releasedViews       []sdk.ViewHandle
	releasedControllers []sdk.ControllerRef

	probeErr      error
	configureErr  error
	viewErr       error
	controllerErr error
	payErr        error
	panicOn       string
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{flows: make(map[sdk.ControllerRef]func(sdk.ControllerRef))}
}

func (f *fakeAdapter) enter(op string) {
	f.calls++
	if f.panicOn == op {
		panic(op + " exploded")
	}
}

func (f *fakeAdapter) Probe(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probeErr
}

func (f *fakeAdapter) Configure(_ context.Context, cfg sdk.Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enter("configure")
	if f.configureErr != nil {
		return f.configureErr
	}
	f.configured = append(f.configured, cfg)
	return nil
}

func (f *fakeAdapter) CreateButtonView(_ context.Context, params sdk.ButtonParams) (sdk.ViewHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enter("view")
	if f.viewErr != nil {
		return "", f.viewErr
	}
	f.views = append(f.views, params)
	return sdk.ViewHandle("view-" + params.ViewID), nil
}

func (f *fakeAdapter) CreateController(_ context.Context, cb func(sdk.ControllerRef)) (sdk.ControllerRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enter("controller")
	if f.controllerErr != nil {
		return "", f.controllerErr
	}
	f.controllers++
	ref := sdk.ControllerRef(fmt.Sprintf("ref-%d", f.controllers))
	if cb != nil {
		f.flows[ref] = cb
	}
	return ref, nil
}

func (f *fakeAdapter) Pay(_ context.Context, ref sdk.ControllerRef, order sdk.OrderParams, done *sdk.Completion) error {
	cb, err := func() (func(sdk.ControllerRef), error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.enter("pay")
		if f.payErr != nil {
			return nil, f.payErr
		}
		f.pays = append(f.pays, payCall{ref: ref, order: order, done: done})
		return f.flows[ref], nil
	}()
	if err != nil {
		return err
	}
	if cb != nil {
		cb(ref)
	}
	return nil
}

func (f *fakeAdapter) ReleaseButtonView(_ context.Context, view sdk.ViewHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releasedViews = append(f.releasedViews, view)
	return nil
}

func (f *fakeAdapter) ReleaseController(_ context.Context, ref sdk.ControllerRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.flows, ref)
	f.releasedControllers = append(f.releasedControllers, ref)
	return nil
}

func (f *fakeAdapter) released() ([]sdk.ViewHandle, []sdk.ControllerRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.releasedViews), slices.Clone(f.releasedControllers)
}

func (f *fakeAdapter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeAdapter) lastPay(t *testing.T) payCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pays) == 0 {
		t.Fatal("adapter Pay was never called")
	}
	return f.pays[len(f.pays)-1]
}

func (f *fakeAdapter) payCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pays)
}

func (f *fakeAdapter) set(fn func(f *fakeAdapter)) {
	f.mu.Lock()
	fn(f)
	f.mu.Unlock()
}

// eventLog is an event subscriber tests can wait on.
type eventLog struct {
	ch chan events.Event
}

func newEventLog() *eventLog {
	return &eventLog{ch: make(chan events.Event, 256)}
}

func (l *eventLog) sink() events.Sink {
	return events.SinkFunc(func(ev events.Event) error {
		l.ch <- ev
		return nil
	})
}

// waitFor returns the next event named method, discarding others.
func (l *eventLog) waitFor(t *testing.T, method string) map[string]any {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-l.ch:
			if ev.Method == method {
				return ev.Data
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", method)
			return nil
		}
	}
}

// drain returns the methods of every event already delivered.
func (l *eventLog) drain() []string {
	var out []string
	for {
		select {
		case ev := <-l.ch:
			out = append(out, ev.Method)
		default:
			return out
		}
	}
}

func count(methods []string, method string) int {
	n := 0
	for _, m := range methods {
		if m == method {
			n++
		}
	}
	return n
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPlugin(t *testing.T, adapter sdk.Adapter) (*Plugin, *eventLog) {
	t.Helper()
	p, err := New(adapter, WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log := newEventLog()
	p.Events().Attach(log.sink())
	log.waitFor(t, events.EventChannelReady)
	t.Cleanup(p.Close)
	return p, log
}

func mustDispatch(t *testing.T, p *Plugin, name string, args map[string]any) map[string]any {
	t.Helper()
	res, err := p.Dispatch(context.Background(), name, args)
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", name, err)
	}
	return res
}

func initPlugin(t *testing.T, p *Plugin) {
	t.Helper()
	mustDispatch(t, p, "init", map[string]any{
		"merchantPublicKey": "validkey123",
		"environment":       "sandbox",
	})
}

func buttonArgsFor(token string) map[string]any {
	return map[string]any{
		"orderToken": token,
		"amount":     100,
		"currency":   "GBP",
		"email":      "a@b.com",
	}
}
