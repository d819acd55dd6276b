package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/arko-chat/paybridge/internal/bridgeerr"
	"github.com/arko-chat/paybridge/internal/sdk"
	"github.com/shopspring/decimal"
)

type fakeNative struct {
	mu        sync.Mutex
	available bool
	payErr    error

	customer    string
	environment string
	buttons     map[string]string
	controllers map[string]bool
	pays        map[string]string
	released    []string
}

func newFakeNative() *fakeNative {
	return &fakeNative{
		available:   true,
		buttons:     make(map[string]string),
		controllers: make(map[string]bool),
		pays:        make(map[string]string),
	}
}

func (f *fakeNative) IsAvailable() bool { return f.available }

func (f *fakeNative) Configure(_ string, environment string, _ string, _ bool, customerJSON string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.environment = environment
	f.customer = customerJSON
	return nil
}

func (f *fakeNative) CreateButtonView(viewID string, paramsJSON string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buttons[viewID] = paramsJSON
	return "native-" + viewID, nil
}

func (f *fakeNative) CreateController(ref string, notify bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.controllers[ref] = notify
	return nil
}

func (f *fakeNative) Pay(_ string, attemptID string, orderJSON string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.payErr != nil {
		return f.payErr
	}
	f.pays[attemptID] = orderJSON
	return nil
}

func (f *fakeNative) ReleaseButtonView(handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, handle)
	return nil
}

func (f *fakeNative) ReleaseController(ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.controllers, ref)
	f.released = append(f.released, ref)
	return nil
}

func (f *fakeNative) SDKVersion() string {
	return `{"version":"2.8.0","platform":"android","buildNumber":"7"}`
}

func (f *fakeNative) PlatformVersion() string { return "Android 14" }

func newTestAdapter(native NativeSDK) *Adapter {
	return NewAdapter(native, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestProbe(t *testing.T) {
	native := newFakeNative()
	a := newTestAdapter(native)
	if err := a.Probe(context.Background()); err != nil {
		t.Fatalf("unexpected probe error %v", err)
	}

	native.available = false
	err := a.Probe(context.Background())
	if bridgeerr.CodeOf(err) != bridgeerr.CodeSDKUnavailable {
		t.Fatalf("expected SDK_UNAVAILABLE, got %v", err)
	}
}

func TestConfigureEncodesCustomer(t *testing.T) {
	native := newFakeNative()
	a := newTestAdapter(native)

	err := a.Configure(context.Background(), sdk.Config{
		MerchantPublicKey: "validkey123",
		Environment:       sdk.EnvProduction,
		Customer:          &sdk.Customer{Name: "Ada", Country: "GB"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if native.environment != "production" {
		t.Fatalf("got environment %q", native.environment)
	}

	var c sdk.Customer
	if err := json.Unmarshal([]byte(native.customer), &c); err != nil || c.Name != "Ada" {
		t.Fatalf("customer not encoded: %q (%v)", native.customer, err)
	}
}

func TestButtonParamsTravelAsJSON(t *testing.T) {
	native := newFakeNative()
	a := newTestAdapter(native)

	handle, err := a.CreateButtonView(context.Background(), sdk.ButtonParams{
		ViewID:     "3",
		OrderToken: "tok",
		Amount:     decimal.RequireFromString("9.99"),
		Currency:   "EUR",
	})
	if err != nil {
		t.Fatal(err)
	}
	if handle != "native-3" {
		t.Fatalf("got handle %q", handle)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(native.buttons["3"]), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["amount"] != "9.99" || decoded["orderToken"] != "tok" {
		t.Fatalf("unexpected params %v", decoded)
	}
}

func TestDeliverPaymentResult(t *testing.T) {
	native := newFakeNative()
	a := newTestAdapter(native)
	ctx := context.Background()

	ref, err := a.CreateController(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	done := sdk.NewCompletion("att-1")
	if err := a.Pay(ctx, ref, sdk.OrderParams{OrderToken: "tok"}, done); err != nil {
		t.Fatal(err)
	}
	if a.Pending() != 1 {
		t.Fatalf("expected one pending attempt, got %d", a.Pending())
	}

	if err := a.DeliverPaymentResult("att-1", "failure", ""); err != nil {
		t.Fatal(err)
	}
	if got := done.Outcome(); got.Kind != sdk.OutcomeFailure || got.Reason != "payment_failure" {
		t.Fatalf("unexpected outcome %+v", got)
	}

	err = a.DeliverPaymentResult("att-1", "success", "")
	if bridgeerr.CodeOf(err) != bridgeerr.CodeAlreadyResolved {
		t.Fatalf("expected ALREADY_RESOLVED, got %v", err)
	}

	err = a.DeliverPaymentResult("att-unknown", "success", "")
	if bridgeerr.CodeOf(err) != bridgeerr.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}

	err = a.DeliverPaymentResult("att-1", "maybe", "")
	if bridgeerr.CodeOf(err) != bridgeerr.CodeInvalidArguments {
		t.Fatalf("expected INVALID_ARGUMENTS, got %v", err)
	}
}

func TestFailedPayIsNotPending(t *testing.T) {
	native := newFakeNative()
	native.payErr = errors.New("no activity")
	a := newTestAdapter(native)

	if err := a.Pay(context.Background(), "n1", sdk.OrderParams{OrderToken: "tok"}, sdk.NewCompletion("att-1")); err == nil {
		t.Fatal("expected pay error")
	}
	if a.Pending() != 0 {
		t.Fatal("failed attempt left pending")
	}
}

func TestDeliverConfirmationFlow(t *testing.T) {
	native := newFakeNative()
	a := newTestAdapter(native)

	var got sdk.ControllerRef
	ref, err := a.CreateController(context.Background(), func(r sdk.ControllerRef) { got = r })
	if err != nil {
		t.Fatal(err)
	}
	if !native.controllers[string(ref)] {
		t.Fatal("native side was not asked to report the confirmation flow")
	}

	if err := a.DeliverConfirmationFlow(string(ref)); err != nil {
		t.Fatal(err)
	}
	if got != ref {
		t.Fatalf("callback got %q, want %q", got, ref)
	}

	if bridgeerr.CodeOf(a.DeliverConfirmationFlow("n999")) != bridgeerr.CodeNotFound {
		t.Fatal("expected NOT_FOUND for unknown ref")
	}
}

func TestReleaseControllerForgetsFlow(t *testing.T) {
	native := newFakeNative()
	a := newTestAdapter(native)
	ctx := context.Background()

	called := false
	ref, err := a.CreateController(ctx, func(sdk.ControllerRef) { called = true })
	if err != nil {
		t.Fatal(err)
	}
	if a.Flows() != 1 {
		t.Fatalf("expected one pending flow, got %d", a.Flows())
	}

	if err := a.ReleaseController(ctx, ref); err != nil {
		t.Fatal(err)
	}
	if a.Flows() != 0 {
		t.Fatalf("expected flow to be forgotten, got %d", a.Flows())
	}
	if _, ok := native.controllers[string(ref)]; ok {
		t.Fatal("native controller was not released")
	}
	if bridgeerr.CodeOf(a.DeliverConfirmationFlow(string(ref))) != bridgeerr.CodeNotFound {
		t.Fatal("expected NOT_FOUND for a released controller")
	}
	if called {
		t.Fatal("callback ran for a released controller")
	}
}

func TestReleaseButtonView(t *testing.T) {
	native := newFakeNative()
	a := newTestAdapter(native)

	if err := a.ReleaseButtonView(context.Background(), "native-1"); err != nil {
		t.Fatal(err)
	}
	if len(native.released) != 1 || native.released[0] != "native-1" {
		t.Fatalf("unexpected releases %v", native.released)
	}
}

func TestVersions(t *testing.T) {
	a := newTestAdapter(newFakeNative())
	if v := a.SDKVersion(); v.Platform != "android" || v.BuildNumber != "7" {
		t.Fatalf("unexpected version %+v", v)
	}
	if a.PlatformVersion() != "Android 14" {
		t.Fatal("platform version not forwarded")
	}
}

func TestRegistry(t *testing.T) {
	global = nil
	if _, err := Safe(); err == nil {
		t.Fatal("expected error before Register")
	}

	n := newFakeNative()
	Register(n)
	t.Cleanup(func() { global = nil })

	got, err := Safe()
	if err != nil || got != n {
		t.Fatalf("Safe returned %v, %v", got, err)
	}
	if Get() != n {
		t.Fatal("Get returned a different SDK")
	}
}
