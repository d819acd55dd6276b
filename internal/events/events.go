// Package events carries asynchronous notifications from the bridge core to
// the host application over a single logical stream.
package events

import (
	"log/slog"
	"maps"
	"sync"
	"time"
)

const (
	PaymentStatusUpdate   = "onPaymentStatusUpdate"
	OrderCompleted        = "onOrderCompleted"
	OrderFailed           = "onOrderFailed"
	ButtonClick           = "onButtonClick"
	ControllerStateChange = "onControllerStateChange"
	ConfigurationUpdate   = "onConfigurationUpdate"
	EventChannelReady     = "onEventChannelReady"
)

// Event is the {method, data} envelope pushed to the host. Data always holds
// a "timestamp" in milliseconds since the Unix epoch.
type Event struct {
	Method string         `json:"method"`
	Data   map[string]any `json:"data"`
}

// Sink receives events for one subscriber. Send must not block for long:
// producers include vendor callback goroutines.
type Sink interface {
	Send(ev Event) error
	Close()
}

type funcSink struct {
	fn func(ev Event) error
}

func (f *funcSink) Send(ev Event) error { return f.fn(ev) }
func (f *funcSink) Close()              {}

// SinkFunc adapts a function to a Sink with a no-op Close. Each call returns
// a distinct subscriber.
func SinkFunc(fn func(ev Event) error) Sink {
	return &funcSink{fn: fn}
}

// Emitter fans events out to at most one subscriber. Events emitted while no
// subscriber is attached are dropped, not buffered.
//
// Sinks are called without the emitter lock held, so a sink may emit or
// dispatch commands from inside Send. Whichever caller finds the queue idle
// delivers it until empty; nested and concurrent emits are queued behind it
// and keep their order.
type Emitter struct {
	mu       sync.Mutex
	sink     Sink
	queue    []pending
	draining bool

	now    func() time.Time
	logger *slog.Logger
}

type pending struct {
	sink Sink
	ev   Event
}

type EmitterOption func(*Emitter)

// WithClock sets the time source for event timestamps.
func WithClock(now func() time.Time) EmitterOption {
	return func(e *Emitter) {
		if now != nil {
			e.now = now
		}
	}
}

func NewEmitter(logger *slog.Logger, opts ...EmitterOption) *Emitter {
	e := &Emitter{now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Attach installs s as the subscriber, closing any previous one, and
// immediately sends it an onEventChannelReady event.
func (e *Emitter) Attach(s Sink) {
	e.mu.Lock()
	if e.sink != nil && e.sink != s {
		e.sink.Close()
		e.logger.Debug("event subscriber replaced")
	}
	e.sink = s
	e.enqueueLocked(EventChannelReady, map[string]any{"ready": true})
	e.drain()
}

// Detach removes s if it is still the active subscriber.
func (e *Emitter) Detach(s Sink) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sink == nil || e.sink != s {
		return false
	}
	e.sink = nil
	e.logger.Debug("event subscriber detached")
	return true
}

func (e *Emitter) HasSubscriber() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sink != nil
}

// Emit sends method with a copy of data, stamped with the current time.
func (e *Emitter) Emit(method string, data map[string]any) {
	e.mu.Lock()
	e.enqueueLocked(method, data)
	e.drain()
}

// Close detaches and closes the current subscriber.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sink != nil {
		e.sink.Close()
		e.sink = nil
	}
}

func (e *Emitter) enqueueLocked(method string, data map[string]any) {
	if e.sink == nil {
		e.logger.Debug("event dropped, no subscriber", "method", method)
		return
	}

	payload := make(map[string]any, len(data)+1)
	maps.Copy(payload, data)
	payload["timestamp"] = e.now().UnixMilli()

	e.queue = append(e.queue, pending{sink: e.sink, ev: Event{Method: method, Data: payload}})
}

// drain is called with e.mu held and returns with it released.
func (e *Emitter) drain() {
	if e.draining {
		e.mu.Unlock()
		return
	}
	e.draining = true

	for len(e.queue) > 0 {
		next := e.queue[0]
		e.queue[0] = pending{}
		e.queue = e.queue[1:]

		// Events queued for a subscriber that has since been replaced or
		// detached are not delivered to anyone.
		if next.sink != e.sink {
			continue
		}

		e.mu.Unlock()
		e.send(next)
		e.mu.Lock()
	}

	e.queue = nil
	e.draining = false
	e.mu.Unlock()
}

func (e *Emitter) send(p pending) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event sink panic", "method", p.ev.Method, "panic", r)
		}
	}()
	if err := p.sink.Send(p.ev); err != nil {
		e.logger.Warn("event send failed", "method", p.ev.Method, "err", err)
	}
}
