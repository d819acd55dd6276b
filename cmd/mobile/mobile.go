// Package mobile is the gomobile entry point. Native hosts register their
// vendor SDK wrapper, start the bridge and then either call Invoke directly
// or talk to the loopback server Start returns.
package mobile

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/arko-chat/paybridge/internal/bridge"
	"github.com/arko-chat/paybridge/internal/bridgeerr"
	"github.com/arko-chat/paybridge/internal/config"
	"github.com/arko-chat/paybridge/internal/events"
	"github.com/arko-chat/paybridge/internal/logger"
	"github.com/arko-chat/paybridge/internal/server"
)

// EventSink receives plugin events on the native side. dataJSON is the
// event's data object.
type EventSink interface {
	OnEvent(method string, dataJSON string)
}

var (
	mu       sync.Mutex
	stopFunc func()
	current  *server.Server
	adapter  *bridge.Adapter
	listener events.Sink
)

func RegisterSDK(n bridge.NativeSDK) {
	bridge.Register(n)
}

// Start brings up the bridge with configuration from dataDir and returns the
// loopback base URL. Token returns the bearer token for it.
func Start(dataDir string) (string, error) {
	mu.Lock()
	defer mu.Unlock()

	if stopFunc != nil {
		return "", fmt.Errorf("bridge already running")
	}

	native, err := bridge.Safe()
	if err != nil {
		return "", fmt.Errorf("call RegisterSDK before Start: %w", err)
	}

	cfg, err := config.Load(dataDir)
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}

	slogger := logger.New(cfg.LogLevel, cfg.LogFormat)

	a := bridge.NewAdapter(native, slogger)
	srv, err := server.New(cfg, a, slogger)
	if err != nil {
		return "", err
	}

	addr, err := srv.Listen(cfg.ListenAddr)
	if err != nil {
		srv.Close()
		return "", err
	}
	slogger.Info("mobile bridge starting", "addr", addr)

	go func() {
		if err := srv.Serve(); err != nil {
			slogger.Error("server error", "err", err)
		}
	}()

	current, adapter = srv, a
	stopFunc = func() {
		srv.Close()
		current, adapter, listener = nil, nil, nil
	}

	return addr, nil
}

// Token returns the bearer token for the running loopback server.
func Token() string {
	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		return ""
	}
	return current.Token
}

func running() (*server.Server, *bridge.Adapter, error) {
	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		return nil, nil, fmt.Errorf("bridge not started")
	}
	return current, adapter, nil
}

// Invoke runs a command in process. argsJSON may be empty. On failure the
// error message is "CODE: message".
func Invoke(command string, argsJSON string) (string, error) {
	srv, _, err := running()
	if err != nil {
		return "", err
	}

	args := map[string]any{}
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return "", bridgeerr.InvalidArguments("arguments must be a JSON object: %v", err)
		}
	}

	result, err := srv.Plugin.Dispatch(context.Background(), command, args)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(result)
	if err != nil {
		return "", bridgeerr.Unexpected(err)
	}
	return string(out), nil
}

// InvokeResult is Invoke for hosts that prefer a single JSON envelope:
// {"result": {...}} or {"error": {"code", "message", "details"}}.
func InvokeResult(command string, argsJSON string) string {
	var envelope map[string]any

	raw, err := Invoke(command, argsJSON)
	if err != nil {
		envelope = map[string]any{"error": bridgeerr.From(err).Map()}
	} else {
		envelope = map[string]any{"result": json.RawMessage(raw)}
	}

	out, err := json.Marshal(envelope)
	if err != nil {
		return `{"error":{"code":"UNEXPECTED","message":"encode response"}}`
	}
	return string(out)
}

// Listen makes s the event subscriber, replacing any WebSocket stream.
func Listen(s EventSink) error {
	srv, _, err := running()
	if err != nil {
		return err
	}

	sink := events.SinkFunc(func(ev events.Event) error {
		data, err := json.Marshal(ev.Data)
		if err != nil {
			return err
		}
		s.OnEvent(ev.Method, string(data))
		return nil
	})

	mu.Lock()
	listener = sink
	mu.Unlock()

	srv.Plugin.Events().Attach(sink)
	return nil
}

// Unlisten detaches the sink installed by Listen.
func Unlisten() {
	mu.Lock()
	srv, sink := current, listener
	listener = nil
	mu.Unlock()

	if srv != nil && sink != nil {
		srv.Plugin.Events().Detach(sink)
	}
}

// DeliverPaymentResult reports the vendor outcome of attemptID. kind is
// success, failure or user_abandoned.
func DeliverPaymentResult(attemptID string, kind string, reason string) error {
	_, a, err := running()
	if err != nil {
		return err
	}
	return a.DeliverPaymentResult(attemptID, kind, reason)
}

// DeliverConfirmationFlow reports that the vendor created the confirmation
// flow for the controller ref passed to NativeSDK.CreateController.
func DeliverConfirmationFlow(ref string) error {
	_, a, err := running()
	if err != nil {
		return err
	}
	return a.DeliverConfirmationFlow(ref)
}

func Stop() {
	mu.Lock()
	defer mu.Unlock()

	if stopFunc != nil {
		stopFunc()
		stopFunc = nil
	}
}
