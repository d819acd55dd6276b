// Package simulator is an in-process stand-in for the vendor payments SDK.
// It backs the development harness and transport tests.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arko-chat/paybridge/internal/config"
	"github.com/arko-chat/paybridge/internal/sdk"
	"github.com/puzpuzpuz/xsync/v4"
)

var ErrNotConfigured = errors.New("simulator: SDK not configured")

// Simulator resolves every payment with a fixed outcome after a delay.
type Simulator struct {
	mu      sync.RWMutex
	outcome sdk.Outcome
	delay   time.Duration
	cfg     *sdk.Config

	seq   atomic.Uint64
	flows *xsync.Map[sdk.ControllerRef, func(sdk.ControllerRef)]

	logger *slog.Logger
}

func New(logger *slog.Logger) *Simulator {
	return &Simulator{
		outcome: sdk.Success(),
		flows:   xsync.NewMap[sdk.ControllerRef, func(sdk.ControllerRef)](),
		logger:  logger,
	}
}

// FromConfig builds a simulator from the harness configuration.
func FromConfig(cfg config.SimulatorConfig, logger *slog.Logger) (*Simulator, error) {
	s := New(logger)
	kind, err := sdk.ParseOutcomeKind(strings.ToLower(cfg.Outcome))
	if err != nil {
		return nil, err
	}
	s.SetOutcome(outcomeOf(kind, cfg.Reason))
	s.SetDelay(time.Duration(cfg.DelayMillis) * time.Millisecond)
	return s, nil
}

func outcomeOf(kind sdk.OutcomeKind, reason string) sdk.Outcome {
	switch kind {
	case sdk.OutcomeFailure:
		return sdk.Failure(reason)
	case sdk.OutcomeUserAbandoned:
		return sdk.UserAbandoned()
	default:
		return sdk.Success()
	}
}

func (s *Simulator) SetOutcome(o sdk.Outcome) {
	s.mu.Lock()
	s.outcome = o
	s.mu.Unlock()
}

func (s *Simulator) SetDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

// Configured returns the configuration of the last successful Configure.
func (s *Simulator) Configured() (sdk.Config, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cfg == nil {
		return sdk.Config{}, false
	}
	return *s.cfg, true
}

func (s *Simulator) Probe(context.Context) error { return nil }

func (s *Simulator) Configure(_ context.Context, cfg sdk.Config) error {
	key := strings.TrimSpace(cfg.MerchantPublicKey)
	if key == "" {
		return errors.New("simulator: merchant public key is empty")
	}
	if strings.ContainsAny(key, " \t\n") {
		return fmt.Errorf("simulator: merchant public key %q contains whitespace", key)
	}

	s.mu.Lock()
	s.cfg = &cfg
	s.mu.Unlock()

	s.logger.Info("simulator configured", "environment", cfg.Environment)
	return nil
}

func (s *Simulator) CreateButtonView(_ context.Context, params sdk.ButtonParams) (sdk.ViewHandle, error) {
	if _, ok := s.Configured(); !ok {
		return "", ErrNotConfigured
	}
	return sdk.ViewHandle(fmt.Sprintf("sim-view-%s", params.ViewID)), nil
}

func (s *Simulator) CreateController(_ context.Context, onFlow func(sdk.ControllerRef)) (sdk.ControllerRef, error) {
	if _, ok := s.Configured(); !ok {
		return "", ErrNotConfigured
	}
	ref := sdk.ControllerRef(fmt.Sprintf("sim-ctrl-%d", s.seq.Add(1)))
	if onFlow != nil {
		s.flows.Store(ref, onFlow)
	}
	return ref, nil
}

// Pay reports the confirmation flow for controllers that asked for it and
// resolves done after the configured delay. A zero delay resolves before
// Pay returns.
func (s *Simulator) Pay(_ context.Context, ref sdk.ControllerRef, order sdk.OrderParams, done *sdk.Completion) error {
	if _, ok := s.Configured(); !ok {
		return ErrNotConfigured
	}
	if order.OrderToken == "" {
		return errors.New("simulator: empty order token")
	}

	s.mu.RLock()
	outcome, delay := s.outcome, s.delay
	s.mu.RUnlock()

	if onFlow, ok := s.flows.Load(ref); ok {
		onFlow(ref)
	}

	resolve := func() {
		if err := done.Resolve(outcome); err != nil {
			s.logger.Warn("simulator resolved twice", "attempt_id", done.AttemptID(), "err", err)
		}
	}

	s.logger.Debug("simulated payment",
		"attempt_id", done.AttemptID(), "order_token", order.OrderToken, "outcome", outcome.Kind, "delay", delay)

	if delay <= 0 {
		resolve()
		return nil
	}
	time.AfterFunc(delay, resolve)
	return nil
}

func (s *Simulator) ReleaseButtonView(context.Context, sdk.ViewHandle) error { return nil }

func (s *Simulator) ReleaseController(_ context.Context, ref sdk.ControllerRef) error {
	s.flows.Delete(ref)
	return nil
}

func (s *Simulator) SDKVersion() sdk.VersionInfo {
	return sdk.VersionInfo{Version: "2.8.0", Platform: "simulator", BuildNumber: "1"}
}

func (s *Simulator) PlatformVersion() string {
	return runtime.GOOS + "/" + runtime.GOARCH + " " + runtime.Version()
}
