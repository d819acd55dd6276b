package plugin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arko-chat/paybridge/internal/bridgeerr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type handlerFunc func(ctx context.Context, args map[string]any) (map[string]any, error)

type command struct {
	// needsInit rejects the command with NOT_INITIALIZED before any argument
	// is looked at.
	needsInit bool
	fn        handlerFunc
}

func (p *Plugin) commandTable() map[string]command {
	button := command{needsInit: true, fn: p.provideButton}

	return map[string]command{
		"init":               {fn: p.initSDK},
		"getSdkVersion":      {fn: p.getSdkVersion},
		"getPlatformVersion": {fn: p.getPlatformVersion},

		"createController":                {needsInit: true, fn: p.createController},
		"disposeController":               {needsInit: true, fn: p.disposeController},
		"setOrderToken":                   {needsInit: true, fn: p.setOrderToken},
		"setSavePaymentMethodForMerchant": {needsInit: true, fn: p.setSavePaymentMethod},
		"continueConfirmationFlow":        {needsInit: true, fn: p.continueConfirmationFlow},

		"provideButton":          button,
		"createRevolutPayButton": button,
		"clickButton":            {needsInit: true, fn: p.clickButton},
		"cleanupButton":          {needsInit: true, fn: p.cleanupButton},
		"cleanupAllButtons":      {needsInit: true, fn: p.cleanupAllButtons},

		"pay":                            {needsInit: true, fn: p.pay},
		"getPaymentResult":               {needsInit: true, fn: p.getPaymentResult},
		"providePromotionalBannerWidget": {needsInit: true, fn: p.providePromotionalBanner},
	}
}

// Commands lists every command name Dispatch understands.
func (p *Plugin) Commands() []string {
	names := make([]string, 0, len(p.commands))
	for name := range p.commands {
		names = append(names, name)
	}
	return names
}

// Dispatch runs one host command synchronously. Results of payments arrive
// later as events. Every returned error is a *bridgeerr.Error.
func (p *Plugin) Dispatch(ctx context.Context, name string, args map[string]any) (result map[string]any, err error) {
	start := p.now()
	ctx, span := p.tracer.Start(ctx, "paybridge."+name,
		trace.WithAttributes(attribute.String("paybridge.command", name)))

	defer func() {
		p.observe(name, start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(bridgeerr.CodeOf(err)))
		}
		span.End()
	}()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("command panic", "command", name, "panic", r)
			result, err = nil, bridgeerr.Unexpected(fmt.Errorf("panic: %v", r))
		}
	}()

	cmd, ok := p.commands[name]
	if !ok {
		return nil, bridgeerr.NotImplemented(name)
	}
	if cmd.needsInit && !p.Initialized() {
		return nil, bridgeerr.NotInitialized()
	}
	if args == nil {
		args = map[string]any{}
	}

	result, err = cmd.fn(ctx, args)
	if err != nil {
		return nil, bridgeerr.From(err)
	}
	if result == nil {
		result = map[string]any{}
	}
	return result, nil
}

func (p *Plugin) observe(name string, start time.Time, err error) {
	elapsed := p.now().Sub(start)
	code := "OK"
	if err != nil {
		code = string(bridgeerr.CodeOf(err))
	}

	p.metrics.IncCounter("command", map[string]string{"command": name, "code": code})
	p.metrics.ObserveLatency("command", elapsed, map[string]string{"command": name})

	if err != nil {
		p.logger.Warn("command failed", "command", name, "code", code, "err", err, "duration", elapsed)
		return
	}
	p.logger.Debug("command completed", "command", name, "duration", elapsed)
}

func bridgeerrUnavailable() error {
	return bridgeerr.SDKUnavailable(errors.New("no payment SDK adapter registered"))
}

func sdkPanic(op string, r any) error {
	return bridgeerr.SDK(op+" failed", fmt.Errorf("adapter panic: %v", r))
}

// wrapSDK keeps bridge errors raised by the adapter and wraps anything else
// as SDK_ERROR.
func wrapSDK(op string, err error) error {
	if err == nil {
		return nil
	}
	var be *bridgeerr.Error
	if errors.As(err, &be) {
		return be
	}
	return bridgeerr.SDK(op+" failed", err)
}
