package plugin

import (
	"context"
	"time"

	"github.com/arko-chat/paybridge/internal/bridgeerr"
	"github.com/arko-chat/paybridge/internal/events"
	"github.com/arko-chat/paybridge/internal/sdk"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
)

type ownerKind string

const (
	ownerButton     ownerKind = "button"
	ownerController ownerKind = "controller"
	ownerOrder      ownerKind = "order"
)

// attempt is one payment handed to the vendor SDK.
type attempt struct {
	id      string
	owner   ownerKind
	ownerID string
	ref     sdk.ControllerRef
	order   sdk.OrderParams
}

// PaymentResult is the last terminal outcome recorded for an order token.
type PaymentResult struct {
	OrderToken  string
	AttemptID   string
	Outcome     sdk.Outcome
	CompletedAt time.Time
}

func (r PaymentResult) status() string {
	switch r.Outcome.Kind {
	case sdk.OutcomeSuccess:
		return "completed"
	case sdk.OutcomeUserAbandoned:
		return "abandoned"
	default:
		return "failed"
	}
}

func (r PaymentResult) Map() map[string]any {
	out := map[string]any{
		"orderToken":  r.OrderToken,
		"attemptId":   r.AttemptID,
		"status":      r.status(),
		"success":     r.Outcome.Kind == sdk.OutcomeSuccess,
		"completedAt": r.CompletedAt.UnixMilli(),
	}
	if r.Outcome.Kind != sdk.OutcomeSuccess {
		out["error"] = r.Outcome.Reason
	}
	return out
}

// launch hands a to the adapter. The caller has already marked the owner as
// busy; launch clears that mark itself if the vendor refuses to start.
// started runs after the adapter accepted the payment and before any
// outcome can be emitted.
func (p *Plugin) launch(ctx context.Context, a attempt, started func()) (err error) {
	done := sdk.NewCompletion(a.id)

	defer func() {
		if err != nil {
			p.release(a)
		}
	}()

	// The vendor call outlives the command that started it.
	payCtx := context.WithoutCancel(ctx)
	err = p.sdkCall("pay", func() error {
		return p.adapter.Pay(payCtx, a.ref, a.order, done)
	})
	if err != nil {
		return err
	}

	p.metrics.IncCounter("attempt", map[string]string{"command": string(a.owner), "code": "started"})
	p.logger.Info("payment started",
		"attempt_id", a.id, "owner", a.owner, "owner_id", a.ownerID, "order_token", a.order.OrderToken)

	if started != nil {
		started()
	}

	p.watchers.Add(1)
	go p.await(a, done)
	return nil
}

func (p *Plugin) await(a attempt, done *sdk.Completion) {
	defer p.watchers.Done()

	select {
	case <-done.Done():
	case <-p.closing:
		p.release(a)
		return
	}
	p.finish(a, done.Outcome())
}

func (p *Plugin) finish(a attempt, out sdk.Outcome) {
	live := p.release(a)

	res := PaymentResult{
		OrderToken:  a.order.OrderToken,
		AttemptID:   a.id,
		Outcome:     out,
		CompletedAt: p.now(),
	}
	p.results.Add(res.OrderToken, res)
	p.metrics.IncCounter("attempt", map[string]string{"command": string(a.owner), "code": string(out.Kind)})

	if !live {
		p.logger.Debug("payment resolved for disposed handle",
			"attempt_id", a.id, "owner", a.owner, "owner_id", a.ownerID, "outcome", out.Kind)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("event emission panic", "attempt_id", a.id, "panic", r)
		}
	}()

	p.logger.Info("payment resolved", "attempt_id", a.id, "outcome", out.Kind, "order_token", res.OrderToken)

	data := map[string]any{
		"orderToken": res.OrderToken,
		"attemptId":  a.id,
		"status":     res.status(),
	}
	switch a.owner {
	case ownerButton:
		data["buttonId"] = a.ownerID
		data["viewId"] = a.ownerID
	case ownerController:
		data["controllerId"] = a.ownerID
	}
	p.emit(events.PaymentStatusUpdate, data)

	terminal := make(map[string]any, len(data)+3)
	for k, v := range data {
		if k != "status" {
			terminal[k] = v
		}
	}
	switch out.Kind {
	case sdk.OutcomeSuccess:
		terminal["success"] = true
		p.emit(events.OrderCompleted, terminal)
	default:
		terminal["success"] = false
		terminal["error"] = out.Reason
		terminal["abandoned"] = out.Kind == sdk.OutcomeUserAbandoned
		p.emit(events.OrderFailed, terminal)
	}
}

// release clears the in-flight mark held by a and reports whether the owning
// handle still exists.
func (p *Plugin) release(a attempt) bool {
	unmark := func(current *string) {
		if *current == a.id {
			*current = ""
		}
	}

	switch a.owner {
	case ownerButton:
		_, err := p.buttons.Update(a.ownerID, func(b *Button) error {
			unmark(&b.AttemptID)
			return nil
		})
		return err == nil
	case ownerController:
		_, err := p.controllers.Update(a.ownerID, func(c *Controller) error {
			unmark(&c.AttemptID)
			return nil
		})
		return err == nil
	default:
		p.orders.Compute(a.ownerID, func(current string, loaded bool) (string, xsync.ComputeOp) {
			if loaded && current == a.id {
				return "", xsync.DeleteOp
			}
			return current, xsync.CancelOp
		})
		return true
	}
}

type payArgs struct {
	OrderToken                   string `arg:"orderToken" validate:"required"`
	SavePaymentMethodForMerchant bool   `arg:"savePaymentMethodForMerchant"`
	ShouldRequestShipping        *bool  `arg:"shouldRequestShipping"`
	ReturnURL                    string `arg:"returnURL" validate:"omitempty,uri"`
}

// pay starts a payment for an order token without a host-visible handle.
func (p *Plugin) pay(ctx context.Context, raw map[string]any) (map[string]any, error) {
	var args payArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	attemptID := uuid.NewString()
	if _, loaded := p.orders.LoadOrStore(args.OrderToken, attemptID); loaded {
		return nil, bridgeerr.AlreadyInProgress("order", args.OrderToken)
	}
	a := attempt{
		id:      attemptID,
		owner:   ownerOrder,
		ownerID: args.OrderToken,
		order: sdk.OrderParams{
			OrderToken:                   args.OrderToken,
			ReturnURL:                    p.orderReturnURL(args.ReturnURL),
			RequestShipping:              p.requestShipping(),
			SavePaymentMethodForMerchant: args.SavePaymentMethodForMerchant,
		},
	}
	if args.ShouldRequestShipping != nil {
		a.order.RequestShipping = *args.ShouldRequestShipping
	}

	err := p.sdkCall("create controller", func() error {
		var err error
		a.ref, err = p.adapter.CreateController(ctx, nil)
		return err
	})
	if err != nil {
		p.release(a)
		return nil, err
	}

	err = p.launch(ctx, a, func() {
		p.emit(events.PaymentStatusUpdate, map[string]any{
			"orderToken": args.OrderToken,
			"attemptId":  attemptID,
			"status":     "initiated",
		})
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"success":    true,
		"orderToken": args.OrderToken,
		"attemptId":  attemptID,
		"status":     "initiated",
	}, nil
}

type orderArgs struct {
	OrderToken string `arg:"orderToken" validate:"required"`
}

func (p *Plugin) getPaymentResult(_ context.Context, raw map[string]any) (map[string]any, error) {
	var args orderArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	res, ok := p.results.Get(args.OrderToken)
	if !ok {
		return nil, bridgeerr.NotFound("payment result", args.OrderToken)
	}
	return res.Map(), nil
}
