package plugin

import (
	"context"

	"github.com/arko-chat/paybridge/internal/bridgeerr"
	"github.com/arko-chat/paybridge/internal/events"
	"github.com/arko-chat/paybridge/internal/sdk"
	"github.com/google/uuid"
)

// Controller is a host-driven payment session: the host sets an order token
// and then asks the vendor to continue the confirmation flow.
type Controller struct {
	ID                           string
	OrderToken                   string
	SavePaymentMethodForMerchant bool
	Ref                          sdk.ControllerRef

	// AttemptID is set while a payment started from this controller is
	// unresolved.
	AttemptID string
}

func (c Controller) result() map[string]any {
	return map[string]any{
		"controllerId":                 c.ID,
		"orderToken":                   c.OrderToken,
		"savePaymentMethodForMerchant": c.SavePaymentMethodForMerchant,
		"isActive":                     true,
		"canContinue":                  c.OrderToken != "" && c.AttemptID == "",
	}
}

type setOrderTokenArgs struct {
	ControllerID string `arg:"controllerId" validate:"required"`
	OrderToken   string `arg:"orderToken" validate:"required"`
}

type setSavePaymentArgs struct {
	ControllerID string `arg:"controllerId" validate:"required"`
	Save         *bool  `arg:"savePaymentMethodForMerchant" validate:"required"`
}

func (p *Plugin) createController(ctx context.Context, _ map[string]any) (map[string]any, error) {
	_, ctrl, err := p.controllers.CreateWith(func(id string) (Controller, error) {
		var ref sdk.ControllerRef
		err := p.sdkCall("create controller", func() error {
			var err error
			ref, err = p.adapter.CreateController(ctx, p.confirmationFlowCreated(id))
			return err
		})
		if err != nil {
			return Controller{}, err
		}
		return Controller{ID: id, Ref: ref}, nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Debug("controller created", "controller_id", ctrl.ID)
	p.emit(events.ControllerStateChange, map[string]any{
		"controllerId": ctrl.ID,
		"state":        "created",
	})
	return ctrl.result(), nil
}

func (p *Plugin) confirmationFlowCreated(id string) func(sdk.ControllerRef) {
	return func(sdk.ControllerRef) {
		if _, err := p.controllers.Get(id); err != nil {
			p.logger.Debug("confirmation flow for disposed controller", "controller_id", id)
			return
		}
		p.emit(events.ControllerStateChange, map[string]any{
			"controllerId": id,
			"state":        "confirmation_flow_created",
		})
	}
}

func (p *Plugin) disposeController(ctx context.Context, raw map[string]any) (map[string]any, error) {
	var args idArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	ctrl, err := p.controllers.Take(args.ControllerID)
	if err != nil {
		return nil, err
	}
	p.releaseController(ctx, ctrl.Ref)

	p.emit(events.ControllerStateChange, map[string]any{
		"controllerId": ctrl.ID,
		"state":        "disposed",
	})
	return map[string]any{"controllerId": ctrl.ID, "disposed": true}, nil
}

func (p *Plugin) setOrderToken(_ context.Context, raw map[string]any) (map[string]any, error) {
	var args setOrderTokenArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	ctrl, err := p.controllers.Update(args.ControllerID, func(c *Controller) error {
		c.OrderToken = args.OrderToken
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ctrl.result(), nil
}

func (p *Plugin) setSavePaymentMethod(_ context.Context, raw map[string]any) (map[string]any, error) {
	var args setSavePaymentArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	ctrl, err := p.controllers.Update(args.ControllerID, func(c *Controller) error {
		c.SavePaymentMethodForMerchant = *args.Save
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ctrl.result(), nil
}

func (p *Plugin) continueConfirmationFlow(ctx context.Context, raw map[string]any) (map[string]any, error) {
	var args idArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	attemptID := uuid.NewString()
	ctrl, err := p.controllers.Update(args.ControllerID, func(c *Controller) error {
		if c.OrderToken == "" {
			return bridgeerr.InvalidArguments("controller %q has no order token, call setOrderToken first", c.ID)
		}
		if c.AttemptID != "" {
			return bridgeerr.AlreadyInProgress("controller", c.ID)
		}
		c.AttemptID = attemptID
		return nil
	})
	if err != nil {
		return nil, err
	}

	a := attempt{
		id:      attemptID,
		owner:   ownerController,
		ownerID: ctrl.ID,
		ref:     ctrl.Ref,
		order: sdk.OrderParams{
			OrderToken:                   ctrl.OrderToken,
			ReturnURL:                    p.orderReturnURL(""),
			RequestShipping:              p.requestShipping(),
			SavePaymentMethodForMerchant: ctrl.SavePaymentMethodForMerchant,
		},
	}
	err = p.launch(ctx, a, func() {
		p.emit(events.ControllerStateChange, map[string]any{
			"controllerId": ctrl.ID,
			"state":        "continuing",
			"orderToken":   ctrl.OrderToken,
			"attemptId":    attemptID,
		})
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"controllerId": ctrl.ID,
		"orderToken":   ctrl.OrderToken,
		"attemptId":    attemptID,
		"state":        "continuing",
	}, nil
}

func (p *Plugin) requestShipping() bool {
	cfg, _ := p.config()
	return cfg.RequestShipping
}
