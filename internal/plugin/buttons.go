package plugin

import (
	"context"
	"maps"
	"time"

	"github.com/arko-chat/paybridge/internal/bridgeerr"
	"github.com/arko-chat/paybridge/internal/events"
	"github.com/arko-chat/paybridge/internal/sdk"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Button is a vendor pay button the host placed on screen.
type Button struct {
	ViewID          string
	Params          sdk.ButtonParams
	MerchantName    string
	MerchantLogoURL string
	AdditionalData  map[string]any
	View            sdk.ViewHandle
	Controller      sdk.ControllerRef
	CreatedAt       time.Time

	// AttemptID is set while a payment started by a click is unresolved.
	AttemptID string
}

type variantModesArgs struct {
	LightTheme string `arg:"lightTheme" validate:"omitempty,oneof=LIGHT DARK"`
	DarkTheme  string `arg:"darkTheme" validate:"omitempty,oneof=LIGHT DARK"`
}

type buttonStyleArgs struct {
	Radius          string            `arg:"radius" validate:"omitempty,oneof=SMALL MEDIUM LARGE"`
	Size            string            `arg:"size" validate:"omitempty,oneof=SMALL MEDIUM LARGE"`
	BoxText         string            `arg:"boxText" validate:"omitempty,oneof=NONE GET_CASHBACK_VALUE GET_CASHBACK_PERCENTAGE"`
	BoxTextCurrency string            `arg:"boxTextCurrency" validate:"omitempty,iso4217"`
	VariantModes    *variantModesArgs `arg:"variantModes" validate:"omitempty"`
}

func (a *buttonStyleArgs) style() sdk.ButtonStyle {
	s := sdk.DefaultButtonStyle()
	if a == nil {
		return s
	}
	setIf := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setIf(&s.Radius, a.Radius)
	setIf(&s.Size, a.Size)
	setIf(&s.BoxText, a.BoxText)
	setIf(&s.BoxTextCurrency, a.BoxTextCurrency)
	if a.VariantModes != nil {
		setIf(&s.LightTheme, a.VariantModes.LightTheme)
		setIf(&s.DarkTheme, a.VariantModes.DarkTheme)
	}
	return s
}

type buttonArgs struct {
	OrderToken                   string           `arg:"orderToken" validate:"required"`
	Amount                       decimal.Decimal  `arg:"amount"`
	Currency                     string           `arg:"currency" validate:"required,iso4217"`
	Email                        string           `arg:"email" validate:"required,email"`
	ShouldRequestShipping        bool             `arg:"shouldRequestShipping"`
	SavePaymentMethodForMerchant bool             `arg:"savePaymentMethodForMerchant"`
	ReturnURL                    string           `arg:"returnURL" validate:"omitempty,uri"`
	MerchantName                 string           `arg:"merchantName"`
	MerchantLogoURL              string           `arg:"merchantLogoURL" validate:"omitempty,url"`
	AdditionalData               map[string]any   `arg:"additionalData"`
	ButtonParams                 *buttonStyleArgs `arg:"buttonParams" validate:"omitempty"`
}

func (p *Plugin) provideButton(ctx context.Context, raw map[string]any) (map[string]any, error) {
	var args buttonArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if !args.Amount.IsPositive() {
		return nil, bridgeerr.InvalidArguments("invalid amount (gt=0)").
			WithDetails(map[string]any{"fields": map[string]any{"amount": "gt=0"}})
	}

	_, btn, err := p.buttons.CreateWith(func(id string) (Button, error) {
		params := sdk.ButtonParams{
			ViewID:                       id,
			OrderToken:                   args.OrderToken,
			Amount:                       args.Amount,
			Currency:                     args.Currency,
			Email:                        args.Email,
			ShouldRequestShipping:        args.ShouldRequestShipping,
			SavePaymentMethodForMerchant: args.SavePaymentMethodForMerchant,
			ReturnURL:                    p.orderReturnURL(args.ReturnURL),
			Style:                        args.ButtonParams.style(),
		}

		var (
			view sdk.ViewHandle
			ref  sdk.ControllerRef
		)
		err := p.sdkCall("create button", func() error {
			var err error
			if view, err = p.adapter.CreateButtonView(ctx, params); err != nil {
				return err
			}
			ref, err = p.adapter.CreateController(ctx, nil)
			return err
		})
		if err != nil {
			// The view may exist even though the button as a whole failed.
			p.releaseView(ctx, view)
			return Button{}, err
		}

		return Button{
			ViewID:          id,
			Params:          params,
			MerchantName:    args.MerchantName,
			MerchantLogoURL: args.MerchantLogoURL,
			AdditionalData:  maps.Clone(args.AdditionalData),
			View:            view,
			Controller:      ref,
			CreatedAt:       p.now(),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Debug("button created", "view_id", btn.ViewID, "order_token", args.OrderToken)
	return btn.result(), nil
}

func (b Button) result() map[string]any {
	amount, _ := b.Params.Amount.Float64()
	out := map[string]any{
		"viewId":                       b.ViewID,
		"buttonCreated":                true,
		"orderToken":                   b.Params.OrderToken,
		"amount":                       amount,
		"currency":                     b.Params.Currency,
		"email":                        b.Params.Email,
		"shouldRequestShipping":        b.Params.ShouldRequestShipping,
		"savePaymentMethodForMerchant": b.Params.SavePaymentMethodForMerchant,
		"returnURL":                    b.Params.ReturnURL,
		"buttonParams": map[string]any{
			"radius":          b.Params.Style.Radius,
			"size":            b.Params.Style.Size,
			"boxText":         b.Params.Style.BoxText,
			"boxTextCurrency": b.Params.Style.BoxTextCurrency,
			"variantModes": map[string]any{
				"lightTheme": b.Params.Style.LightTheme,
				"darkTheme":  b.Params.Style.DarkTheme,
			},
		},
	}
	if b.MerchantName != "" {
		out["merchantName"] = b.MerchantName
	}
	if b.MerchantLogoURL != "" {
		out["merchantLogoURL"] = b.MerchantLogoURL
	}
	if len(b.AdditionalData) > 0 {
		out["additionalData"] = maps.Clone(b.AdditionalData)
	}
	return out
}

// clickButton is reported by the native view when the user taps the button.
// A click while the button's previous payment is unresolved is rejected and
// emits nothing.
func (p *Plugin) clickButton(ctx context.Context, raw map[string]any) (map[string]any, error) {
	var args viewArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	attemptID := uuid.NewString()
	btn, err := p.buttons.Update(args.ViewID, func(b *Button) error {
		if b.AttemptID != "" {
			return bridgeerr.AlreadyInProgress("button", b.ViewID)
		}
		b.AttemptID = attemptID
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.emit(events.ButtonClick, map[string]any{
		"buttonId":   btn.ViewID,
		"viewId":     btn.ViewID,
		"orderToken": btn.Params.OrderToken,
		"attemptId":  attemptID,
	})

	a := attempt{
		id:      attemptID,
		owner:   ownerButton,
		ownerID: btn.ViewID,
		ref:     btn.Controller,
		order: sdk.OrderParams{
			OrderToken:                   btn.Params.OrderToken,
			ReturnURL:                    btn.Params.ReturnURL,
			RequestShipping:              btn.Params.ShouldRequestShipping,
			SavePaymentMethodForMerchant: btn.Params.SavePaymentMethodForMerchant,
		},
	}
	if err := p.launch(ctx, a, nil); err != nil {
		return nil, err
	}

	return map[string]any{
		"viewId":     btn.ViewID,
		"orderToken": btn.Params.OrderToken,
		"attemptId":  attemptID,
		"status":     "started",
	}, nil
}

func (p *Plugin) cleanupButton(ctx context.Context, raw map[string]any) (map[string]any, error) {
	var args viewArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	btn, err := p.buttons.Take(args.ViewID)
	if err != nil {
		return nil, err
	}
	p.releaseButton(ctx, btn)
	p.logger.Debug("button removed", "view_id", args.ViewID)
	return map[string]any{"viewId": args.ViewID, "removed": true}, nil
}

func (p *Plugin) cleanupAllButtons(ctx context.Context, _ map[string]any) (map[string]any, error) {
	removed := p.buttons.TakeAll()
	for _, btn := range removed {
		p.releaseButton(ctx, btn)
	}
	p.logger.Debug("buttons removed", "count", len(removed))
	return map[string]any{"success": true, "count": len(removed)}, nil
}

func (p *Plugin) releaseButton(ctx context.Context, b Button) {
	p.releaseView(ctx, b.View)
	p.releaseController(ctx, b.Controller)
}
