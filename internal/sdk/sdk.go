// Package sdk is the seam between the bridge core and the vendor payments SDK.
//
// The core never talks to the vendor library directly. Native hosts (through
// internal/bridge) or the in-process simulator implement Adapter, and the core
// only translates host arguments into these shapes and completions into events.
package sdk

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Environment string

const (
	EnvSandbox    Environment = "sandbox"
	EnvProduction Environment = "production"
)

// ParseEnvironment accepts sandbox/production case-insensitively. "main" is
// the vendor's own name for production and is accepted as an alias. An empty
// string yields the sandbox.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sandbox":
		return EnvSandbox, nil
	case "production", "main":
		return EnvProduction, nil
	default:
		return "", fmt.Errorf("unknown environment %q", s)
	}
}

type DateOfBirth struct {
	Day   int `json:"day"`
	Month int `json:"month"`
	Year  int `json:"year"`
}

type Customer struct {
	Name        string       `json:"name,omitempty"`
	Email       string       `json:"email,omitempty"`
	Phone       string       `json:"phone,omitempty"`
	Country     string       `json:"country,omitempty"`
	DateOfBirth *DateOfBirth `json:"dateOfBirth,omitempty"`
}

// Config is what a successful init hands to the vendor SDK.
type Config struct {
	MerchantPublicKey string      `json:"merchantPublicKey"`
	Environment       Environment `json:"environment"`
	ReturnURI         string      `json:"returnUri,omitempty"`
	RequestShipping   bool        `json:"requestShipping"`
	Customer          *Customer   `json:"customer,omitempty"`
}

// ButtonStyle mirrors the vendor button appearance options.
type ButtonStyle struct {
	Radius          string `json:"radius"`
	Size            string `json:"size"`
	BoxText         string `json:"boxText"`
	BoxTextCurrency string `json:"boxTextCurrency,omitempty"`
	LightTheme      string `json:"lightTheme"`
	DarkTheme       string `json:"darkTheme"`
}

// DefaultButtonStyle matches the vendor defaults the native plugins used.
func DefaultButtonStyle() ButtonStyle {
	return ButtonStyle{
		Radius:     "MEDIUM",
		Size:       "LARGE",
		BoxText:    "NONE",
		LightTheme: "DARK",
		DarkTheme:  "LIGHT",
	}
}

type ButtonParams struct {
	ViewID                       string          `json:"viewId"`
	OrderToken                   string          `json:"orderToken"`
	Amount                       decimal.Decimal `json:"amount"`
	Currency                     string          `json:"currency"`
	Email                        string          `json:"email"`
	ShouldRequestShipping        bool            `json:"shouldRequestShipping"`
	SavePaymentMethodForMerchant bool            `json:"savePaymentMethodForMerchant"`
	ReturnURL                    string          `json:"returnURL"`
	Style                        ButtonStyle     `json:"style"`
}

type OrderParams struct {
	OrderToken                   string `json:"orderToken"`
	ReturnURL                    string `json:"returnURL,omitempty"`
	RequestShipping              bool   `json:"requestShipping"`
	SavePaymentMethodForMerchant bool   `json:"savePaymentMethodForMerchant"`
}

// ViewHandle identifies a native view created by the vendor SDK.
type ViewHandle string

// ControllerRef identifies a vendor payment controller.
type ControllerRef string

// Adapter is the narrow capability set the core consumes.
type Adapter interface {
	Configure(ctx context.Context, cfg Config) error
	CreateButtonView(ctx context.Context, params ButtonParams) (ViewHandle, error)
	CreateController(ctx context.Context, onConfirmationFlowCreated func(ControllerRef)) (ControllerRef, error)

	// Pay starts a payment and returns immediately. The adapter must resolve
	// done exactly once when the vendor reports a terminal outcome. A non-nil
	// error means the attempt never started and done will not be resolved.
	Pay(ctx context.Context, ref ControllerRef, order OrderParams, done *Completion) error
}

// Prober is implemented by adapters that can tell whether the vendor SDK is
// actually linked and usable on this device.
type Prober interface {
	Probe(ctx context.Context) error
}

// Releaser is implemented by adapters that hold native resources per view
// or controller. The core releases a view when its button is cleaned up or
// when building the button failed after the view was created, and a
// controller when its handle is disposed.
type Releaser interface {
	ReleaseButtonView(ctx context.Context, view ViewHandle) error
	ReleaseController(ctx context.Context, ref ControllerRef) error
}

type VersionInfo struct {
	Version     string `json:"version"`
	Platform    string `json:"platform"`
	BuildNumber string `json:"buildNumber"`
}

// Describer is implemented by adapters that know the vendor SDK version and
// the host OS version.
type Describer interface {
	SDKVersion() VersionInfo
	PlatformVersion() string
}
