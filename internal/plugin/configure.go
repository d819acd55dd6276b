package plugin

import (
	"context"
	"runtime"
	"strings"

	"github.com/arko-chat/paybridge/internal/bridgeerr"
	"github.com/arko-chat/paybridge/internal/events"
	"github.com/arko-chat/paybridge/internal/sdk"
)

type dateOfBirthArgs struct {
	Day   int `arg:"day" validate:"min=1,max=31"`
	Month int `arg:"month" validate:"min=1,max=12"`
	Year  int `arg:"year" validate:"min=1900,max=2100"`
}

type customerArgs struct {
	Name        string           `arg:"name"`
	Email       string           `arg:"email" validate:"omitempty,email"`
	Phone       string           `arg:"phone" validate:"omitempty,e164"`
	Country     string           `arg:"country" validate:"omitempty,iso3166_1_alpha2"`
	DateOfBirth *dateOfBirthArgs `arg:"dateOfBirth" validate:"omitempty"`
}

type initArgs struct {
	MerchantPublicKey string        `arg:"merchantPublicKey" validate:"required"`
	Environment       string        `arg:"environment"`
	ReturnURI         string        `arg:"returnUri" validate:"omitempty,uri"`
	RequestShipping   bool          `arg:"requestShipping"`
	Customer          *customerArgs `arg:"customer" validate:"omitempty"`
}

func (a initArgs) customer() *sdk.Customer {
	if a.Customer == nil {
		return nil
	}
	c := &sdk.Customer{
		Name:    a.Customer.Name,
		Email:   a.Customer.Email,
		Phone:   a.Customer.Phone,
		Country: strings.ToUpper(a.Customer.Country),
	}
	if dob := a.Customer.DateOfBirth; dob != nil {
		c.DateOfBirth = &sdk.DateOfBirth{Day: dob.Day, Month: dob.Month, Year: dob.Year}
	}
	return c
}

func (p *Plugin) initSDK(ctx context.Context, raw map[string]any) (map[string]any, error) {
	var args initArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	envName := args.Environment
	if envName == "" {
		envName = p.defaultEnv
	}
	env, err := sdk.ParseEnvironment(envName)
	if err != nil {
		return nil, bridgeerr.InvalidArguments("%v", err)
	}

	if p.adapter == nil {
		return nil, bridgeerrUnavailable()
	}
	if prober, ok := p.adapter.(sdk.Prober); ok {
		err := p.sdkCall("probe", func() error { return prober.Probe(ctx) })
		if err != nil {
			if bridgeerr.CodeOf(err) == bridgeerr.CodeSDKUnavailable {
				return nil, err
			}
			return nil, bridgeerr.SDKUnavailable(err)
		}
	}

	cfg := sdk.Config{
		MerchantPublicKey: args.MerchantPublicKey,
		Environment:       env,
		ReturnURI:         args.ReturnURI,
		RequestShipping:   args.RequestShipping,
		Customer:          args.customer(),
	}

	if len(cfg.MerchantPublicKey) < 10 || strings.Contains(strings.ToLower(cfg.MerchantPublicKey), "test") {
		p.logger.Warn("merchant public key looks like a placeholder", "environment", env)
	}

	// Concurrent identical inits share one Configure call.
	key := string(env) + "\x00" + cfg.MerchantPublicKey
	_, err, shared := p.initGroup.Do(key, func() (any, error) {
		if err := p.sdkCall("configure", func() error { return p.adapter.Configure(ctx, cfg) }); err != nil {
			return nil, err
		}
		p.cfgMu.Lock()
		p.cfg = &cfg
		p.cfgMu.Unlock()
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("payment SDK configured", "environment", env, "shared", shared)
	p.emit(events.ConfigurationUpdate, map[string]any{
		"initialized": true,
		"environment": string(env),
	})

	return map[string]any{
		"success":     true,
		"initialized": true,
		"environment": string(env),
	}, nil
}

func (p *Plugin) getSdkVersion(_ context.Context, _ map[string]any) (map[string]any, error) {
	info := defaultSDKVersion
	if d, ok := p.adapter.(sdk.Describer); ok {
		if v := d.SDKVersion(); v.Version != "" {
			info = v
		}
	}
	return map[string]any{
		"version":       info.Version,
		"platform":      info.Platform,
		"buildNumber":   info.BuildNumber,
		"bridgeVersion": BridgeVersion,
	}, nil
}

func (p *Plugin) getPlatformVersion(_ context.Context, _ map[string]any) (map[string]any, error) {
	v := p.platformVersion
	if v == "" {
		if d, ok := p.adapter.(sdk.Describer); ok {
			v = d.PlatformVersion()
		}
	}
	if v == "" {
		v = runtime.GOOS + " " + runtime.GOARCH
	}
	return map[string]any{"platformVersion": v}, nil
}
