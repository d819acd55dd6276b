package plugin

import (
	"context"
	"maps"
	"runtime"

	"github.com/google/uuid"
)

type bannerArgs struct {
	PromoParams map[string]any `arg:"promoParams" validate:"required"`
	ThemeID     string         `arg:"themeId"`
}

// providePromotionalBanner describes a promotional banner widget. Nothing is
// kept: the host renders the banner from the descriptor.
func (p *Plugin) providePromotionalBanner(_ context.Context, raw map[string]any) (map[string]any, error) {
	var args bannerArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	theme := args.ThemeID
	if theme == "" {
		theme = "default"
	}
	return map[string]any{
		"bannerCreated": true,
		"bannerId":      uuid.NewString(),
		"themeId":       theme,
		"promoParams":   maps.Clone(args.PromoParams),
		"platform":      runtime.GOOS,
		"message":       "promotional banner widget ready",
	}, nil
}
