package image

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/quotebot/quotebot/internal/cache"
	"github.com/quotebot/quotebot/internal/config"
	"github.com/quotebot/quotebot/internal/consts"
)

var (
	ErrNoModel           = errors.New("no matching generation model")
	ErrGenerationFailed  = errors.New("image generation failed")
	ErrGenerationTimeout = errors.New("image generation timed out")
	ErrUnexpectedStatus  = errors.New("unexpected HTTP status")
)

// Source produces an illustration for a quote. Implementations never return
// an error: every failure collapses to None().
type Source interface {
	Fetch(ctx context.Context, promptSeed string) Reference
	Name() string
}

// Disabled is used when no image provider is configured.
type Disabled struct{}

func (Disabled) Fetch(context.Context, string) Reference { return None() }
func (Disabled) Name() string                            { return config.ImageProviderNone }

// NewSource builds the strategy selected by cfg.ImageProvider. models caches
// resolved generation model ids and may be nil.
func NewSource(ctx context.Context, cfg *config.Config, models *cache.Cache[string]) (Source, error) {
	switch cfg.ImageProvider {
	case config.ImageProviderUnsplash:
		return NewUnsplash(UnsplashOptions{
			BaseURL:   cfg.UnsplashAPIURL,
			AccessKey: cfg.UnsplashAccessKey,
			Keywords:  consts.ImageKeywords,
			Timeout:   cfg.ImageTimeout,
		}), nil
	case config.ImageProviderFusionBrain:
		return NewFusionBrain(FusionBrainOptions{
			BaseURL:      cfg.FusionBrainAPIURL,
			Key:          cfg.FusionBrainKey,
			Secret:       cfg.FusionBrainSecret,
			Model:        cfg.FusionBrainModel,
			Timeout:      cfg.ImageTimeout,
			PollInterval: cfg.PollInterval,
			MaxAttempts:  cfg.PollMaxAttempts,
		}, models), nil
	case config.ImageProviderGemini:
		api, err := NewGenaiAPI(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		return NewImagen(api, cfg.GeminiImageModel, models), nil
	case config.ImageProviderNone, "":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown image provider %q", cfg.ImageProvider)
	}
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}
