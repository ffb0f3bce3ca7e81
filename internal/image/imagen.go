package image

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/quotebot/quotebot/internal/cache"
	"github.com/quotebot/quotebot/internal/config"
	"github.com/quotebot/quotebot/internal/consts"
	"github.com/quotebot/quotebot/internal/logger"
	"google.golang.org/genai"
)

// ImagenAPI is the slice of the Gemini API the Imagen strategy needs.
type ImagenAPI interface {
	ListModels(ctx context.Context) ([]string, error)
	GenerateImage(ctx context.Context, model, prompt string) ([]byte, error)
}

// GenaiAPI implements ImagenAPI with the official Gemini Go SDK.
type GenaiAPI struct {
	client *genai.Client
}

func NewGenaiAPI(ctx context.Context, apiKey string) (*GenaiAPI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GenaiAPI{client: client}, nil
}

// ListModels follows every page of the listing.
func (g *GenaiAPI) ListModels(ctx context.Context) ([]string, error) {
	page, err := g.client.Models.List(ctx, &genai.ListModelsConfig{PageSize: 100})
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	var names []string
	for {
		for _, m := range page.Items {
			if m != nil {
				names = append(names, m.Name)
			}
		}
		if page.NextPageToken == "" {
			return names, nil
		}
		page, err = page.Next(ctx)
		if errors.Is(err, genai.ErrPageDone) {
			return names, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list models: %w", err)
		}
	}
}

func (g *GenaiAPI) GenerateImage(ctx context.Context, model, prompt string) ([]byte, error) {
	resp, err := g.client.Models.GenerateImages(ctx, model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    aspectRatio(consts.GenerationWidth, consts.GenerationHeight),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate image: %w", err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, ErrGenerationFailed
	}
	return resp.GeneratedImages[0].Image.ImageBytes, nil
}

// aspectRatio reduces pixel dimensions to the "W:H" form Imagen accepts.
func aspectRatio(width, height int) string {
	a, b := width, height
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return "1:1"
	}
	return fmt.Sprintf("%d:%d", width/a, height/a)
}

// Imagen generates images with a Gemini Imagen model. The SDK call is
// synchronous, so there is no polling step.
type Imagen struct {
	api    ImagenAPI
	model  string
	models *cache.Cache[string]
}

func NewImagen(api ImagenAPI, model string, models *cache.Cache[string]) *Imagen {
	return &Imagen{api: api, model: model, models: models}
}

func (im *Imagen) Name() string { return config.ImageProviderGemini }

func (im *Imagen) Fetch(ctx context.Context, promptSeed string) Reference {
	ref, err := im.Generate(ctx, promptSeed)
	if err != nil {
		logger.Warn("Image generation failed", map[string]interface{}{
			"provider": im.Name(),
			"error":    err.Error(),
		})
		return None()
	}
	return ref
}

func (im *Imagen) Generate(ctx context.Context, promptSeed string) (Reference, error) {
	model, err := im.resolveModel(ctx)
	if err != nil {
		return None(), err
	}

	data, err := im.api.GenerateImage(ctx, model, BuildPromptWithNegative(promptSeed))
	if err != nil {
		return None(), err
	}
	if len(data) == 0 {
		return None(), ErrGenerationFailed
	}
	return Inline(base64.StdEncoding.EncodeToString(data)), nil
}

func (im *Imagen) resolveModel(ctx context.Context) (string, error) {
	cacheKey := "imagen:" + im.model
	if im.models != nil {
		if name, ok := im.models.Get(cacheKey); ok {
			return name, nil
		}
	}

	names, err := im.api.ListModels(ctx)
	if err != nil {
		return "", err
	}
	for _, name := range names {
		if strings.TrimPrefix(name, "models/") == strings.TrimPrefix(im.model, "models/") {
			if im.models != nil {
				im.models.Set(cacheKey, name)
			}
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrNoModel, im.model)
}
