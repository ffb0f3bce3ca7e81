package image

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quotebot/quotebot/internal/config"
	"github.com/quotebot/quotebot/internal/logger"
)

type UnsplashOptions struct {
	BaseURL   string
	AccessKey string
	Keywords  []string
	Timeout   time.Duration
}

// Unsplash picks a random landscape photo for a random keyword.
type Unsplash struct {
	baseURL   string
	accessKey string
	keywords  []string
	client    *http.Client
	pick      func(n int) int
}

// Photo is the subset of the random-photo response we use.
type Photo struct {
	URL       string
	Alt       string
	Author    string
	AuthorURL string
}

type unsplashResponse struct {
	AltDescription string `json:"alt_description"`
	URLs           struct {
		Regular string `json:"regular"`
	} `json:"urls"`
	User struct {
		Name  string `json:"name"`
		Links struct {
			HTML string `json:"html"`
		} `json:"links"`
	} `json:"user"`
}

func NewUnsplash(opts UnsplashOptions) *Unsplash {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Unsplash{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		accessKey: opts.AccessKey,
		keywords:  opts.Keywords,
		client:    &http.Client{Timeout: opts.Timeout},
		pick:      rand.Intn,
	}
}

func (u *Unsplash) Name() string { return config.ImageProviderUnsplash }

// Fetch ignores the prompt seed; stock photos are chosen by keyword.
func (u *Unsplash) Fetch(ctx context.Context, _ string) Reference {
	photo, err := u.RandomPhoto(ctx)
	if err != nil {
		logger.Warn("Failed to get image from Unsplash", map[string]interface{}{
			"error": err.Error(),
		})
		return None()
	}

	logger.Debug("Unsplash photo selected", map[string]interface{}{
		"alt":    photo.Alt,
		"author": photo.Author,
	})
	return URL(photo.URL)
}

func (u *Unsplash) RandomPhoto(ctx context.Context) (*Photo, error) {
	if len(u.keywords) == 0 {
		return nil, fmt.Errorf("no keywords configured")
	}
	keyword := u.keywords[u.pick(len(u.keywords))]

	params := url.Values{}
	params.Set("query", keyword)
	params.Set("orientation", "landscape")
	params.Set("content_filter", "high")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+"/photos/random?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+u.accessKey)
	req.Header.Set("Accept-Version", "v1")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request photo: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var ur unsplashResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return nil, fmt.Errorf("failed to decode photo: %w", err)
	}
	if ur.URLs.Regular == "" {
		return nil, fmt.Errorf("photo response has no image url")
	}

	alt := ur.AltDescription
	if alt == "" {
		alt = "Image about " + keyword
	}

	return &Photo{
		URL:       ur.URLs.Regular,
		Alt:       alt,
		Author:    ur.User.Name,
		AuthorURL: ur.User.Links.HTML,
	}, nil
}
