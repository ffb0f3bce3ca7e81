package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quotebot/quotebot/internal/consts"
	"github.com/quotebot/quotebot/internal/logger"
)

// Origin tells where a quote came from.
type Origin string

const (
	OriginRemote Origin = "remote"
	OriginLocal  Origin = "local"
)

// Quote is ready to render. DisplayText carries the attribution, RawContent
// does not and is used as a prompt seed for image generation.
type Quote struct {
	DisplayText string
	RawContent  string
	Author      string
	Origin      Origin
}

// Options configures the remote quote provider.
type Options struct {
	Endpoint string
	Lang     string
	Timeout  time.Duration
}

// Source fetches a quote from the remote provider and falls back to the
// embedded pool on any failure.
type Source struct {
	endpoint string
	lang     string
	client   *http.Client
	pick     func(n int) int
}

func NewSource(opts Options) *Source {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &Source{
		endpoint: opts.Endpoint,
		lang:     opts.Lang,
		client:   &http.Client{Timeout: opts.Timeout},
		pick:     rand.Intn,
	}
}

// Fetch always returns a quote with non-empty DisplayText.
func (s *Source) Fetch(ctx context.Context) Quote {
	if s.endpoint == "" {
		return s.local()
	}

	q, err := s.fetchRemote(ctx)
	if err != nil {
		logger.Warn("Remote quote unavailable, using local pool", map[string]interface{}{
			"error": err.Error(),
		})
		return s.local()
	}
	return q
}

type remoteQuote struct {
	QuoteText   string `json:"quoteText"`
	QuoteAuthor string `json:"quoteAuthor"`
}

func (s *Source) fetchRemote(ctx context.Context) (Quote, error) {
	params := url.Values{}
	params.Set("method", "getQuote")
	params.Set("format", "json")
	params.Set("lang", s.lang)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return Quote{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("failed to request quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Quote{}, fmt.Errorf("quote API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return Quote{}, fmt.Errorf("failed to read response: %w", err)
	}

	var rq remoteQuote
	if err := json.Unmarshal(body, &rq); err != nil {
		return Quote{}, fmt.Errorf("failed to unmarshal quote: %w", err)
	}

	text := strings.TrimSpace(rq.QuoteText)
	if text == "" {
		return Quote{}, fmt.Errorf("quote API returned empty text")
	}

	author := strings.TrimSpace(rq.QuoteAuthor)
	if author == "" {
		author = consts.UnknownAuthor
	}

	return Quote{
		DisplayText: Format(text, author),
		RawContent:  text,
		Author:      author,
		Origin:      OriginRemote,
	}, nil
}

func (s *Source) local() Quote {
	lq := consts.LocalQuotes[s.pick(len(consts.LocalQuotes))]
	return Quote{
		DisplayText: lq.Text,
		RawContent:  lq.Content,
		Origin:      OriginLocal,
	}
}

// Local returns a random quote from the embedded pool.
func Local() Quote {
	return (&Source{pick: rand.Intn}).local()
}

// Format renders quote text with its attribution.
func Format(text, author string) string {
	return fmt.Sprintf("%s — © %s", text, author)
}
