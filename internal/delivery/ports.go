package delivery

import (
	"context"
	"time"

	"github.com/quotebot/quotebot/internal/image"
	"github.com/quotebot/quotebot/internal/media"
	"github.com/quotebot/quotebot/internal/quote"
)

// Transport is the outbound side of the messaging platform.
type Transport interface {
	// SendText sends plain text with no markup parsing.
	SendText(chatID int64, text string) (int, error)
	// SendNotice sends service copy that may contain Markdown.
	SendNotice(chatID int64, text string) (int, error)
	EditNotice(chatID int64, messageID int, text string) error
	DeleteMessage(chatID int64, messageID int) error
	SendPhoto(chatID int64, m *media.Media, caption string) error
}

// Recorder receives analytics events. Implementations handle their own
// failures; nothing here is allowed to affect a delivery.
type Recorder interface {
	RecordAction(chatID int64, action string, data map[string]interface{})
	RecordQuote(chatID int64, text string, origin string, hasImage bool)
	RecordError(chatID int64, step string, err error)
}

// Metrics receives delivery measurements.
type Metrics interface {
	RecordOutcome(outcome string)
	RecordQuoteOrigin(origin string)
	RecordImage(strategy, kind string)
	RecordSendRetry()
	ObserveDuration(outcome string, d time.Duration)
}

type QuoteSource interface {
	Fetch(ctx context.Context) quote.Quote
}

type Materializer interface {
	Materialize(ctx context.Context, ref image.Reference) *media.Media
}

type Gate interface {
	TryAdmit(chatID int64, now time.Time) bool
}

type nopRecorder struct{}

func (nopRecorder) RecordAction(int64, string, map[string]interface{}) {}
func (nopRecorder) RecordQuote(int64, string, string, bool)            {}
func (nopRecorder) RecordError(int64, string, error)                   {}

type nopMetrics struct{}

func (nopMetrics) RecordOutcome(string)                  {}
func (nopMetrics) RecordQuoteOrigin(string)              {}
func (nopMetrics) RecordImage(string, string)            {}
func (nopMetrics) RecordSendRetry()                      {}
func (nopMetrics) ObserveDuration(string, time.Duration) {}
