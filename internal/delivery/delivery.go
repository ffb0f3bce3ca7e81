package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quotebot/quotebot/internal/consts"
	"github.com/quotebot/quotebot/internal/image"
	"github.com/quotebot/quotebot/internal/logger"
	"github.com/quotebot/quotebot/internal/media"
	"github.com/quotebot/quotebot/internal/quote"
	"github.com/sirupsen/logrus"
)

// Outcome is the terminal state of one delivery request.
type Outcome int

const (
	// Denied means the chat already received its quote today.
	Denied Outcome = iota
	// Sent means the quote went out with an image.
	Sent
	// Degraded means the quote went out as text only.
	Degraded
	// Failed means nothing could be delivered and the user got an apology.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Denied:
		return "denied"
	case Sent:
		return "sent"
	case Degraded:
		return "degraded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Deps are the collaborators of an Orchestrator. Recorder and Metrics are
// optional.
type Deps struct {
	Gate         Gate
	Quotes       QuoteSource
	Images       image.Source
	Materializer Materializer
	Transport    Transport
	Recorder     Recorder
	Metrics      Metrics
}

// Options tunes retry timing and the clock.
type Options struct {
	// RetryDelay is the pause before the single send retry.
	RetryDelay time.Duration
	Now        func() time.Time
}

// Orchestrator runs the quote delivery flow for one chat at a time.
// Deliveries for different chats may run concurrently.
type Orchestrator struct {
	gate         Gate
	quotes       QuoteSource
	images       image.Source
	materializer Materializer
	transport    Transport
	recorder     Recorder
	metrics      Metrics

	retryDelay time.Duration
	now        func() time.Time
}

// New builds an Orchestrator. Missing Images, Recorder and Metrics fall back
// to no-op implementations.
func New(deps Deps, opts Options) *Orchestrator {
	o := &Orchestrator{
		gate:         deps.Gate,
		quotes:       deps.Quotes,
		images:       deps.Images,
		materializer: deps.Materializer,
		transport:    deps.Transport,
		recorder:     deps.Recorder,
		metrics:      deps.Metrics,
		retryDelay:   opts.RetryDelay,
		now:          opts.Now,
	}
	if o.images == nil {
		o.images = image.Disabled{}
	}
	if o.recorder == nil {
		o.recorder = nopRecorder{}
	}
	if o.metrics == nil {
		o.metrics = nopMetrics{}
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// run holds the per-request resources that must be released on every path.
type run struct {
	o        *Orchestrator
	chatID   int64
	log      *logrus.Entry
	statusID int
	media    *media.Media
	step     string

	delivered bool
	hasImage  bool
}

// Deliver sends today's quote to chatID. It always answers an admitted request
// with content or an apology, and it always removes the status message and any
// temporary file before returning.
func (o *Orchestrator) Deliver(ctx context.Context, chatID int64) (outcome Outcome) {
	started := o.now()

	if !o.gate.TryAdmit(chatID, started) {
		o.deny(chatID)
		return Denied
	}

	r := &run{
		o:      o,
		chatID: chatID,
		log:    logger.WithChat(chatID, "admitted").WithField("request_id", uuid.NewString()),
		step:   "admitted",
	}
	o.recorder.RecordAction(chatID, consts.ActionQuoteRequested, nil)
	r.log.Info("Quote delivery started")

	defer func() {
		elapsed := o.now().Sub(started)
		o.metrics.RecordOutcome(outcome.String())
		o.metrics.ObserveDuration(outcome.String(), elapsed)
		r.log.WithFields(logrus.Fields{
			"outcome":  outcome.String(),
			"duration": elapsed.String(),
		}).Info("Quote delivery finished")
	}()
	defer r.cleanup()
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if r.delivered {
			// The user already has the quote, so no apology.
			r.log.WithField("panic", p).Error("Quote delivery panicked after sending")
			outcome = r.deliveredOutcome()
			return
		}
		outcome = Failed
		r.fail(fmt.Errorf("panic: %v", p))
	}()

	return r.execute(ctx)
}

func (o *Orchestrator) deny(chatID int64) {
	o.recorder.RecordAction(chatID, consts.ActionQuoteDenied, nil)
	o.metrics.RecordOutcome(Denied.String())

	if _, err := o.transport.SendNotice(chatID, consts.QuoteDeniedMessage); err != nil {
		logger.WithChat(chatID, "deny").WithError(err).Warn("Failed to send denial notice")
	}
}

func (r *run) execute(ctx context.Context) Outcome {
	o := r.o

	r.setStep("status")
	if id, err := o.transport.SendNotice(r.chatID, consts.QuoteSearchingMessage); err != nil {
		r.log.WithError(err).Warn("Failed to send status message")
	} else {
		r.statusID = id
	}

	r.setStep("quote")
	q := o.quotes.Fetch(ctx)
	o.metrics.RecordQuoteOrigin(string(q.Origin))

	r.setStep("image")
	ref := o.images.Fetch(ctx, q.RawContent)
	kind := ref.Kind
	if ref.IsNone() {
		kind = image.KindNone
	}
	o.metrics.RecordImage(o.images.Name(), string(kind))

	r.setStep("materialize")
	if !ref.IsNone() && o.materializer != nil {
		r.media = o.materializer.Materialize(ctx, ref)
	}

	if r.statusID != 0 {
		if err := o.transport.EditNotice(r.chatID, r.statusID, consts.QuoteReadyMessage); err != nil {
			r.log.WithError(err).Debug("Failed to update status message")
		}
	}

	r.setStep("send")
	hasImage, err := r.send(ctx, q)
	if err != nil {
		r.fail(err)
		return Failed
	}
	r.delivered, r.hasImage = true, hasImage

	o.recorder.RecordQuote(r.chatID, q.DisplayText, string(q.Origin), hasImage)
	o.recorder.RecordAction(r.chatID, consts.ActionQuoteDelivered, map[string]interface{}{
		"hasImage":    hasImage,
		"quoteLength": len([]rune(q.DisplayText)),
		"source":      string(q.Origin),
	})

	return r.deliveredOutcome()
}

func (r *run) deliveredOutcome() Outcome {
	if r.hasImage {
		return Sent
	}
	return Degraded
}

// send delivers the photo when there is one and falls back to plain text if
// the photo is rejected. Each shape gets one retry.
func (r *run) send(ctx context.Context, q quote.Quote) (bool, error) {
	if r.media != nil {
		err := r.retryOnce(ctx, func() error {
			return r.o.transport.SendPhoto(r.chatID, r.media, q.DisplayText)
		})
		if err == nil {
			return true, nil
		}
		r.log.WithError(err).Warn("Photo send failed, falling back to text")
	}

	err := r.retryOnce(ctx, func() error {
		_, err := r.o.transport.SendText(r.chatID, q.DisplayText)
		return err
	})
	return false, err
}

func (r *run) retryOnce(ctx context.Context, send func() error) error {
	err := send()
	if err == nil {
		return nil
	}

	r.log.WithError(err).Warn("Send failed, retrying once")
	r.o.metrics.RecordSendRetry()

	if r.o.retryDelay > 0 {
		timer := time.NewTimer(r.o.retryDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}

	return send()
}

// fail logs the error with its step, records it and apologizes to the user.
func (r *run) fail(err error) {
	r.log.WithError(err).Error("Quote delivery failed")
	r.o.recorder.RecordError(r.chatID, r.step, err)
	r.o.recorder.RecordAction(r.chatID, consts.ActionQuoteError, map[string]interface{}{
		"error": err.Error(),
		"step":  r.step,
	})

	if _, sendErr := r.o.transport.SendNotice(r.chatID, consts.QuoteApologyMessage); sendErr != nil {
		r.log.WithError(sendErr).Error("Failed to send apology")
	}
}

func (r *run) cleanup() {
	r.setStep("cleanup")

	if r.statusID != 0 {
		if err := r.o.transport.DeleteMessage(r.chatID, r.statusID); err != nil {
			r.log.WithError(err).Warn("Failed to delete status message")
		}
		r.statusID = 0
	}

	r.media.Remove()
	r.media = nil
}

func (r *run) setStep(step string) {
	r.step = step
	r.log = r.log.WithField("step", step)
}
