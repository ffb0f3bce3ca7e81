package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector manages the Prometheus metrics of the quote bot.
type Collector struct {
	// Delivery metrics
	quoteRequestsTotal *prometheus.CounterVec
	deliveryDuration   *prometheus.HistogramVec
	sendRetriesTotal   prometheus.Counter

	// Provider metrics
	quoteOriginTotal  *prometheus.CounterVec
	imageResultsTotal *prometheus.CounterVec

	// Telegram metrics
	telegramMessagesTotal *prometheus.CounterVec
	rateLimitWaits        *prometheus.CounterVec
	workerQueueDepth      prometheus.Gauge
}

// NewCollector registers the metrics with registry. If registry is nil the
// default global registry is used.
func NewCollector(registry prometheus.Registerer) *Collector {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Collector{
		quoteRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quote_requests_total",
				Help: "Total number of quote requests by outcome",
			},
			[]string{"outcome"},
		),

		deliveryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quote_delivery_duration_seconds",
				Help:    "Time spent delivering an admitted quote request",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"outcome"},
		),

		sendRetriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "quote_send_retries_total",
				Help: "Total number of retried quote sends",
			},
		),

		quoteOriginTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quote_origin_total",
				Help: "Total number of quotes by origin (remote or local fallback)",
			},
			[]string{"origin"},
		),

		imageResultsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "image_results_total",
				Help: "Total number of image lookups by strategy and result kind",
			},
			[]string{"strategy", "kind"},
		),

		telegramMessagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telegram_messages_total",
				Help: "Total number of inbound Telegram messages by command",
			},
			[]string{"command"},
		),

		rateLimitWaits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telegram_rate_limit_waits_total",
				Help: "Total number of outbound sends delayed by a rate limiter",
			},
			[]string{"limit_type"},
		),

		workerQueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "worker_queue_depth",
				Help: "Current number of queued inbound messages",
			},
		),
	}
}

// RecordOutcome counts a finished quote request.
func (m *Collector) RecordOutcome(outcome string) {
	m.quoteRequestsTotal.WithLabelValues(outcome).Inc()
}

func (m *Collector) ObserveDuration(outcome string, d time.Duration) {
	m.deliveryDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Collector) RecordSendRetry() {
	m.sendRetriesTotal.Inc()
}

func (m *Collector) RecordQuoteOrigin(origin string) {
	m.quoteOriginTotal.WithLabelValues(origin).Inc()
}

func (m *Collector) RecordImage(strategy, kind string) {
	m.imageResultsTotal.WithLabelValues(strategy, kind).Inc()
}

// RecordMessage counts an inbound message. Free text is collapsed into
// "text" to keep label cardinality bounded.
func (m *Collector) RecordMessage(command string) {
	if command == "" {
		command = "text"
	}
	m.telegramMessagesTotal.WithLabelValues(command).Inc()
}

func (m *Collector) RecordRateLimitWait(limitType string) {
	m.rateLimitWaits.WithLabelValues(limitType).Inc()
}

func (m *Collector) UpdateQueueDepth(depth int) {
	m.workerQueueDepth.Set(float64(depth))
}

