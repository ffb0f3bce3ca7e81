package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollector() (*Collector, *prometheus.Registry) {
	registry := prometheus.NewRegistry()
	return NewCollector(registry), registry
}

func TestRecordOutcome(t *testing.T) {
	collector, registry := newTestCollector()

	collector.RecordOutcome("sent")
	collector.RecordOutcome("sent")
	collector.RecordOutcome("denied")

	expected := `
		# HELP quote_requests_total Total number of quote requests by outcome
		# TYPE quote_requests_total counter
		quote_requests_total{outcome="denied"} 1
		quote_requests_total{outcome="sent"} 2
	`
	err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "quote_requests_total")
	assert.NoError(t, err)
}

func TestRecordImage(t *testing.T) {
	collector, registry := newTestCollector()

	collector.RecordImage("unsplash", "url")
	collector.RecordImage("fusionbrain", "none")
	collector.RecordImage("fusionbrain", "inlineData")

	expected := `
		# HELP image_results_total Total number of image lookups by strategy and result kind
		# TYPE image_results_total counter
		image_results_total{kind="inlineData",strategy="fusionbrain"} 1
		image_results_total{kind="none",strategy="fusionbrain"} 1
		image_results_total{kind="url",strategy="unsplash"} 1
	`
	err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "image_results_total")
	assert.NoError(t, err)
}

func TestCountersAndGauges(t *testing.T) {
	collector, _ := newTestCollector()

	collector.RecordSendRetry()
	collector.RecordQuoteOrigin("local")
	collector.RecordMessage("")
	collector.RecordMessage("/start")
	collector.RecordRateLimitWait("global")
	collector.UpdateQueueDepth(7)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.sendRetriesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.quoteOriginTotal.WithLabelValues("local")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.telegramMessagesTotal.WithLabelValues("text")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.telegramMessagesTotal.WithLabelValues("/start")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.rateLimitWaits.WithLabelValues("global")))
	assert.Equal(t, 7.0, testutil.ToFloat64(collector.workerQueueDepth))
}

func TestObserveDuration(t *testing.T) {
	collector, registry := newTestCollector()

	collector.ObserveDuration("sent", 2*time.Second)
	collector.ObserveDuration("degraded", 500*time.Millisecond)

	families, err := registry.Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range families {
		if mf.GetName() == "quote_delivery_duration_seconds" {
			found = true
			assert.Equal(t, 2, len(mf.GetMetric()))
		}
	}
	assert.True(t, found, "quote_delivery_duration_seconds metric not found")
}

func TestServerHandler(t *testing.T) {
	collector, registry := newTestCollector()
	collector.RecordOutcome("sent")

	server := httptest.NewServer(NewServer(":0", registry).Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `quote_requests_total{outcome="sent"} 1`)

	health, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}
