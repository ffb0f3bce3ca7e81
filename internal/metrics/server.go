package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quotebot/quotebot/internal/logger"
)

// Server exposes /metrics and /health.
type Server struct {
	srv *http.Server
}

// NewServer builds the HTTP server for gatherer. A nil gatherer serves the
// default registry.
func NewServer(addr string, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// StartServer starts serving in the background and returns the running server.
func StartServer(addr string, gatherer prometheus.Gatherer) *Server {
	s := NewServer(addr, gatherer)

	go func() {
		logger.Info("Starting metrics server", map[string]interface{}{
			"addr": addr,
		})
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", map[string]interface{}{
				"addr":  addr,
				"error": err.Error(),
			})
		}
	}()

	return s
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
