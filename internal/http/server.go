package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tunesmith/internal/core"
)

type Server struct {
	config  *core.ServerConfig
	logger  *zap.Logger
	server  *http.Server
	metrics *Metrics
}

type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	CacheLookups     *prometheus.CounterVec
	LLMFallbacks     *prometheus.CounterVec
	PipelineDuration prometheus.Histogram
}

func NewServer(config *core.ServerConfig, logger *zap.Logger) *Server {
	metrics := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tunesmith_requests_total",
				Help: "Total number of requests processed, by result type",
			},
			[]string{"result"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tunesmith_song_cache_lookups_total",
				Help: "Total number of song cache lookups",
			},
			[]string{"outcome"},
		),
		LLMFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tunesmith_llm_fallbacks_total",
				Help: "Total number of reasoning calls that degraded to a fallback",
			},
			[]string{"stage"},
		),
		PipelineDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tunesmith_pipeline_duration_seconds",
				Help:    "Time spent building one playlist end to end",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
		),
	}

	prometheus.MustRegister(
		metrics.RequestsTotal,
		metrics.CacheLookups,
		metrics.LLMFallbacks,
		metrics.PipelineDuration,
	)

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"tunesmith"}`))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready","service":"tunesmith"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return &Server{
		config:  config,
		logger:  logger,
		server:  server,
		metrics: metrics,
	}
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// RecordRequest implements core.Metrics.
func (s *Server) RecordRequest(resultType string) {
	s.metrics.RequestsTotal.WithLabelValues(resultType).Inc()
}

// RecordCacheLookup implements core.Metrics.
func (s *Server) RecordCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	s.metrics.CacheLookups.WithLabelValues(outcome).Inc()
}

// RecordLLMFallback implements core.Metrics.
func (s *Server) RecordLLMFallback(stage string) {
	s.metrics.LLMFallbacks.WithLabelValues(stage).Inc()
}

// ObservePipelineDuration implements core.Metrics.
func (s *Server) ObservePipelineDuration(d time.Duration) {
	s.metrics.PipelineDuration.Observe(d.Seconds())
}
