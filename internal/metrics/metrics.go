package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Segment metrics
	SegmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classwatch_segments_total",
			Help: "Total finalized transcript segments by verdict",
		},
		[]string{"verdict"},
	)

	SegmentScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "classwatch_segment_score",
			Help:    "Per-segment score distribution",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	Revisions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "classwatch_segment_revisions_total",
			Help: "Segments downgraded by a remote verdict",
		},
	)

	// Remote classifier metrics
	RemoteRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classwatch_remote_requests_total",
			Help: "Remote classification attempts by outcome",
		},
		[]string{"outcome"},
	)

	RemoteCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "classwatch_remote_cache_hits_total",
			Help: "Remote verdicts served from cache",
		},
	)

	RemoteDegraded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "classwatch_remote_degraded",
			Help: "1 when the remote classifier has tripped for the active session",
		},
	)

	// LLM metrics
	LLMRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classwatch_llm_requests_total",
			Help: "LLM calls by model, purpose and outcome",
		},
		[]string{"model", "purpose", "outcome"},
	)

	LLMLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classwatch_llm_request_duration_seconds",
			Help:    "LLM call latency in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"model"},
	)

	LLMRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "classwatch_llm_retries_total",
			Help: "LLM calls retried after a transient error",
		},
	)

	// Session metrics
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "classwatch_sessions_active",
			Help: "Number of active monitoring sessions",
		},
	)

	SessionsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classwatch_sessions_finished_total",
			Help: "Terminated sessions by grade",
		},
		[]string{"grade"},
	)

	// Ingestion metrics
	IngestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classwatch_ingest_errors_total",
			Help: "Transcription errors reported by ingestion sources",
		},
		[]string{"kind"},
	)

	EventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "classwatch_events_dropped_total",
			Help: "Session events dropped because a subscriber was full",
		},
	)
)

func init() {
	prometheus.MustRegister(
		SegmentsTotal,
		SegmentScore,
		Revisions,
		RemoteRequests,
		RemoteCacheHits,
		RemoteDegraded,
		LLMRequests,
		LLMLatency,
		LLMRetries,
		SessionsActive,
		SessionsFinished,
		IngestErrors,
		EventsDropped,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Server is the metrics HTTP server
type Server struct {
	server *http.Server
	logger zerolog.Logger
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
