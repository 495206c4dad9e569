// Package server exposes the monitoring engine over HTTP. Transcripts are
// ingested on a WebSocket, live events stream on another, and finished
// sessions are queryable as history and teacher rankings.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/abhisek/classwatch/internal/history"
	"github.com/abhisek/classwatch/internal/ingest"
	"github.com/abhisek/classwatch/internal/monitor"
	"github.com/abhisek/classwatch/internal/publish"
)

// Config holds the HTTP server configuration.
type Config struct {
	Addr         string
	LiveBuffer   int
	HistoryLimit int
	WriteWait    time.Duration
}

// DefaultConfig returns the defaults used by the serve command.
func DefaultConfig() Config {
	return Config{
		Addr:         ":8080",
		LiveBuffer:   64,
		HistoryLimit: 20,
		WriteWait:    10 * time.Second,
	}
}

// Deps are the collaborators the server routes to. History and Sink may
// be nil.
type Deps struct {
	Engine    *monitor.Engine
	History   history.Repo
	Sink      publish.Sink
	Simulator ingest.SimulatorConfig
}

// Server is the classwatch HTTP service.
type Server struct {
	cfg      Config
	deps     Deps
	router   *mux.Router
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc

	mu     sync.Mutex
	run    *ingestRun
	server *http.Server
}

// ingestRun tracks the driver feeding the active session.
type ingestRun struct {
	sessionID string
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates a server. Call Start to listen, or mount Handler directly.
func New(deps Deps, cfg Config, logger zerolog.Logger) *Server {
	def := DefaultConfig()
	if cfg.LiveBuffer <= 0 {
		cfg.LiveBuffer = def.LiveBuffer
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = def.HistoryLimit
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = def.WriteWait
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		router: mux.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  logger.With().Str("component", "server").Logger(),
		baseCtx: ctx,
		cancel:  cancel,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(loggingMiddleware(s.logger))

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/ws/ingest", s.handleIngest).Methods(http.MethodGet)
	s.router.HandleFunc("/ws/live", s.handleLive).Methods(http.MethodGet)
	s.router.HandleFunc("/sessions", s.handleSessions).Methods(http.MethodGet)
	s.router.HandleFunc("/sessions/active", s.handleActive).Methods(http.MethodGet)
	s.router.HandleFunc("/sessions/stop", s.handleStop).Methods(http.MethodPost)
	s.router.HandleFunc("/rankings", s.handleRankings).Methods(http.MethodGet)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Starting server")
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Server error")
		}
	}()
	return nil
}

// Shutdown stops accepting requests, ends live streams and waits for the
// ingestion driver to exit. The active session, if any, is left to the
// engine's owner.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Stopping server")
	s.cancel()

	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	var err error
	if srv != nil {
		if serr := srv.Shutdown(ctx); serr != nil {
			err = fmt.Errorf("server shutdown: %w", serr)
		}
	}
	s.stopIngest(ctx)
	return err
}

func (s *Server) setRun(run *ingestRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run = run
}

// stopIngest cancels the current driver and waits for it to exit.
func (s *Server) stopIngest(ctx context.Context) {
	s.mu.Lock()
	run := s.run
	s.run = nil
	s.mu.Unlock()

	if run == nil {
		return
	}
	run.cancel()
	select {
	case <-run.done:
	case <-ctx.Done():
		s.logger.Warn().Str("session", run.sessionID).Msg("Ingestion driver did not exit in time")
	}
}
