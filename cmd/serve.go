package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/classwatch/internal/corpus"
	"github.com/abhisek/classwatch/internal/metrics"
	"github.com/abhisek/classwatch/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket service",
	Long: `Serve exposes the engine over HTTP.

  GET  /ws/ingest?topic=..&subject=..&teacher=..  start a session and stream segments
  GET  /ws/live                                   subscribe to engine events
  GET  /sessions/active                           current session snapshot
  POST /sessions/stop                             stop the session and return its report
  GET  /sessions?teacher=..&limit=..              past sessions
  GET  /rankings                                  teacher rankings

SIGHUP reloads the custom topics file.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().String("metrics-addr", "", "Metrics listen address (overrides server.metrics_addr)")
	serveCmd.Flags().Bool("remote", false, "Enable the remote semantic classifier using provider keys from the environment")
}

func runServe(cmd *cobra.Command, args []string) error {
	forceRemote, _ := cmd.Flags().GetBool("remote")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	rt, err := openRuntime(ctx, cmd, runtimeOptions{forceRemote: forceRemote, watchTopics: true})
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.logger

	cfg := server.DefaultConfig()
	cfg.Addr = rt.cfg.Server.Addr
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Addr = addr
	}
	metricsAddr := rt.cfg.Server.MetricsAddr
	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		metricsAddr = addr
	}

	srv := server.New(server.Deps{
		Engine:    rt.engine,
		History:   rt.history,
		Sink:      rt.sink(),
		Simulator: rt.cfg.SimulatorConfig(),
	}, cfg, logger)
	if err := srv.Start(); err != nil {
		return err
	}

	metricsServer := metrics.NewServer(metricsAddr, logger)
	if err := metricsServer.Start(); err != nil {
		logger.Error().Err(err).Msg("Failed to start metrics server")
	}

	logger.Info().Str("addr", cfg.Addr).Str("metrics", metricsAddr).Msg("ClassWatch service started")

	// Wait for signals (shutdown or reload)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for {
		sig := <-sigChan
		if sig != syscall.SIGHUP {
			logger.Info().Msg("Shutdown signal received, gracefully stopping...")
			break
		}
		path := rt.cfg.Corpus.CustomPath
		if path == "" {
			continue
		}
		logger.Info().Str("path", path).Msg("SIGHUP received, reloading custom topics...")
		if err := corpus.Reload(path, rt.corpus); err != nil {
			logger.Error().Err(err).Msg("Failed to reload custom topics")
		}
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error stopping server")
	}

	// A session still running at shutdown is graded rather than lost.
	if rt.engine.Active() != nil {
		if r, err := rt.engine.StopMonitoring(); err == nil {
			rt.record(shutdownCtx, r)
			logger.Info().Str("session", r.SessionID).Str("grade", r.Grade).Msg("Active session stopped at shutdown")
		}
	}

	if err := metricsServer.Stop(); err != nil {
		logger.Error().Err(err).Msg("Error stopping metrics server")
	}
	return nil
}
