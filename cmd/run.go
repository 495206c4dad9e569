package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/abhisek/classwatch/internal/config"
	"github.com/abhisek/classwatch/internal/corpus"
	"github.com/abhisek/classwatch/internal/history"
	"github.com/abhisek/classwatch/internal/llm"
	"github.com/abhisek/classwatch/internal/logging"
	"github.com/abhisek/classwatch/internal/monitor"
	"github.com/abhisek/classwatch/internal/publish"
	"github.com/abhisek/classwatch/internal/remote"
	"github.com/abhisek/classwatch/internal/report"
	"github.com/abhisek/classwatch/internal/store"
)

// runtime holds the dependencies shared by the monitor and serve commands.
type runtime struct {
	cfg       *config.Config
	logger    zerolog.Logger
	store     *store.Store
	history   history.Repo
	publisher *publish.AMQPPublisher
	corpus    *corpus.Corpus
	engine    *monitor.Engine

	closers []func() error
}

type runtimeOptions struct {
	// forceRemote enables the remote classifier even when the config
	// leaves it off, discovering provider keys from the environment.
	forceRemote bool
	// watchTopics follows edits to the custom topics file.
	watchTopics bool
	// quietLog sends logs to a file next to the database unless the
	// config names one, so they do not draw over the TUI.
	quietLog bool
}

// openRuntime builds the logger, store, history, publisher, corpus and
// engine described by the configuration. Close releases them in reverse.
func openRuntime(ctx context.Context, cmd *cobra.Command, opts runtimeOptions) (*runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	if opts.quietLog && cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(filepath.Dir(cfg.Storage.Path), "classwatch.log")
	}
	logger, closeLog, err := logging.Open(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	rt := &runtime{cfg: cfg, logger: logger}
	rt.closers = append(rt.closers, closeLog)

	ok := false
	defer func() {
		if !ok {
			rt.Close()
		}
	}()

	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	rt.store = st
	rt.closers = append(rt.closers, st.Close)

	if err := rt.openHistory(ctx); err != nil {
		return nil, err
	}

	if cfg.Publish.URL != "" {
		p, err := publish.NewAMQPPublisher(cfg.Publish.URL, publish.PublisherConfig{
			Exchange:   cfg.Publish.Exchange,
			RoutingKey: cfg.Publish.RoutingKey,
		}, logger)
		if err != nil {
			// Reports still reach the history store.
			logger.Warn().Err(err).Msg("Report publishing disabled")
		} else {
			rt.publisher = p
			rt.closers = append(rt.closers, p.Close)
		}
	}

	rt.corpus = corpus.Default()
	if path := cfg.Corpus.CustomPath; path != "" {
		if err := corpus.Reload(path, rt.corpus); err != nil {
			return nil, fmt.Errorf("load custom topics: %w", err)
		}
		if opts.watchTopics && cfg.Corpus.Watch {
			go func() {
				if err := corpus.Watch(ctx, path, rt.corpus, logger); err != nil {
					logger.Warn().Err(err).Msg("Custom topics will not be reloaded")
				}
			}()
		}
	}

	deps := monitor.Deps{
		Corpus: rt.corpus,
		Logger: logger,
	}
	classifier, err := rt.remoteClassifier(ctx, opts.forceRemote)
	if err != nil {
		logger.Warn().Err(err).Msg("Remote classifier unavailable, using keyword matching only")
	} else if classifier != nil {
		deps.Remote = classifier
	}
	rt.engine = monitor.NewEngine(deps, cfg.MonitorConfig())
	rt.closers = append(rt.closers, func() error {
		rt.engine.Close()
		return nil
	})

	ok = true
	return rt, nil
}

func (rt *runtime) openHistory(ctx context.Context) error {
	cfg := rt.cfg.History
	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		rt.closers = append(rt.closers, client.Close)
		rt.history = history.NewRedisRepo(client, cfg.Keep)
	default:
		rt.history = &prunedRepo{SessionRepo: rt.store.SessionRepo(), keep: cfg.Keep}
	}
	return nil
}

// remoteClassifier returns nil when remote classification is off.
func (rt *runtime) remoteClassifier(ctx context.Context, force bool) (remote.Classifier, error) {
	cfg := rt.cfg
	if !cfg.Remote.Enabled && !force {
		return nil, nil
	}

	llmCfg := cfg.LLM
	if err := llmCfg.Validate(); err != nil {
		discovered, found := llm.DiscoverConfig()
		if !found {
			return nil, err
		}
		llmCfg = discovered
	}
	// One provider call per request. Failures are retried per session by
	// the engine's connectivity policy, not per segment.
	llmCfg.Retry.MaxAttempts = 1

	provider, err := llm.NewProvider(ctx, llmCfg, rt.store.EventRepo(), rt.logger)
	if err != nil {
		return nil, err
	}
	c, err := remote.NewLLMClassifier(provider, cfg.ClassifierConfig(), rt.logger)
	if err != nil {
		return nil, err
	}
	rt.logger.Info().Str("provider", llmCfg.Provider).Str("model", provider.ModelID()).Msg("Remote classifier enabled")
	return c, nil
}

// sink returns the downstream consumers of a final report besides the
// history store.
func (rt *runtime) sink() publish.Sink {
	if rt.publisher == nil {
		return nil
	}
	return rt.publisher
}

// record saves r to history and hands it to the publisher. Failures are
// logged; the report itself is already final.
func (rt *runtime) record(ctx context.Context, r *report.Report) {
	sinks := publish.Fanout{publish.HistorySink{Repo: rt.history}}
	if s := rt.sink(); s != nil {
		sinks = append(sinks, s)
	}
	if err := sinks.Publish(ctx, r); err != nil {
		rt.logger.Error().Err(err).Str("session", r.SessionID).Msg("Failed to record session")
	}
}

// Close releases resources in reverse order of acquisition.
func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// prunedRepo keeps only the newest keep sessions in SQLite.
type prunedRepo struct {
	store.SessionRepo
	keep int
}

func (r *prunedRepo) Append(ctx context.Context, rep *report.Report) error {
	if err := r.SessionRepo.Append(ctx, rep); err != nil {
		return err
	}
	if r.keep > 0 {
		if err := r.SessionRepo.Prune(ctx, r.keep); err != nil {
			return fmt.Errorf("prune sessions: %w", err)
		}
	}
	return nil
}
