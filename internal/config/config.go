// Package config loads classwatch configuration from an optional file,
// CLASSWATCH_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/abhisek/classwatch/internal/ingest"
	"github.com/abhisek/classwatch/internal/llm"
	"github.com/abhisek/classwatch/internal/logging"
	"github.com/abhisek/classwatch/internal/monitor"
	"github.com/abhisek/classwatch/internal/remote"
	"github.com/abhisek/classwatch/internal/report"
	"github.com/abhisek/classwatch/internal/store"
)

// EnvPrefix prefixes every environment override, e.g.
// CLASSWATCH_ENGINE_RECONCILE_WINDOW.
const EnvPrefix = "CLASSWATCH"

// Config holds the complete application configuration
type Config struct {
	Logging logging.Config `mapstructure:"logging"`
	Storage StorageConfig  `mapstructure:"storage"`
	LLM     llm.Config     `mapstructure:"llm"`
	Remote  RemoteConfig   `mapstructure:"remote"`
	Engine  EngineConfig   `mapstructure:"engine"`
	Ingest  IngestConfig   `mapstructure:"ingest"`
	Corpus  CorpusConfig   `mapstructure:"corpus"`
	History HistoryConfig  `mapstructure:"history"`
	Server  ServerConfig   `mapstructure:"server"`
	Publish PublishConfig  `mapstructure:"publish"`
}

// StorageConfig locates the SQLite database
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// RemoteConfig controls the optional semantic classifier
type RemoteConfig struct {
	Enabled       bool            `mapstructure:"enabled"`
	BatchInterval time.Duration   `mapstructure:"batch_interval"`
	MaxBatch      int             `mapstructure:"max_batch"`
	QueueSize     int             `mapstructure:"queue_size"`
	Timeout       time.Duration   `mapstructure:"timeout"`
	MaxAttempts   int             `mapstructure:"max_attempts"`
	Backoff       []time.Duration `mapstructure:"backoff"`
	CacheSize     int             `mapstructure:"cache_size"`
	MaxTokens     int             `mapstructure:"max_tokens"`
	Temperature   float64         `mapstructure:"temperature"`
}

// EngineConfig tunes segment analysis and grading
type EngineConfig struct {
	MinTokens          int           `mapstructure:"min_tokens"`
	ReconcileWindow    int           `mapstructure:"reconcile_window"`
	WeakMatchThreshold int           `mapstructure:"weak_match_threshold"`
	TickInterval       time.Duration `mapstructure:"tick_interval"`
	InterimDebounce    time.Duration `mapstructure:"interim_debounce"`
	MaxSegmentGap      time.Duration `mapstructure:"max_segment_gap"`
	PacingMinWindow    time.Duration `mapstructure:"pacing_min_window"`
	OffTopicSample     int           `mapstructure:"off_topic_sample"`

	// Blend is "flattering" (0.6 of the higher basis, 0.4 of the lower)
	// or "symmetric" (plain average).
	Blend   string        `mapstructure:"blend"`
	Weights WeightsConfig `mapstructure:"weights"`
	Status  StatusConfig  `mapstructure:"status"`
}

// WeightsConfig mirrors report.Weights
type WeightsConfig struct {
	OnTopic           float64 `mapstructure:"on_topic"`
	Metrics           float64 `mapstructure:"metrics"`
	QuestionPoints    float64 `mapstructure:"question_points"`
	ExamplePoints     float64 `mapstructure:"example_points"`
	EngagementCap     float64 `mapstructure:"engagement_cap"`
	DurationPerMinute float64 `mapstructure:"duration_per_minute"`
	DurationCap       float64 `mapstructure:"duration_cap"`
}

// StatusConfig mirrors report.StatusThresholds
type StatusConfig struct {
	Excellent        float64 `mapstructure:"excellent"`
	Good             float64 `mapstructure:"good"`
	Satisfactory     float64 `mapstructure:"satisfactory"`
	NeedsImprovement float64 `mapstructure:"needs_improvement"`
}

// IngestConfig controls the simulated segment source
type IngestConfig struct {
	SimulationInterval time.Duration `mapstructure:"simulation_interval"`
	// Strategy is "random" or "sequential".
	Strategy string `mapstructure:"strategy"`
}

// CorpusConfig locates custom topics
type CorpusConfig struct {
	CustomPath string `mapstructure:"custom_path"`
	Watch      bool   `mapstructure:"watch"`
}

// HistoryConfig selects the session history backend
type HistoryConfig struct {
	Backend       string `mapstructure:"backend"` // sqlite or redis
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	Keep          int    `mapstructure:"keep"`
}

// ServerConfig defines listen addresses
type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// PublishConfig defines the AMQP report sink
type PublishConfig struct {
	URL        string `mapstructure:"url"`
	Exchange   string `mapstructure:"exchange"`
	RoutingKey string `mapstructure:"routing_key"`
}

// Load reads configPath (optional; may be empty or missing), applies
// environment overrides and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// Config file not found, use defaults and environment variables
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.LLM.FillKeysFromEnv()

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// DefaultPath returns $XDG_CONFIG_HOME/classwatch/config.yaml or the
// platform equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "classwatch", "config.yaml")
}

func setDefaults(v *viper.Viper) {
	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")

	// Storage defaults
	dbPath, err := store.DefaultDBPath()
	if err != nil {
		dbPath = "classwatch.db"
	}
	v.SetDefault("storage.path", dbPath)

	// LLM defaults
	l := llm.DefaultConfig()
	v.SetDefault("llm.provider", l.Provider)
	v.SetDefault("llm.timeout", l.Timeout)
	v.SetDefault("llm.gemini.api_key", "")
	v.SetDefault("llm.gemini.model", l.Gemini.Model)
	v.SetDefault("llm.openai.api_key", "")
	v.SetDefault("llm.openai.model", l.OpenAI.Model)
	v.SetDefault("llm.openai.base_url", "")
	v.SetDefault("llm.anthropic.api_key", "")
	v.SetDefault("llm.anthropic.model", l.Anthropic.Model)
	v.SetDefault("llm.anthropic.base_url", "")
	v.SetDefault("llm.openrouter.api_key", "")
	v.SetDefault("llm.openrouter.model", l.OpenRouter.Model)
	v.SetDefault("llm.openrouter.base_url", "")
	v.SetDefault("llm.retry.max_attempts", l.Retry.MaxAttempts)
	v.SetDefault("llm.retry.initial_wait", l.Retry.InitialWait)
	v.SetDefault("llm.retry.max_wait", l.Retry.MaxWait)
	v.SetDefault("llm.retry.multiplier", l.Retry.Multiplier)

	// Remote classifier defaults
	rc := remote.DefaultConfig()
	ac := remote.DefaultAdapterConfig()
	p := remote.DefaultPolicy()
	v.SetDefault("remote.enabled", false)
	v.SetDefault("remote.batch_interval", ac.BatchInterval)
	v.SetDefault("remote.max_batch", ac.MaxBatch)
	v.SetDefault("remote.queue_size", ac.QueueSize)
	v.SetDefault("remote.timeout", ac.Timeout)
	v.SetDefault("remote.max_attempts", p.MaxAttempts)
	v.SetDefault("remote.backoff", p.Backoff)
	v.SetDefault("remote.cache_size", rc.CacheSize)
	v.SetDefault("remote.max_tokens", rc.MaxTokens)
	v.SetDefault("remote.temperature", rc.Temperature)

	// Engine defaults
	e := monitor.DefaultConfig()
	v.SetDefault("engine.min_tokens", e.MinTokens)
	v.SetDefault("engine.reconcile_window", e.ReconcileWindow)
	v.SetDefault("engine.weak_match_threshold", e.WeakMatchThreshold)
	v.SetDefault("engine.tick_interval", e.TickInterval)
	v.SetDefault("engine.interim_debounce", e.InterimDebounce)
	v.SetDefault("engine.max_segment_gap", e.MaxSegmentGap)
	v.SetDefault("engine.pacing_min_window", e.PacingMinWindow)
	v.SetDefault("engine.off_topic_sample", e.OffTopicSample)
	v.SetDefault("engine.blend", "flattering")
	w := report.DefaultWeights()
	v.SetDefault("engine.weights.on_topic", w.OnTopic)
	v.SetDefault("engine.weights.metrics", w.Metrics)
	v.SetDefault("engine.weights.question_points", w.QuestionPoints)
	v.SetDefault("engine.weights.example_points", w.ExamplePoints)
	v.SetDefault("engine.weights.engagement_cap", w.EngagementCap)
	v.SetDefault("engine.weights.duration_per_minute", w.DurationPerMinute)
	v.SetDefault("engine.weights.duration_cap", w.DurationCap)
	st := report.DefaultStatusThresholds()
	v.SetDefault("engine.status.excellent", st.Excellent)
	v.SetDefault("engine.status.good", st.Good)
	v.SetDefault("engine.status.satisfactory", st.Satisfactory)
	v.SetDefault("engine.status.needs_improvement", st.NeedsImprovement)

	// Ingest defaults
	v.SetDefault("ingest.simulation_interval", ingest.DefaultSimulationInterval)
	v.SetDefault("ingest.strategy", "random")

	// Corpus defaults
	topics := ""
	if dir, err := os.UserConfigDir(); err == nil {
		topics = filepath.Join(dir, "classwatch", "topics.toml")
	}
	v.SetDefault("corpus.custom_path", topics)
	v.SetDefault("corpus.watch", true)

	// History defaults
	v.SetDefault("history.backend", "sqlite")
	v.SetDefault("history.redis_addr", "localhost:6379")
	v.SetDefault("history.redis_password", "")
	v.SetDefault("history.redis_db", 0)
	v.SetDefault("history.keep", 100)

	// Server defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.metrics_addr", ":9090")

	// Publish defaults
	v.SetDefault("publish.url", "")
	v.SetDefault("publish.exchange", "classwatch.reports")
	v.SetDefault("publish.routing_key", "session.finished")
}

func validate(cfg *Config) error {
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %q", cfg.Logging.Format)
	}

	if cfg.Storage.Path == "" {
		return fmt.Errorf("storage path is required")
	}

	switch cfg.Engine.Blend {
	case "flattering", "symmetric":
	default:
		return fmt.Errorf("invalid engine.blend: %q (want flattering or symmetric)", cfg.Engine.Blend)
	}
	if cfg.Engine.ReconcileWindow < 1 {
		return fmt.Errorf("engine.reconcile_window must be at least 1")
	}
	if cfg.Engine.MinTokens < 1 {
		return fmt.Errorf("engine.min_tokens must be at least 1")
	}
	s := cfg.Engine.Status
	if !(s.Excellent >= s.Good && s.Good >= s.Satisfactory && s.Satisfactory >= s.NeedsImprovement) {
		return fmt.Errorf("engine.status thresholds must be descending")
	}

	switch cfg.Ingest.Strategy {
	case "random", "sequential":
	default:
		return fmt.Errorf("invalid ingest.strategy: %q", cfg.Ingest.Strategy)
	}

	switch cfg.History.Backend {
	case "sqlite":
	case "redis":
		if cfg.History.RedisAddr == "" {
			return fmt.Errorf("history.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid history.backend: %q", cfg.History.Backend)
	}

	if cfg.Remote.Enabled {
		if cfg.Remote.MaxAttempts < 1 {
			return fmt.Errorf("remote.max_attempts must be at least 1")
		}
		if err := cfg.LLM.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// MonitorConfig converts the engine and remote sections for the engine.
func (c *Config) MonitorConfig() monitor.Config {
	e := c.Engine
	blend := report.DefaultBlend()
	if e.Blend == "symmetric" {
		blend = report.SymmetricBlend()
	}

	m := monitor.DefaultConfig()
	m.MinTokens = e.MinTokens
	m.ReconcileWindow = e.ReconcileWindow
	m.WeakMatchThreshold = e.WeakMatchThreshold
	m.TickInterval = e.TickInterval
	m.InterimDebounce = e.InterimDebounce
	m.MaxSegmentGap = e.MaxSegmentGap
	m.PacingMinWindow = e.PacingMinWindow
	m.OffTopicSample = e.OffTopicSample
	m.Grading = report.Grading{
		Blend: blend,
		Weights: report.Weights{
			OnTopic:           e.Weights.OnTopic,
			Metrics:           e.Weights.Metrics,
			QuestionPoints:    e.Weights.QuestionPoints,
			ExamplePoints:     e.Weights.ExamplePoints,
			EngagementCap:     e.Weights.EngagementCap,
			DurationPerMinute: e.Weights.DurationPerMinute,
			DurationCap:       e.Weights.DurationCap,
		},
		Status: report.StatusThresholds{
			Excellent:        e.Status.Excellent,
			Good:             e.Status.Good,
			Satisfactory:     e.Status.Satisfactory,
			NeedsImprovement: e.Status.NeedsImprovement,
		},
	}
	m.Remote = remote.AdapterConfig{
		BatchInterval: c.Remote.BatchInterval,
		MaxBatch:      c.Remote.MaxBatch,
		QueueSize:     c.Remote.QueueSize,
		Timeout:       c.Remote.Timeout,
	}
	m.Policy = remote.Policy{
		MaxAttempts: c.Remote.MaxAttempts,
		Backoff:     c.Remote.Backoff,
	}
	return m
}

// ClassifierConfig converts the remote section for the LLM classifier.
func (c *Config) ClassifierConfig() remote.Config {
	return remote.Config{
		MaxTokens:   c.Remote.MaxTokens,
		Temperature: c.Remote.Temperature,
		CacheSize:   c.Remote.CacheSize,
	}
}

// SimulatorConfig converts the ingest section.
func (c *Config) SimulatorConfig() ingest.SimulatorConfig {
	sc := ingest.SimulatorConfig{Interval: c.Ingest.SimulationInterval}
	if c.Ingest.Strategy == "sequential" {
		sc.Picker = &ingest.SequentialPicker{}
	}
	return sc
}
