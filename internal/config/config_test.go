package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/classwatch/internal/ingest"
	"github.com/abhisek/classwatch/internal/report"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CLASSWATCH_DB", filepath.Join(t.TempDir(), "cw.db"))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "flattering", cfg.Engine.Blend)
	assert.Equal(t, 3, cfg.Engine.ReconcileWindow)
	assert.Equal(t, 300*time.Millisecond, cfg.Engine.InterimDebounce)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, cfg.Remote.Backoff)
	assert.Equal(t, "sqlite", cfg.History.Backend)
	assert.False(t, cfg.Remote.Enabled)

	m := cfg.MonitorConfig()
	assert.Equal(t, report.DefaultGrading(), m.Grading)
	assert.Equal(t, 3, m.Policy.MaxAttempts)
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: json
engine:
  blend: symmetric
  reconcile_window: 5
  weights:
    on_topic: 0.5
remote:
  batch_interval: 1500ms
  backoff: ["250ms", "1s"]
ingest:
  strategy: sequential
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 5, cfg.Engine.ReconcileWindow)
	assert.Equal(t, 1500*time.Millisecond, cfg.Remote.BatchInterval)
	assert.Equal(t, []time.Duration{250 * time.Millisecond, time.Second}, cfg.Remote.Backoff)

	m := cfg.MonitorConfig()
	assert.Equal(t, report.SymmetricBlend(), m.Grading.Blend)
	assert.Equal(t, 0.5, m.Grading.Weights.OnTopic)
	assert.Equal(t, 0.30, m.Grading.Weights.Metrics, "unset keys keep their defaults")

	sc := cfg.SimulatorConfig()
	assert.IsType(t, &ingest.SequentialPicker{}, sc.Picker)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CLASSWATCH_ENGINE_RECONCILE_WINDOW", "4")
	t.Setenv("CLASSWATCH_HISTORY_BACKEND", "redis")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Engine.ReconcileWindow)
	assert.Equal(t, "redis", cfg.History.Backend)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"blend", "engine:\n  blend: generous\n"},
		{"log level", "logging:\n  level: loud\n"},
		{"backend", "history:\n  backend: mongo\n"},
		{"window", "engine:\n  reconcile_window: 0\n"},
		{"thresholds", "engine:\n  status:\n    good: 90\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_RemoteNeedsKey(t *testing.T) {
	for _, k := range []string{"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(k, "")
	}
	_, err := Load(writeConfig(t, "remote:\n  enabled: true\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")

	t.Setenv("GEMINI_API_KEY", "k")
	cfg, err := Load(writeConfig(t, "remote:\n  enabled: true\n"))
	require.NoError(t, err)
	assert.Equal(t, "k", cfg.LLM.Gemini.APIKey)
}
