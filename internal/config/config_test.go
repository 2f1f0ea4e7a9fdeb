package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 2*time.Second, cfg.TrendTimeout)
	assert.Equal(t, 3, cfg.MaxTrendSuggestions)
	assert.False(t, cfg.LLMEnabled())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.yaml")
	doc := `
server:
  listen_addr: ":9000"
  log_level: debug
engine:
  trend_timeout: 750ms
  max_trend_suggestions: 5
trends:
  sqlite_path: /tmp/trends.db
  cache_ttl: 1m
llm:
  model: local-model
  burst: 2
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	t.Setenv("CONTENT_LISTEN_ADDR", ":9100")
	t.Setenv("CONTENT_LLM_API_KEY", "key")
	t.Setenv("CONTENT_MAX_TREND_SUGGESTIONS", "4")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.ListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 750*time.Millisecond, cfg.TrendTimeout)
	assert.Equal(t, 4, cfg.MaxTrendSuggestions)
	assert.Equal(t, "/tmp/trends.db", cfg.SQLitePath)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, 2, cfg.LLMBurst)
	assert.True(t, cfg.LLMEnabled())
}

func TestLoadFileAcceptsZeroTemperature(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  temperature: 0\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.LLMTemperature)

	require.NoError(t, os.WriteFile(path, []byte("llm:\n  model: other\n"), 0o600))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().LLMTemperature, cfg.LLMTemperature)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("CONTENT_TREND_TIMEOUT", "soon")
		_, err := Load("")
		require.Error(t, err)
	})
	t.Run("bad number", func(t *testing.T) {
		t.Setenv("CONTENT_LLM_BURST", "many")
		_, err := Load("")
		require.Error(t, err)
	})
	t.Run("out of range", func(t *testing.T) {
		t.Setenv("CONTENT_MAX_TREND_SUGGESTIONS", "0")
		_, err := Load("")
		require.Error(t, err)
	})
	t.Run("unknown log level", func(t *testing.T) {
		t.Setenv("CONTENT_LOG_LEVEL", "chatty")
		_, err := Load("")
		require.Error(t, err)
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})
}
