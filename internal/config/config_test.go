package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME at an empty dir and runs from another, so neither a
// real key file nor a stray .env leaks into the test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("RIOT_API_KEY", "")
	t.Chdir(t.TempDir())
	return home
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store)
	assert.Equal(t, filepath.Join(home, ".rewind", "rewind.db"), cfg.DB)
	assert.Equal(t, 72*time.Hour, cfg.CheckpointTTL)
	assert.Equal(t, 168*time.Hour, cfg.ResultTTL)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 300, cfg.SampleThreshold)
	assert.Equal(t, 10, cfg.FetchWorkers)
	assert.Equal(t, 15, cfg.RiotRPS)
	assert.Equal(t, 90, cfg.RiotPer2Min)
	assert.Equal(t, 3*time.Second, cfg.NarrativeDelay)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.SinceTime().IsZero())
	assert.Error(t, cfg.RequireRiotKey())
}

func TestLoadOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("REWIND_STORE", "postgres")
	t.Setenv("REWIND_DB", "postgres://localhost/rewind")
	t.Setenv("NARRATIVE_DELAY", "0s")
	t.Setenv("SINCE", "1704067200")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RIOT_API_KEY", "RGAPI-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store)
	assert.Equal(t, "postgres://localhost/rewind", cfg.DB)
	assert.Zero(t, cfg.NarrativeDelay)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), cfg.SinceTime())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "RGAPI-env", cfg.RiotAPIKey)
	assert.NoError(t, cfg.RequireRiotKey())
}

func TestRiotKeyFileFallback(t *testing.T) {
	home := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".rewind"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".rewind", "riot_api_key"), []byte("RGAPI-file\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "RGAPI-file", cfg.RiotAPIKey)
}

func TestDotEnvIsLoaded(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(".env", []byte("BATCH_SIZE=25\nREWIND_STORE=bolt\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("BATCH_SIZE")
		os.Unsetenv("REWIND_STORE")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, "bolt", cfg.Store)
	assert.Equal(t, DefaultDBPath("bolt"), cfg.DB)
}
