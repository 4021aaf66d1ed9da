package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumet/internal/config"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "alumet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaultsAndFileValues(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "poll_interval: 5s\nworker_threads: 4\n")

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 4, cfg.WorkerThreads)
	assert.Equal(t, time.Second, cfg.FlushInterval) // default, not overridden by the file
}

func TestLoadClampsUpdateIntervalToMax(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "update_interval: 1m\nmax_update_interval: 10s\n")

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.UpdateInterval)
}

func TestLoadAppliesConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "poll_interval: 1s\n")

	cfg, err := config.Load(path, []string{"poll_interval=2s"})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
}

func TestLoadRejectsMalformedOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "poll_interval: 1s\n")

	_, err := config.Load(path, []string{"not-a-kv-pair"})
	assert.Error(t, err)
}
