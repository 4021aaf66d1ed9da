package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumet/internal/config"
)

func TestResolvePluginsDefaultsToEveryBuiltin(t *testing.T) {
	cfg := config.DefaultConfig()
	got, err := resolvePlugins(nil, cfg)
	require.NoError(t, err)

	names := make([]string, 0, len(got))
	for _, p := range got {
		names = append(names, string(p.Name()))
	}
	assert.Contains(t, names, "aggregation")
	assert.Contains(t, names, "energy_attribution")
	assert.Contains(t, names, "cgroup_bridge")
	assert.Contains(t, names, "relay")
}

func TestResolvePluginsHonorsExplicitSubset(t *testing.T) {
	cfg := config.DefaultConfig()
	got, err := resolvePlugins([]string{"relay"}, cfg)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "relay", string(got[0].Name()))
}

func TestResolvePluginsReportsHintForTypo(t *testing.T) {
	cfg := config.DefaultConfig()
	_, err := resolvePlugins([]string{"aggregaton"}, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did you mean")
}

func TestResolvePluginsPassesPerPluginConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Plugins["relay"] = map[string]any{"client_name": "test-agent"}

	got, err := resolvePlugins([]string{"relay"}, cfg)
	require.NoError(t, err)
	require.Len(t, got, 1)
}
