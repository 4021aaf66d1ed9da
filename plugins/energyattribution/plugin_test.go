package energyattribution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumet/api"
	"alumet/internal/agent"
	"alumet/pipeline"
	"alumet/plugin"
	"alumet/plugins"
)

func TestNewPluginAppliesDefaultsWhenConfigEmpty(t *testing.T) {
	p := newPlugin(nil)
	assert.Equal(t, "rapl_energy", p.energyMetric)
	assert.Equal(t, "cpu_time_delta", p.usageMetric)
}

func TestNewPluginHonorsConfig(t *testing.T) {
	p := newPlugin(map[string]any{
		"energy_metric": "package_energy",
		"usage_metric":  "process_cpu_time",
	})
	assert.Equal(t, "package_energy", p.energyMetric)
	assert.Equal(t, "process_cpu_time", p.usageMetric)
}

func TestStartRegistersAttributionTransformForKnownMetrics(t *testing.T) {
	pipe := pipeline.New(pipeline.DefaultConfig(), nil)
	_, err := pipe.Metrics().Register("rapl_energy", api.Unit{Kind: api.Joule}, api.TypeF64, "")
	require.NoError(t, err)
	_, err = pipe.Metrics().Register("cpu_time_delta", api.Unit{Kind: api.Second}, api.TypeF64, "")
	require.NoError(t, err)

	p := newPlugin(nil)
	require.NoError(t, p.Start(context.Background(), agent.NewStartHandle(pipe, "energy_attribution")))
}

func TestStartFailsForUnknownEnergyMetric(t *testing.T) {
	pipe := pipeline.New(pipeline.DefaultConfig(), nil)
	p := newPlugin(nil)

	assert.Panics(t, func() {
		p.Start(context.Background(), agent.NewStartHandle(pipe, "energy_attribution"))
	})
}

func TestPluginIsRegisteredByName(t *testing.T) {
	factory, err := plugins.Get("energy_attribution")
	require.NoError(t, err)
	built := factory(nil)
	assert.Equal(t, "energy_attribution", string(built.Name()))
}

var _ plugin.Plugin = (*Plugin)(nil)
