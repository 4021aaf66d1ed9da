package aggregation

import (
	"context"
	"testing"
	"time"

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
	assert.Equal(t, 10*time.Second, p.interval)
	assert.Equal(t, "sum", p.function)
	assert.Empty(t, p.metrics)
}

func TestNewPluginHonorsConfig(t *testing.T) {
	p := newPlugin(map[string]any{
		"interval": "30s",
		"function": "mean",
		"metrics":  []any{"cpu_usage"},
	})
	assert.Equal(t, 30*time.Second, p.interval)
	assert.Equal(t, "mean", p.function)
	assert.Equal(t, []string{"cpu_usage"}, p.metrics)
}

func TestStartRegistersWindowTransformForKnownMetrics(t *testing.T) {
	pipe := pipeline.New(pipeline.DefaultConfig(), nil)
	_, err := pipe.Metrics().Register("cpu_usage", api.Unit{}, api.TypeF64, "")
	require.NoError(t, err)

	p := newPlugin(map[string]any{"metrics": []any{"cpu_usage"}})
	require.NoError(t, p.Start(context.Background(), agent.NewStartHandle(pipe, "aggregation")))
}

func TestStartFailsForUnknownMetric(t *testing.T) {
	pipe := pipeline.New(pipeline.DefaultConfig(), nil)
	p := newPlugin(map[string]any{"metrics": []any{"does_not_exist"}})

	assert.Panics(t, func() {
		p.Start(context.Background(), agent.NewStartHandle(pipe, "aggregation"))
	})
}

func TestPluginIsRegisteredByName(t *testing.T) {
	factory, err := plugins.Get("aggregation")
	require.NoError(t, err)
	built := factory(nil)
	assert.Equal(t, "aggregation", string(built.Name()))
}

var _ plugin.Plugin = (*Plugin)(nil)
