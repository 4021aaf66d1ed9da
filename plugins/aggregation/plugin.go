// Package aggregation wraps transform/aggregation as a plugin.Plugin,
// configurable via the core's plugins.aggregation config table.
package aggregation

import (
	"context"
	"fmt"
	"time"

	"alumet/api"
	"alumet/naming"
	"alumet/plugin"
	"alumet/plugins"
	"alumet/transform/aggregation"
)

func init() {
	plugins.Register("aggregation", func(cfg map[string]any) plugin.Plugin { return newPlugin(cfg) })
}

type Plugin struct {
	interval time.Duration
	function string
	metrics  []string
}

func newPlugin(cfg map[string]any) *Plugin {
	return &Plugin{
		interval: plugins.DurationOr(cfg, "interval", 10*time.Second),
		function: plugins.StringOr(cfg, "function", "sum"),
		metrics:  plugins.StringSlice(cfg, "metrics"),
	}
}

func (p *Plugin) Name() naming.PluginName { return "aggregation" }
func (p *Plugin) Version() string         { return "0.1.0" }
func (p *Plugin) Init(context.Context) error { return nil }

func (p *Plugin) DefaultConfig() map[string]any {
	return map[string]any{
		"interval": "10s",
		"function": "sum",
		"metrics":  []string{},
	}
}

func (p *Plugin) Start(_ context.Context, handle plugin.StartHandle) error {
	fn := aggregation.Sum
	if p.function == "mean" {
		fn = aggregation.Mean
	}
	interval, metricNames := p.interval, p.metrics
	handle.AddTransform(func(ctx plugin.BuildContext) (string, plugin.Transform, error) {
		ids := make([]api.RawMetricID, 0, len(metricNames))
		for _, name := range metricNames {
			m, ok := ctx.MetricByName(name)
			if !ok {
				return "", nil, fmt.Errorf("aggregation: unknown metric %q", name)
			}
			ids = append(ids, m.ID)
		}
		return "window", aggregation.New(interval, fn, ids), nil
	})
	return nil
}

func (p *Plugin) Stop(context.Context) error { return nil }

var _ plugin.Plugin = (*Plugin)(nil)
