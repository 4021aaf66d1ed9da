// Package energyattribution wraps transform/energyattribution as a
// plugin.Plugin, configurable via plugins.energy_attribution.
package energyattribution

import (
	"context"
	"fmt"

	"alumet/naming"
	"alumet/plugin"
	"alumet/plugins"
	"alumet/transform/energyattribution"
)

func init() {
	plugins.Register("energy_attribution", func(cfg map[string]any) plugin.Plugin { return newPlugin(cfg) })
}

type Plugin struct {
	energyMetric string
	usageMetric  string
}

func newPlugin(cfg map[string]any) *Plugin {
	return &Plugin{
		energyMetric: plugins.StringOr(cfg, "energy_metric", "rapl_energy"),
		usageMetric:  plugins.StringOr(cfg, "usage_metric", "cpu_time_delta"),
	}
}

func (p *Plugin) Name() naming.PluginName    { return "energy_attribution" }
func (p *Plugin) Version() string            { return "0.1.0" }
func (p *Plugin) Init(context.Context) error { return nil }

func (p *Plugin) DefaultConfig() map[string]any {
	return map[string]any{
		"energy_metric": "rapl_energy",
		"usage_metric":  "cpu_time_delta",
	}
}

func (p *Plugin) Start(_ context.Context, handle plugin.StartHandle) error {
	energyName, usageName := p.energyMetric, p.usageMetric
	handle.AddTransform(func(ctx plugin.BuildContext) (string, plugin.Transform, error) {
		energy, ok := ctx.MetricByName(energyName)
		if !ok {
			return "", nil, fmt.Errorf("energy_attribution: unknown metric %q", energyName)
		}
		usage, ok := ctx.MetricByName(usageName)
		if !ok {
			return "", nil, fmt.Errorf("energy_attribution: unknown metric %q", usageName)
		}
		tr, err := energyattribution.New(handle.Metrics(), energy.ID, usage.ID)
		if err != nil {
			return "", nil, err
		}
		return "attribution", tr, nil
	})
	return nil
}

func (p *Plugin) Stop(context.Context) error { return nil }

var _ plugin.Plugin = (*Plugin)(nil)
