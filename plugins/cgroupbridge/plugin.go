// Package cgroupbridge wraps transform/cgroupbridge as a plugin.Plugin,
// configurable via plugins.cgroup_bridge.
package cgroupbridge

import (
	"context"
	"fmt"

	"alumet/api"
	"alumet/internal/telemetry/logging"
	"alumet/naming"
	"alumet/plugin"
	"alumet/plugins"
	"alumet/transform/cgroupbridge"
)

func init() {
	plugins.Register("cgroup_bridge", func(cfg map[string]any) plugin.Plugin { return newPlugin(cfg) })
}

type Plugin struct {
	procRoot     string
	keepOriginal bool
	metrics      []string
	log          logging.Logger
}

func newPlugin(cfg map[string]any) *Plugin {
	return &Plugin{
		procRoot:     plugins.StringOr(cfg, "proc_root", "/proc"),
		keepOriginal: plugins.BoolOr(cfg, "keep_original", false),
		metrics:      plugins.StringSlice(cfg, "metrics"),
	}
}

func (p *Plugin) Name() naming.PluginName { return "cgroup_bridge" }
func (p *Plugin) Version() string         { return "0.1.0" }

func (p *Plugin) Init(context.Context) error {
	p.log = logging.New(nil)
	return nil
}

func (p *Plugin) DefaultConfig() map[string]any {
	return map[string]any{
		"proc_root":     "/proc",
		"keep_original": false,
		"metrics":       []string{},
	}
}

func (p *Plugin) Start(_ context.Context, handle plugin.StartHandle) error {
	lookup := cgroupbridge.ProcLookup(p.procRoot)
	keepOriginal, metricNames, log := p.keepOriginal, p.metrics, p.log
	handle.AddTransform(func(ctx plugin.BuildContext) (string, plugin.Transform, error) {
		ids := make([]api.RawMetricID, 0, len(metricNames))
		for _, name := range metricNames {
			m, ok := ctx.MetricByName(name)
			if !ok {
				return "", nil, fmt.Errorf("cgroup_bridge: unknown metric %q", name)
			}
			ids = append(ids, m.ID)
		}
		return "bridge", cgroupbridge.New(ids, lookup, keepOriginal, log), nil
	})
	return nil
}

func (p *Plugin) Stop(context.Context) error { return nil }

var _ plugin.Plugin = (*Plugin)(nil)
