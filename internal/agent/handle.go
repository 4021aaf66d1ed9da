// Package agent wires the generic plugin.Plugin lifecycle to a running
// pipeline.Pipeline: it is the glue the CLI uses to turn a list of
// plugin.Plugin values into registered sources, transforms and outputs.
package agent

import (
	"fmt"

	"alumet/api"
	"alumet/control"
	"alumet/naming"
	"alumet/pipeline"
	"alumet/plugin"
	"alumet/registry"
	"alumet/trigger"
)

// elementContext is the plugin.BuildContext handed to a plugin's element
// builders, scoped to the plugin that owns them.
type elementContext struct {
	metrics *registry.Registry
	plugin  naming.PluginName
}

func (c elementContext) MetricByName(name string) (api.Metric, bool) {
	return c.metrics.ByName(name)
}

func (c elementContext) ElementName(kind naming.ElementKind, name string) naming.ElementName {
	return naming.ElementName{Kind: kind, Plugin: c.plugin, Element: name}
}

// StartHandle adapts a pipeline.Pipeline into the plugin.StartHandle a
// plugin's Start method uses to register its elements. One StartHandle
// is built per plugin, scoping its control-plane handle and the plugin
// name baked into every element it registers.
type StartHandle struct {
	pipe   *pipeline.Pipeline
	plugin naming.PluginName
	ctrl   *control.ScopedHandle
}

// NewStartHandle returns a StartHandle that registers elements under
// pluginName, backed by pipe.
func NewStartHandle(pipe *pipeline.Pipeline, pluginName naming.PluginName) *StartHandle {
	var ctrl *control.ScopedHandle
	if anon := pipe.Control(); anon != nil {
		ctrl = anon.Scoped(pluginName)
	}
	return &StartHandle{pipe: pipe, plugin: pluginName, ctrl: ctrl}
}

func (h *StartHandle) Metrics() *registry.Registry    { return h.pipe.Metrics() }
func (h *StartHandle) Control() *control.ScopedHandle { return h.ctrl }

func (h *StartHandle) AddSource(builder plugin.SourceBuilder) {
	ctx := elementContext{metrics: h.pipe.Metrics(), plugin: h.plugin}
	name, source, hint, err := builder(ctx)
	if err != nil {
		panic(fmt.Sprintf("agent: plugin %s: build source: %v", h.plugin, err))
	}
	spec, ok := hint.(trigger.Spec)
	if !ok {
		panic(fmt.Sprintf("agent: plugin %s: source %s: builder returned a TriggerHint that is not a trigger.Spec", h.plugin, name))
	}
	h.pipe.AddSource(naming.NewSourceName(h.plugin, name), source, spec)
}

func (h *StartHandle) AddAutonomousSource(name string, source plugin.AutonomousSource) {
	h.pipe.AddAutonomousSource(string(h.plugin)+"/"+name, source)
}

func (h *StartHandle) AddTransform(builder plugin.TransformBuilder) {
	ctx := elementContext{metrics: h.pipe.Metrics(), plugin: h.plugin}
	name, transform, err := builder(ctx)
	if err != nil {
		panic(fmt.Sprintf("agent: plugin %s: build transform: %v", h.plugin, err))
	}
	if err := h.pipe.AddTransform(naming.NewTransformName(h.plugin, name), transform); err != nil {
		panic(fmt.Sprintf("agent: plugin %s: register transform %s: %v", h.plugin, name, err))
	}
}

func (h *StartHandle) AddOutput(builder plugin.OutputBuilder) {
	ctx := elementContext{metrics: h.pipe.Metrics(), plugin: h.plugin}
	name, output, err := builder(ctx)
	if err != nil {
		panic(fmt.Sprintf("agent: plugin %s: build output: %v", h.plugin, err))
	}
	h.pipe.AddOutput(naming.NewOutputName(h.plugin, name), output)
}

var _ plugin.StartHandle = (*StartHandle)(nil)
