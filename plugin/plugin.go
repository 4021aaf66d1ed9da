// Package plugin defines the contract external plugins implement, and the
// phased lifecycle the agent runner drives them through.
package plugin

import (
	"context"

	"alumet/api"
	"alumet/control"
	"alumet/naming"
	"alumet/registry"
)

// Source polls for measurements. Implementations are driven by the source
// scheduler according to a trigger.Spec.
type Source interface {
	Poll(ctx context.Context, out *api.MeasurementBuffer) error
}

// AutonomousSource manages its own polling loop; the scheduler only runs
// it as a goroutine and waits for it to return.
type AutonomousSource interface {
	Run(ctx context.Context, emit func(*api.MeasurementBuffer)) error
}

// Transform mutates a batch of measurements in place before it reaches the
// outputs.
type Transform interface {
	Apply(ctx context.Context, buf *api.MeasurementBuffer, metrics registry.Reader) error
}

// Output writes a batch of measurements to an external sink. By default
// an Output's Write runs inline on its output task's goroutine; an
// Output that also implements BlockingOutput has its Write calls
// offloaded to the pipeline's blocking worker pool instead, so a slow
// or blocking sink (a file, a socket write) never stalls that task's
// select loop.
type Output interface {
	Write(ctx context.Context, buf *api.MeasurementBuffer, metrics registry.Reader) error
}

// BlockingOutput tags an Output whose Write may block on I/O, so the
// pipeline runs it on a dedicated blocking thread pool instead of
// inline on the output task's own goroutine.
type BlockingOutput interface {
	Output
	Blocking()
}

// BuildContext is handed to element builder functions so they can look up
// metrics and obtain a namespaced name for the element they create.
type BuildContext interface {
	MetricByName(name string) (api.Metric, bool)
	ElementName(kind naming.ElementKind, name string) naming.ElementName
}

// SourceBuilder constructs a named, trigger-driven Source on demand.
type SourceBuilder func(ctx BuildContext) (name string, source Source, trigger TriggerHint, err error)

// TriggerHint carries the trigger.Spec a source wants, deferred to avoid an
// import cycle between plugin and trigger at construction time.
type TriggerHint interface{}

// TransformBuilder constructs a named Transform on demand.
type TransformBuilder func(ctx BuildContext) (name string, transform Transform, err error)

// OutputBuilder constructs a named Output on demand.
type OutputBuilder func(ctx BuildContext) (name string, output Output, err error)

// Plugin is the contract every Alumet plugin implements. Phases run in the
// order declared below; shutdown phases run in reverse.
type Plugin interface {
	Name() naming.PluginName
	Version() string

	// Init performs setup that does not require metrics, the control
	// plane, or other plugins to be ready yet.
	Init(ctx context.Context) error

	// DefaultConfig returns the plugin's configuration defaults, merged
	// with whatever the user's config tree overrides.
	DefaultConfig() map[string]any

	// Start registers this plugin's metrics, sources, transforms and
	// outputs with the running pipeline via handle.
	Start(ctx context.Context, handle StartHandle) error

	// Stop is called in reverse plugin-start order during shutdown.
	Stop(ctx context.Context) error
}

// StartHandle is what a plugin's Start method uses to register its
// elements with the pipeline.
type StartHandle interface {
	Metrics() *registry.Registry
	Control() *control.ScopedHandle
	AddSource(builder SourceBuilder)
	AddAutonomousSource(name string, source AutonomousSource)
	AddTransform(builder TransformBuilder)
	AddOutput(builder OutputBuilder)
}
