package plugin

import (
	"context"
	"fmt"

	"alumet/internal/telemetry/logging"
)

// AfterPluginsStarted is an optional hook a plugin can implement to run
// logic that depends on every other plugin's Start having already run
// (for example, a transform that looks up a metric registered by another
// plugin).
type AfterPluginsStarted interface {
	AfterPluginsStart(ctx context.Context) error
}

// PostPipelineStarted is an optional hook run once the source scheduler,
// transform stage and output stage are all live and accepting control
// messages.
type PostPipelineStarted interface {
	PostPipelineStart(ctx context.Context) error
}

// BeforeOperationBegun is an optional hook run after every plugin has
// started (and AfterPluginsStart has run) but before the pipeline spawns
// its source/transform/output goroutines, for setup that must happen
// once all plugins agree on the final set of registered elements but
// must still finish before anything starts running.
type BeforeOperationBegun interface {
	BeforeOperationBegin(ctx context.Context) error
}

// AfterOperationBegun is an optional hook run once the pipeline is fully
// spawned and PostPipelineStart has run on every plugin, marking the
// point the agent is considered live.
type AfterOperationBegun interface {
	AfterOperationBegin(ctx context.Context) error
}

// Runner drives every registered plugin through the lifecycle gates:
// Init, DefaultConfig, Start, AfterPluginsStart, BeforeOperationBegin,
// (the caller spawns the pipeline here), PostPipelineStart,
// AfterOperationBegin; and, in reverse registration order, Stop.
type Runner struct {
	log     logging.Logger
	plugins []Plugin
	started []Plugin
}

// NewRunner returns a Runner that logs lifecycle transitions via log.
func NewRunner(log logging.Logger) *Runner {
	if log == nil {
		log = logging.New(nil)
	}
	return &Runner{log: log}
}

// Add registers a plugin to be driven by subsequent lifecycle calls, in
// registration order.
func (r *Runner) Add(p Plugin) {
	r.plugins = append(r.plugins, p)
}

// DefaultConfigAll runs DefaultConfig on every registered plugin, in
// order, purely to surface each plugin's baseline configuration once
// Init has run. The actual merge of defaults with user overrides happens
// earlier, when the plugin is constructed from its config.Config.Plugins
// entry; regen-config calls DefaultConfig directly on a throwaway
// instance for the same purpose, to write a fresh config file.
func (r *Runner) DefaultConfigAll(ctx context.Context) {
	for _, p := range r.plugins {
		r.log.InfoCtx(ctx, "plugin default config", "plugin", string(p.Name()), "defaults", p.DefaultConfig())
	}
}

// InitAll runs Init on every registered plugin, in order, stopping at the
// first error.
func (r *Runner) InitAll(ctx context.Context) error {
	for _, p := range r.plugins {
		r.log.InfoCtx(ctx, "plugin init", "plugin", string(p.Name()))
		if err := p.Init(ctx); err != nil {
			return fmt.Errorf("plugin %s: init: %w", p.Name(), err)
		}
	}
	return nil
}

// StartAll runs Start on every plugin (building a StartHandle per plugin
// via newHandle), then every plugin's optional AfterPluginsStart hook.
func (r *Runner) StartAll(ctx context.Context, newHandle func(Plugin) StartHandle) error {
	for _, p := range r.plugins {
		r.log.InfoCtx(ctx, "plugin start", "plugin", string(p.Name()))
		if err := p.Start(ctx, newHandle(p)); err != nil {
			return fmt.Errorf("plugin %s: start: %w", p.Name(), err)
		}
		r.started = append(r.started, p)
	}
	for _, p := range r.started {
		if hook, ok := p.(AfterPluginsStarted); ok {
			if err := hook.AfterPluginsStart(ctx); err != nil {
				return fmt.Errorf("plugin %s: after-plugins-start: %w", p.Name(), err)
			}
		}
	}
	return nil
}

// BeforeOperationBegin runs every plugin's optional BeforeOperationBegin
// hook, called after AfterPluginsStart but before the caller spawns the
// pipeline's running tasks.
func (r *Runner) BeforeOperationBegin(ctx context.Context) error {
	for _, p := range r.started {
		if hook, ok := p.(BeforeOperationBegun); ok {
			if err := hook.BeforeOperationBegin(ctx); err != nil {
				return fmt.Errorf("plugin %s: before-operation-begin: %w", p.Name(), err)
			}
		}
	}
	return nil
}

// AfterOperationBegin runs every plugin's optional AfterOperationBegin
// hook, called once PostPipelineStart has run on every plugin.
func (r *Runner) AfterOperationBegin(ctx context.Context) error {
	for _, p := range r.started {
		if hook, ok := p.(AfterOperationBegun); ok {
			if err := hook.AfterOperationBegin(ctx); err != nil {
				return fmt.Errorf("plugin %s: after-operation-begin: %w", p.Name(), err)
			}
		}
	}
	return nil
}

// PostPipelineStart runs every plugin's optional PostPipelineStart hook,
// called once the source/transform/output stages are live.
func (r *Runner) PostPipelineStart(ctx context.Context) error {
	for _, p := range r.started {
		if hook, ok := p.(PostPipelineStarted); ok {
			if err := hook.PostPipelineStart(ctx); err != nil {
				return fmt.Errorf("plugin %s: post-pipeline-start: %w", p.Name(), err)
			}
		}
	}
	return nil
}

// StopAll calls Stop on every started plugin in reverse start order,
// collecting (not short-circuiting on) errors so one plugin's failed
// shutdown does not prevent the others from being asked to stop.
func (r *Runner) StopAll(ctx context.Context) error {
	var firstErr error
	for i := len(r.started) - 1; i >= 0; i-- {
		p := r.started[i]
		r.log.InfoCtx(ctx, "plugin stop", "plugin", string(p.Name()))
		if err := p.Stop(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("plugin %s: stop: %w", p.Name(), err)
		}
	}
	r.started = nil
	return firstErr
}
