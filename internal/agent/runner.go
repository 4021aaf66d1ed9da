package agent

import (
	"context"

	"alumet/pipeline"
	"alumet/plugin"
)

// StartPlugins drives every plugin registered with r through
// Init, DefaultConfig, Start (building each one's StartHandle against
// pipe), AfterPluginsStart and BeforeOperationBegin, in that order. The
// caller spawns the pipeline immediately after this returns, then calls
// runner.PostPipelineStart and runner.AfterOperationBegin to complete
// the remaining lifecycle phases.
func StartPlugins(ctx context.Context, r *plugin.Runner, pipe *pipeline.Pipeline) error {
	if err := r.InitAll(ctx); err != nil {
		return err
	}
	r.DefaultConfigAll(ctx)
	if err := r.StartAll(ctx, func(p plugin.Plugin) plugin.StartHandle {
		return NewStartHandle(pipe, p.Name())
	}); err != nil {
		return err
	}
	return r.BeforeOperationBegin(ctx)
}
