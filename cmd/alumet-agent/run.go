package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"alumet/internal/agent"
	"alumet/internal/config"
	"alumet/pipeline"
	"alumet/plugin"
	"alumet/versioned"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the measurement pipeline until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAgent(cmd.Context())
	},
}

// loadedAgent bundles everything bootstrap produces, so run and exec can
// share the same startup and shutdown sequence.
type loadedAgent struct {
	cfg    config.Config
	pipe   *pipeline.Pipeline
	runner *plugin.Runner
	stop   chan struct{}
}

func bootstrap(ctx context.Context) (*loadedAgent, error) {
	log := newLogger()

	cfg, err := config.Load(configPath, overridesWithMax(configOverrides))
	if err != nil {
		return nil, err
	}

	pluginList, err := resolvePlugins(pluginNames, cfg)
	if err != nil {
		return nil, err
	}

	pipeCfg := pipeline.DefaultConfig()
	if cfg.WorkerThreads > 0 {
		pipeCfg.BlockingPoolWorkers = cfg.WorkerThreads
	}
	pipe := pipeline.New(pipeCfg, log)

	runner := plugin.NewRunner(log)
	for _, p := range pluginList {
		runner.Add(p)
	}
	if err := agent.StartPlugins(ctx, runner, pipe); err != nil {
		return nil, err
	}
	// The pipeline gets its own lifetime, independent of ctx: ctx is
	// cancelled the instant a shutdown signal arrives, but a signal must
	// trigger a graceful pipe.Shutdown() (flush, then stop) rather than
	// yank the pipeline's context out from under an in-flight batch.
	if err := pipe.Start(context.Background()); err != nil {
		return nil, err
	}
	if err := runner.PostPipelineStart(ctx); err != nil {
		return nil, err
	}
	if err := runner.AfterOperationBegin(ctx); err != nil {
		return nil, err
	}

	cell := versioned.New(cfg)
	stop := make(chan struct{})
	watcher, err := config.NewWatcher(configPath, overridesWithMax(configOverrides), cell, log)
	if err == nil {
		go watcher.Run(stop)
		go applyConfigReloads(cell, pipe.Control(), stop, log)
	}

	return &loadedAgent{cfg: cfg, pipe: pipe, runner: runner, stop: stop}, nil
}

func (a *loadedAgent) shutdown(ctx context.Context) {
	close(a.stop)
	a.pipe.Shutdown()
	_ = a.runner.StopAll(ctx)
}

// waitForSignal starts a goroutine that waits for SIGINT/SIGTERM, then
// calls cancel; a second signal forces an immediate exit. It returns
// without blocking.
func waitForSignal(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
		<-sigCh
		os.Exit(1)
	}()
}

func runAgent(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	waitForSignal(cancel)

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	<-ctx.Done()
	a.shutdown(context.Background())
	return nil
}
