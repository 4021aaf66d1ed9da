// Package pipeline wires together the metric registry, the control
// plane and the source/transform/output stages into one running
// measurement pipeline.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"alumet/api"
	"alumet/control"
	"alumet/internal/blockingpool"
	"alumet/internal/broadcast"
	"alumet/internal/telemetry/logging"
	"alumet/naming"
	"alumet/plugin"
	"alumet/registry"
	"alumet/trigger"
)

// Config bounds the pipeline's shared channels and worker pool.
type Config struct {
	SourceChannelCapacity int
	OutputBroadcastBuffer int
	BlockingPoolWorkers   int
	BlockingPoolQueue     int
	BackpressurePolicy    BackpressurePolicy
	ControlBufferSize     int
}

// DefaultConfig returns the pipeline's baseline channel and pool sizing.
func DefaultConfig() Config {
	return Config{
		SourceChannelCapacity: 64,
		OutputBroadcastBuffer: outputSubscriberBuffer,
		BlockingPoolWorkers:   4,
		BlockingPoolQueue:     64,
		BackpressurePolicy:    FatalOnFull,
		ControlBufferSize:     64,
	}
}

// Pipeline owns every running source, the single transform stage, every
// running output, the metric registry and the control plane dispatcher.
type Pipeline struct {
	cfg     Config
	log     logging.Logger
	metrics *registry.Registry

	dispatcher *control.Dispatcher
	control    *control.AnonymousHandle

	toTransform chan *api.MeasurementBuffer
	broadcaster *broadcast.Broadcaster[*api.MeasurementBuffer]
	pool        *blockingpool.Pool

	mu         sync.Mutex
	sources    map[naming.SourceName]*sourceTask
	autonomous map[string]*autonomousTask
	outputs    map[naming.OutputName]*outputTask
	names      []naming.TransformName
	stage      *transformStage

	// wgSources/wg/wgStage/wgOutputs are waited on in that order by
	// Shutdown, so a managed source can flush its buffer through a
	// still-running transform stage, and the stage can flush into
	// still-running outputs, before anything downstream is torn down. wg
	// covers autonomous sources, which have no flush-then-stop state of
	// their own and are simply cancelled via autoCancel instead.
	wgSources sync.WaitGroup
	wgStage   sync.WaitGroup
	wgOutputs sync.WaitGroup
	wg        sync.WaitGroup
	cancel    context.CancelFunc
	// autoCancel stops only autonomous sources (which have no
	// flush-then-stop state of their own), so Shutdown can wait for them
	// to fully stop sending before it closes toTransform, without
	// cancelling the transform stage/outputs/dispatcher at the same time.
	autoCancel context.CancelFunc
}

// New builds an idle Pipeline. Call AddSource/AddTransform/AddOutput to
// populate it, then Start to begin running.
func New(cfg Config, log logging.Logger) *Pipeline {
	if log == nil {
		log = logging.New(nil)
	}
	return &Pipeline{
		cfg:         cfg,
		log:         log,
		metrics:     registry.New(),
		toTransform: make(chan *api.MeasurementBuffer, cfg.SourceChannelCapacity),
		broadcaster: broadcast.New[*api.MeasurementBuffer](),
		pool:        blockingpool.New(cfg.BlockingPoolWorkers, cfg.BlockingPoolQueue),
		sources:     make(map[naming.SourceName]*sourceTask),
		autonomous:  make(map[string]*autonomousTask),
		outputs:     make(map[naming.OutputName]*outputTask),
	}
}

// Metrics returns the pipeline's metric registry.
func (p *Pipeline) Metrics() *registry.Registry { return p.metrics }

// AddSource registers a managed source driven by spec, reporting into
// the transform stage via the pipeline's shared channel.
func (p *Pipeline) AddSource(name naming.SourceName, source plugin.Source, spec trigger.Spec) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sources[name] = newSourceTask(name, source, spec, p.toTransform, p.cfg.BackpressurePolicy, p.log)
}

// AddAutonomousSource registers a source that drives its own polling
// loop; the pipeline only runs it as a goroutine and forwards what it
// emits into the transform stage.
func (p *Pipeline) AddAutonomousSource(name string, source plugin.AutonomousSource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.autonomous[name] = newAutonomousTask(name, source, p.toTransform, p.cfg.BackpressurePolicy, p.log)
}

// AddTransform registers a transform, appended to the ordered list
// applied to every batch.
func (p *Pipeline) AddTransform(name naming.TransformName, t plugin.Transform) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.names) >= maxTransforms {
		return fmt.Errorf("pipeline: cannot register transform %s: %d transforms already registered", name, maxTransforms)
	}
	p.names = append(p.names, name)
	if p.stage == nil {
		p.stage = &transformStage{log: p.log, metrics: p.metrics, in: p.toTransform, out: p.broadcaster}
	}
	p.stage.transforms = append(p.stage.transforms, namedTransform{name: name, transform: t})
	p.stage.enabled.Store(^uint64(0) >> (64 - len(p.stage.transforms)))
	return nil
}

// AddOutput registers an output subscribed to the transform stage's
// broadcast channel.
func (p *Pipeline) AddOutput(name naming.OutputName, out plugin.Output) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outputs[name] = newOutputTask(name, out, p.metrics, p.broadcaster, p.pool, p.log)
}

// Start spawns every registered source, the transform stage, every
// registered output, and the control plane dispatcher, all racing ctx's
// cancellation.
func (p *Pipeline) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.dispatcher, p.control = control.NewDispatcher(runCtx, p.cfg.ControlBufferSize)
	p.dispatcher.Register(control.KindSource, &sourceConsumer{p: p})
	p.dispatcher.Register(control.KindTransform, &transformConsumer{p: p})
	p.dispatcher.Register(control.KindOutput, &outputConsumer{p: p})

	if p.stage == nil {
		p.stage = &transformStage{log: p.log, metrics: p.metrics, in: p.toTransform, out: p.broadcaster}
	}

	p.mu.Lock()
	sources := make([]*sourceTask, 0, len(p.sources))
	for _, s := range p.sources {
		sources = append(sources, s)
	}
	outputs := make([]*outputTask, 0, len(p.outputs))
	for _, o := range p.outputs {
		outputs = append(outputs, o)
	}
	autonomous := make([]*autonomousTask, 0, len(p.autonomous))
	for _, a := range p.autonomous {
		autonomous = append(autonomous, a)
	}
	p.mu.Unlock()

	p.wgStage.Add(1)
	go func() {
		defer p.wgStage.Done()
		if err := p.stage.run(runCtx); err != nil {
			p.log.ErrorCtx(runCtx, "transform stage stopped", "err", err.Error())
			p.cancel()
		}
	}()

	for _, s := range sources {
		s := s
		p.wgSources.Add(1)
		go func() {
			defer p.wgSources.Done()
			if err := s.run(runCtx); err != nil {
				p.log.ErrorCtx(runCtx, "source task stopped", "source", s.name.String(), "err", err.Error())
			}
		}()
	}
	for _, o := range outputs {
		o := o
		p.wgOutputs.Add(1)
		go func() {
			defer p.wgOutputs.Done()
			if err := o.run(runCtx); err != nil {
				p.log.ErrorCtx(runCtx, "output task stopped", "output", o.name.String(), "err", err.Error())
			}
		}()
	}
	autoCtx, autoCancel := context.WithCancel(runCtx)
	p.autoCancel = autoCancel
	for _, a := range autonomous {
		a := a
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			if err := a.run(autoCtx); err != nil {
				p.log.ErrorCtx(autoCtx, "autonomous source stopped", "source", a.name, "err", err.Error())
			}
		}()
	}
	return nil
}

// Control returns a handle plugins and the CLI use to reconfigure the
// running pipeline.
func (p *Pipeline) Control() *control.AnonymousHandle { return p.control }

// Shutdown drains the pipeline instead of cutting it off mid-batch: every
// managed source is asked to flush its buffer and stop, every autonomous
// source is cancelled, and only once both kinds of producer have fully
// stopped does it close the channel into the transform stage, letting the
// stage drain whatever is still queued. Only once the stage has stopped
// broadcasting does it close the outputs' subscriptions, letting each one
// drain its own backlog. Only then does it cancel what's left (the
// control dispatcher) and wait for that too.
func (p *Pipeline) Shutdown() {
	p.mu.Lock()
	sources := make([]*sourceTask, 0, len(p.sources))
	for _, s := range p.sources {
		sources = append(sources, s)
	}
	p.mu.Unlock()

	for _, s := range sources {
		s.setState(control.StateStopFinish)
	}
	p.wgSources.Wait()

	// Autonomous sources have no flush-then-stop state of their own, so
	// they are simply cancelled; wait for them too before closing
	// toTransform; otherwise one could still be sending when it closes.
	if p.autoCancel != nil {
		p.autoCancel()
	}
	p.wg.Wait()

	// Every producer has stopped sending; closing the channel lets the
	// transform stage drain whatever is still queued and return on its
	// own, instead of racing a ctx cancellation that could drop it.
	close(p.toTransform)
	p.wgStage.Wait()

	// The stage has stopped broadcasting; closing each output's
	// subscription still lets it read whatever was already buffered for
	// it before it sees the channel close.
	p.broadcaster.Close()
	p.wgOutputs.Wait()

	if p.cancel != nil {
		p.cancel()
	}
	if p.control != nil {
		p.control.Shutdown()
	}
	p.pool.Close()
}

type sourceConsumer struct{ p *Pipeline }

func (c *sourceConsumer) HandleControl(msg control.Message) {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	for name, s := range c.p.sources {
		if !msg.Selector.Matches(name.Generic()) {
			continue
		}
		if msg.SetTrigger != nil {
			s.reconfigureTrigger(*msg.SetTrigger)
		}
		if msg.TriggerNow {
			s.requestTriggerNow()
		}
		if msg.TriggerNow || msg.SetTrigger != nil {
			continue
		}
		s.setState(msg.State)
	}
}

type outputConsumer struct{ p *Pipeline }

func (c *outputConsumer) HandleControl(msg control.Message) {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	for name, o := range c.p.outputs {
		if !msg.Selector.Matches(name.Generic()) {
			continue
		}
		o.setState(msg.OutputState)
	}
}

type transformConsumer struct{ p *Pipeline }

func (c *transformConsumer) HandleControl(msg control.Message) {
	if msg.SetTransformEnabled == nil || c.p.stage == nil {
		return
	}
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	for i, name := range c.p.names {
		if msg.Selector.Matches(name.Generic()) {
			c.p.stage.setEnabled(i, *msg.SetTransformEnabled)
		}
	}
}
