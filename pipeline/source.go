package pipeline

import (
	"context"
	"fmt"
	"time"

	"alumet/api"
	"alumet/control"
	"alumet/internal/telemetry/logging"
	"alumet/naming"
	"alumet/plugin"
	"alumet/trigger"
	"alumet/versioned"
)

// BackpressurePolicy selects what a source task does when the channel to
// the transform stage is full.
type BackpressurePolicy int

const (
	// FatalOnFull is the default: a full channel is treated as a fatal
	// error for that source's task.
	FatalOnFull BackpressurePolicy = iota
	// DropOldest discards the oldest buffered batch instead of failing,
	// trading the "every batch reaches a transform" guarantee for
	// liveness on sources whose data is not loss-sensitive.
	DropOldest
)

type sourceTaskConfig struct {
	state control.TaskState
}

// sourceTask drives one managed Source according to its trigger.Spec,
// pushing measurement buffers onto out.
type sourceTask struct {
	name   naming.SourceName
	source plugin.Source
	log    logging.Logger
	out    chan *api.MeasurementBuffer
	policy BackpressurePolicy

	triggerCell *versioned.Versioned[trigger.Spec]
	configCell  *versioned.Versioned[sourceTaskConfig]
	triggerNow  chan struct{}
}

func newSourceTask(name naming.SourceName, source plugin.Source, spec trigger.Spec, out chan *api.MeasurementBuffer, policy BackpressurePolicy, log logging.Logger) *sourceTask {
	return &sourceTask{
		name:        name,
		source:      source,
		log:         log,
		out:         out,
		policy:      policy,
		triggerCell: versioned.New(spec),
		configCell:  versioned.New(sourceTaskConfig{state: control.StateRun}),
		triggerNow:  make(chan struct{}, 1),
	}
}

func (t *sourceTask) reconfigureTrigger(spec trigger.Spec) {
	t.triggerCell.Set(spec)
}

// requestTriggerNow asks the task's own goroutine to poll and deliver
// once, outside its regular schedule. Non-blocking: a trigger already
// pending is not duplicated.
func (t *sourceTask) requestTriggerNow() {
	select {
	case t.triggerNow <- struct{}{}:
	default:
	}
}

func (t *sourceTask) setState(state control.TaskState) {
	t.configCell.Update(func(c sourceTaskConfig) sourceTaskConfig {
		c.state = state
		return c
	})
}

// run executes the polling loop until ctx is cancelled or the task is
// told to stop. It never returns an error for a CanRetry poll failure; it
// only returns when the task is done (ctx cancelled, stopped, or a fatal
// poll error).
func (t *sourceTask) run(ctx context.Context) error {
	spec, _ := t.triggerCell.Read()

	if spec.Manual {
		return t.runManual(ctx)
	}
	return t.runInterval(ctx, spec)
}

func (t *sourceTask) runInterval(ctx context.Context, spec trigger.Spec) error {
	if spec.RealtimePriority {
		if err := trigger.ApplyRealtimePriority(); err != nil {
			t.log.WarnCtx(ctx, "could not raise scheduling priority", "source", t.name.String(), "err", err.Error())
		}
	}

	ticker := time.NewTicker(spec.PollInterval)
	defer ticker.Stop()

	buf := api.NewMeasurementBuffer(8)
	round := 0

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.configCell.Changed():
			cfg, _ := t.configCell.Read()
			switch cfg.state {
			case control.StatePause:
				// Keep looping without polling: drain the ticker so we
				// don't build up a backlog of fired ticks while paused.
				select {
				case <-ticker.C:
				default:
				}
				continue
			case control.StateRunDiscard:
				// Resume, but throw away anything buffered since the
				// last flush: the caller asked to see only fresh data.
				buf = api.NewMeasurementBuffer(8)
				round = 0
				continue
			case control.StateStopNow:
				return nil
			case control.StateStopFinish:
				if buf.Len() > 0 {
					if err := t.deliver(ctx, buf); err != nil {
						return err
					}
				}
				return nil
			}
		case <-t.triggerCell.Changed():
			newSpec, _ := t.triggerCell.Read()
			ticker.Stop()
			ticker = time.NewTicker(newSpec.PollInterval)
			spec = newSpec
		case <-t.triggerNow:
			cfg, _ := t.configCell.Read()
			if cfg.state == control.StateStopNow {
				continue
			}
			if err := t.source.Poll(ctx, buf); err != nil {
				if pe, ok := err.(*PollError); ok && pe.IsFatal() {
					return fmt.Errorf("source %s: fatal poll error: %w", t.name, err)
				}
				t.log.WarnCtx(ctx, "non-fatal poll error", "source", t.name.String(), "err", err.Error())
			}
			if err := t.deliver(ctx, buf); err != nil {
				return fmt.Errorf("source %s: %w", t.name, err)
			}
			buf = api.NewMeasurementBuffer(8)
		case <-ticker.C:
			cfg, _ := t.configCell.Read()
			if cfg.state == control.StatePause {
				continue
			}
			if cfg.state == control.StateStopNow {
				return nil
			}
			if err := t.source.Poll(ctx, buf); err != nil {
				if pe, ok := err.(*PollError); ok && pe.IsFatal() {
					return fmt.Errorf("source %s: fatal poll error: %w", t.name, err)
				}
				t.log.WarnCtx(ctx, "non-fatal poll error", "source", t.name.String(), "err", err.Error())
			}
			round++
			if round%spec.FlushRounds == 0 {
				if err := t.deliver(ctx, buf); err != nil {
					return fmt.Errorf("source %s: %w", t.name, err)
				}
				buf = api.NewMeasurementBuffer(8)
			}
		}
	}
}

func (t *sourceTask) runManual(ctx context.Context) error {
	buf := api.NewMeasurementBuffer(8)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.triggerNow:
			cfg, _ := t.configCell.Read()
			if cfg.state == control.StateStopNow {
				continue
			}
			if err := t.source.Poll(ctx, buf); err != nil {
				if pe, ok := err.(*PollError); ok && pe.IsFatal() {
					return fmt.Errorf("source %s: fatal poll error: %w", t.name, err)
				}
				t.log.WarnCtx(ctx, "non-fatal poll error", "source", t.name.String(), "err", err.Error())
			}
			if err := t.deliver(ctx, buf); err != nil {
				return fmt.Errorf("source %s: %w", t.name, err)
			}
			buf = api.NewMeasurementBuffer(8)
		case <-t.configCell.Changed():
			cfg, _ := t.configCell.Read()
			switch cfg.state {
			case control.StateRunDiscard:
				buf = api.NewMeasurementBuffer(8)
			case control.StateStopNow:
				return nil
			case control.StateStopFinish:
				if buf.Len() > 0 {
					if err := t.deliver(ctx, buf); err != nil {
						return err
					}
				}
				return nil
			}
		}
	}
}

// deliver attempts to push buf onto the transform channel according to
// the task's BackpressurePolicy. Under FatalOnFull (the default) a full
// channel is returned as an error rather than silently blocking or
// dropping data, matching the documented default policy.
func (t *sourceTask) deliver(ctx context.Context, buf *api.MeasurementBuffer) error {
	select {
	case t.out <- buf:
		return nil
	default:
	}
	switch t.policy {
	case DropOldest:
		select {
		case <-t.out:
		default:
		}
		select {
		case t.out <- buf:
			return nil
		default:
			return fmt.Errorf("source %s: channel still full after dropping oldest batch", t.name)
		}
	default:
		return fmt.Errorf("source %s: source->transform channel full", t.name)
	}
}

// autonomousTask runs a plugin.AutonomousSource on its own goroutine,
// forwarding whatever it emits onto the shared source->transform channel
// under the same backpressure policy a managed sourceTask uses.
type autonomousTask struct {
	name   string
	source plugin.AutonomousSource
	out    chan *api.MeasurementBuffer
	policy BackpressurePolicy
	log    logging.Logger
}

func newAutonomousTask(name string, source plugin.AutonomousSource, out chan *api.MeasurementBuffer, policy BackpressurePolicy, log logging.Logger) *autonomousTask {
	return &autonomousTask{name: name, source: source, out: out, policy: policy, log: log}
}

func (t *autonomousTask) run(ctx context.Context) error {
	return t.source.Run(ctx, func(buf *api.MeasurementBuffer) {
		if err := t.deliverAutonomous(ctx, buf); err != nil {
			t.log.WarnCtx(ctx, "autonomous source dropped a buffer", "source", t.name, "err", err.Error())
		}
	})
}

func (t *autonomousTask) deliverAutonomous(ctx context.Context, buf *api.MeasurementBuffer) error {
	select {
	case t.out <- buf:
		return nil
	default:
	}
	switch t.policy {
	case DropOldest:
		select {
		case <-t.out:
		default:
		}
		select {
		case t.out <- buf:
			return nil
		default:
			return fmt.Errorf("autonomous source %s: channel still full after dropping oldest batch", t.name)
		}
	default:
		return fmt.Errorf("autonomous source %s: source->transform channel full", t.name)
	}
}
