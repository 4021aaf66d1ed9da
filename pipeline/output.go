package pipeline

import (
	"context"
	"fmt"

	"alumet/api"
	"alumet/control"
	"alumet/internal/blockingpool"
	"alumet/internal/broadcast"
	"alumet/internal/telemetry/logging"
	"alumet/naming"
	"alumet/plugin"
	"alumet/registry"
	"alumet/versioned"
)

type outputTaskConfig struct {
	state   control.OutputState
	receive bool
}

// outputTask drives one Output, subscribed to the transform stage's
// broadcast channel. A blocking Output's Write calls are offloaded to
// pool so the task's own select loop never blocks on I/O.
type outputTask struct {
	name    naming.OutputName
	output  plugin.Output
	log     logging.Logger
	metrics registry.Reader
	source  *broadcast.Broadcaster[*api.MeasurementBuffer]
	pool    *blockingpool.Pool

	configCell *versioned.Versioned[outputTaskConfig]
}

func newOutputTask(name naming.OutputName, output plugin.Output, metrics registry.Reader, source *broadcast.Broadcaster[*api.MeasurementBuffer], pool *blockingpool.Pool, log logging.Logger) *outputTask {
	return &outputTask{
		name:       name,
		output:     output,
		log:        log,
		metrics:    metrics,
		source:     source,
		pool:       pool,
		configCell: versioned.New(outputTaskConfig{state: control.OutputRun, receive: true}),
	}
}

func (t *outputTask) setState(state control.OutputState) {
	t.configCell.Update(func(c outputTaskConfig) outputTaskConfig {
		c.state = state
		if state == control.OutputStop {
			c.receive = false
		} else {
			c.receive = true
		}
		return c
	})
}

const outputSubscriberBuffer = 4

// run receives broadcast batches until ctx is cancelled or the task is
// stopped. It honors Run/Pause/Stop/RunDiscard transitions sent through
// its versioned config cell; a pending Stop always wins over a
// concurrently requested RunDiscard (see control.OutputState).
func (t *outputTask) run(ctx context.Context) error {
	recv := t.source.Subscribe(outputSubscriberBuffer)
	defer recv.Unsubscribe()

	for {
		cfg, _ := t.configCell.Read()
		if cfg.state == control.OutputStop {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-t.configCell.Changed():
			cfg, _ := t.configCell.Read()
			switch cfg.state {
			case control.OutputStop:
				return nil
			case control.OutputRunDiscard:
				recv.Unsubscribe()
				recv = t.source.Subscribe(outputSubscriberBuffer)
				t.setRunAfterDiscard()
			}
			continue
		case buf, ok := <-recv.C():
			if !ok {
				return nil
			}
			if cfg.state == control.OutputPause || !cfg.receive {
				continue
			}
			if lagged := recv.TakeLagged(); lagged > 0 {
				t.log.WarnCtx(ctx, "output lagged, dropped buffered batches", "output", t.name.String(), "dropped", lagged)
			}
			if err := t.write(ctx, buf); err != nil {
				if we, ok := err.(*WriteError); ok && we.IsFatal() {
					return fmt.Errorf("output %s: fatal write error: %w", t.name, err)
				}
				t.log.WarnCtx(ctx, "non-fatal write error", "output", t.name.String(), "err", err.Error())
			}
		}
	}
}

// setRunAfterDiscard clears the RunDiscard marker back to Run once the
// receiver swap has happened, unless a Stop raced it in the meantime (in
// which case the CAS simply fails and the stop wins).
func (t *outputTask) setRunAfterDiscard() {
	for {
		cfg, version := t.configCell.Read()
		if cfg.state != control.OutputRunDiscard {
			return
		}
		if _, ok := t.configCell.UpdateIfChanged(version, func(current outputTaskConfig) outputTaskConfig {
			current.state = control.OutputRun
			return current
		}); ok {
			return
		}
	}
}

func (t *outputTask) write(ctx context.Context, buf *api.MeasurementBuffer) error {
	if _, ok := t.output.(plugin.BlockingOutput); ok {
		return t.pool.Submit(func() error {
			return t.output.Write(ctx, buf, t.metrics)
		})
	}
	return t.output.Write(ctx, buf, t.metrics)
}
