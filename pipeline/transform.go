package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"

	"alumet/api"
	"alumet/internal/broadcast"
	"alumet/internal/telemetry/logging"
	"alumet/naming"
	"alumet/plugin"
	"alumet/registry"
)

// maxTransforms bounds the transform stage's enabled-bitset to a single
// uint64, avoiding an allocation on the per-batch hot path.
const maxTransforms = 64

type namedTransform struct {
	name      naming.TransformName
	transform plugin.Transform
}

// transformStage runs every registered transform, in registration order,
// over each batch that arrives from any source, then publishes the
// mutated batch to every output.
type transformStage struct {
	log     logging.Logger
	metrics registry.Reader
	in      <-chan *api.MeasurementBuffer
	out     *broadcast.Broadcaster[*api.MeasurementBuffer]

	transforms []namedTransform
	// enabled is a bitset: bit i is 1 if transforms[i] runs. Read/written
	// with atomics so a control message can flip one transform on or off
	// without the stage pausing between batches.
	enabled atomic.Uint64
}

func newTransformStage(transforms []namedTransform, in <-chan *api.MeasurementBuffer, out *broadcast.Broadcaster[*api.MeasurementBuffer], metrics registry.Reader, log logging.Logger) (*transformStage, error) {
	if len(transforms) > maxTransforms {
		return nil, fmt.Errorf("transform stage: %d transforms exceeds the %d-transform limit", len(transforms), maxTransforms)
	}
	s := &transformStage{
		log:        log,
		metrics:    metrics,
		in:         in,
		out:        out,
		transforms: transforms,
	}
	s.enabled.Store(^uint64(0) >> (64 - len(transforms)))
	return s, nil
}

// setEnabled flips whether the transform at index i runs.
func (s *transformStage) setEnabled(i int, on bool) {
	if i < 0 || i >= len(s.transforms) {
		return
	}
	for {
		cur := s.enabled.Load()
		var next uint64
		if on {
			next = cur | (1 << uint(i))
		} else {
			next = cur &^ (1 << uint(i))
		}
		if s.enabled.CompareAndSwap(cur, next) {
			return
		}
	}
}

// run applies every enabled transform, in order, to each batch as it
// arrives, then broadcasts the result. It returns on ctx cancellation,
// the input channel closing, or the first Fatal transform error.
func (s *transformStage) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case buf, ok := <-s.in:
			if !ok {
				return nil
			}
			if err := s.apply(ctx, buf); err != nil {
				return err
			}
			s.out.Send(buf)
		}
	}
}

func (s *transformStage) apply(ctx context.Context, buf *api.MeasurementBuffer) error {
	bits := s.enabled.Load()
	for i, t := range s.transforms {
		if bits&(1<<uint(i)) == 0 {
			continue
		}
		if err := t.transform.Apply(ctx, buf, s.metrics); err != nil {
			if te, ok := err.(*TransformError); ok && te.IsFatal() {
				return fmt.Errorf("transform %s: fatal error: %w", t.name, err)
			}
			s.log.WarnCtx(ctx, "non-fatal transform error", "transform", t.name.String(), "err", err.Error())
		}
	}
	return nil
}
