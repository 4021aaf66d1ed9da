// Package aggregation folds several measurement points sharing the same
// metric, resource and consumer into a single combined point, over
// fixed-size time windows.
package aggregation

import (
	"context"
	"fmt"
	"time"

	"alumet/api"
	"alumet/pipeline"
	"alumet/registry"
)

// Function selects how the points buffered in one window are combined.
type Function int

const (
	Sum Function = iota
	Mean
)

func (f Function) String() string {
	if f == Mean {
		return "mean"
	}
	return "sum"
}

// combine reduces values, all of which must share the same ValueType, into
// a single value. Mixing F64 and U64 values in one window is an error, as
// it is in the transform this one is grounded on.
func (f Function) combine(values []api.AttributeValue) (api.AttributeValue, error) {
	if len(values) == 0 {
		return api.AttributeValue{}, fmt.Errorf("aggregation: %s of an empty window", f)
	}
	kind := values[0].Type
	if kind != api.TypeF64 && kind != api.TypeU64 {
		return api.AttributeValue{}, fmt.Errorf("aggregation: %s: value type %v cannot be aggregated", f, kind)
	}
	var sumF64 float64
	var sumU64 uint64
	for _, v := range values {
		if v.Type != kind {
			return api.AttributeValue{}, fmt.Errorf("aggregation: %s: mixed value types in one window", f)
		}
		if kind == api.TypeF64 {
			sumF64 += v.F64
		} else {
			sumU64 += v.U64
		}
	}
	if f == Sum {
		if kind == api.TypeF64 {
			return api.F64Value(sumF64), nil
		}
		return api.U64Value(sumU64), nil
	}
	// Mean
	if kind == api.TypeF64 {
		return api.F64Value(sumF64 / float64(len(values))), nil
	}
	return api.U64Value(sumU64 / uint64(len(values))), nil
}

type windowKey struct {
	metric   api.RawMetricID
	resource api.Resource
	consumer api.ResourceConsumer
}

// Transform buffers every point whose metric is tracked, keyed by
// (metric, resource, consumer), and emits one combined point per key
// once that key's window has been open for at least Interval. Points
// whose metric is not tracked pass through unchanged.
type Transform struct {
	interval time.Duration
	fn       Function
	tracked  map[api.RawMetricID]bool

	buffered map[windowKey][]api.MeasurementPoint
	opened   map[windowKey]time.Time
	now      func() time.Time
}

// New returns a Transform that aggregates points for the given metrics
// using fn, closing and emitting a window every interval.
func New(interval time.Duration, fn Function, metrics []api.RawMetricID) *Transform {
	tracked := make(map[api.RawMetricID]bool, len(metrics))
	for _, m := range metrics {
		tracked[m] = true
	}
	return &Transform{
		interval: interval,
		fn:       fn,
		tracked:  tracked,
		buffered: make(map[windowKey][]api.MeasurementPoint),
		opened:   make(map[windowKey]time.Time),
		now:      time.Now,
	}
}

func (t *Transform) Apply(_ context.Context, buf *api.MeasurementBuffer, _ registry.Reader) error {
	now := t.now()
	untracked := make([]api.MeasurementPoint, 0, buf.Len())
	for _, p := range buf.Points() {
		if !t.tracked[p.Metric] {
			untracked = append(untracked, p)
			continue
		}
		key := windowKey{metric: p.Metric, resource: p.Resource, consumer: p.Consumer}
		if _, open := t.opened[key]; !open {
			t.opened[key] = now
		}
		t.buffered[key] = append(t.buffered[key], p)
	}

	buf.Retain(func(api.MeasurementPoint) bool { return false })
	for _, p := range untracked {
		buf.Push(p)
	}

	for key, opened := range t.opened {
		if now.Sub(opened) < t.interval {
			continue
		}
		points := t.buffered[key]
		delete(t.buffered, key)
		delete(t.opened, key)
		if len(points) == 0 {
			continue
		}
		values := make([]api.AttributeValue, len(points))
		for i, p := range points {
			values[i] = p.Value
		}
		combined, err := t.fn.combine(values)
		if err != nil {
			return pipeline.FatalTransformError(fmt.Errorf("aggregation: window for metric %d, resource %s: %w", key.metric, key.resource, err))
		}
		buf.Push(api.MeasurementPoint{
			Metric:    key.metric,
			Timestamp: now,
			Value:     combined,
			Resource:  key.resource,
			Consumer:  key.consumer,
		}.WithAttr("aggregation", api.StrValue(t.fn.String())))
	}
	return nil
}
