// Package registry implements the metric registry: the process-wide table
// of known metrics, their units and value types, shared read-mostly
// between the transform stage, the outputs, and any plugin that registers
// new metrics while the pipeline is already running.
package registry

import (
	"fmt"
	"sync"

	"alumet/api"
)

// Registry is safe for concurrent use. Registration is rare relative to
// lookups, so it is optimized for readers.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]api.RawMetricID
	metrics map[api.RawMetricID]api.Metric
	nextID  api.RawMetricID
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		byName:  make(map[string]api.RawMetricID),
		metrics: make(map[api.RawMetricID]api.Metric),
	}
}

// Register adds a new metric, or returns the existing id if a metric with
// the same name and a compatible definition (same unit and value type) is
// already registered. It returns api.ErrMetricNameConflict if the existing
// definition differs.
func (r *Registry) Register(name string, unit api.Unit, valueType api.ValueType, description string) (api.RawMetricID, error) {
	r.mu.RLock()
	if id, ok := r.byName[name]; ok {
		existing := r.metrics[id]
		r.mu.RUnlock()
		if existing.Unit != unit || existing.ValueType != valueType {
			return 0, fmt.Errorf("%w: %s", api.ErrMetricNameConflict, name)
		}
		return id, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	// Re-check under the write lock: another goroutine may have
	// registered the same name between the RUnlock above and this Lock.
	if id, ok := r.byName[name]; ok {
		existing := r.metrics[id]
		if existing.Unit != unit || existing.ValueType != valueType {
			return 0, fmt.Errorf("%w: %s", api.ErrMetricNameConflict, name)
		}
		return id, nil
	}

	id := r.nextID
	r.nextID++
	m := api.Metric{ID: id, Name: name, Unit: unit, ValueType: valueType, Description: description}
	r.byName[name] = id
	r.metrics[id] = m
	return id, nil
}

// RegisterTyped registers name the same way Register does, then wraps
// the resulting id as a api.TypedMetricID[T]. T must match valueType, or
// this returns api.ErrMetricValueTypeMismatch instead of registering
// anything inconsistent.
func RegisterTyped[T api.MetricValue](r *Registry, name string, unit api.Unit, valueType api.ValueType, description string) (api.TypedMetricID[T], error) {
	if _, err := api.NewTypedMetricID[T](api.Metric{ValueType: valueType}); err != nil {
		return api.TypedMetricID[T]{}, err
	}
	id, err := r.Register(name, unit, valueType, description)
	if err != nil {
		return api.TypedMetricID[T]{}, err
	}
	m, _ := r.ByID(id)
	return api.NewTypedMetricID[T](m)
}

// ByName looks up a metric by its registered name.
func (r *Registry) ByName(name string) (api.Metric, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	if !ok {
		return api.Metric{}, false
	}
	return r.metrics[id], true
}

// ByID looks up a metric by id.
func (r *Registry) ByID(id api.RawMetricID) (api.Metric, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.metrics[id]
	return m, ok
}

// All returns a snapshot of every registered metric.
func (r *Registry) All() []api.Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]api.Metric, 0, len(r.metrics))
	for _, m := range r.metrics {
		out = append(out, m)
	}
	return out
}

// Reader is a read-only view of a Registry, handed to transforms and
// outputs so they cannot register new metrics behind the pipeline's back.
type Reader interface {
	ByName(name string) (api.Metric, bool)
	ByID(id api.RawMetricID) (api.Metric, bool)
	All() []api.Metric
}

var _ Reader = (*Registry)(nil)
