package api

import "errors"

// ValueType is the wire/storage type of a metric's measurements.
type ValueType int

const (
	TypeF64 ValueType = iota
	TypeU64
	TypeBool
	TypeStr
)

// RawMetricID identifies a registered Metric within one running pipeline.
// It is only valid for the registry that issued it.
type RawMetricID uint64

// Metric is the full definition of a measured quantity: its name, unit,
// value type and a human-readable description.
type Metric struct {
	ID          RawMetricID
	Name        string
	Unit        Unit
	ValueType   ValueType
	Description string
}

var (
	// ErrMetricNotFound is returned when a lookup by name or id fails.
	ErrMetricNotFound = errors.New("metric not found")
	// ErrMetricNameConflict is returned when registering a metric whose
	// name is already registered with an incompatible definition.
	ErrMetricNameConflict = errors.New("metric name already registered with a different definition")
	// ErrMetricValueTypeMismatch is returned when creating a TypedMetricID
	// for a Go type that does not match the metric's registered ValueType.
	ErrMetricValueTypeMismatch = errors.New("metric value type does not match the requested typed id")
)

// MetricValue is the set of Go types a metric measurement can hold.
type MetricValue interface {
	~float64 | ~uint64 | ~bool | ~string
}

func valueTypeOf[T MetricValue]() ValueType {
	var zero T
	switch any(zero).(type) {
	case float64:
		return TypeF64
	case uint64:
		return TypeU64
	case bool:
		return TypeBool
	case string:
		return TypeStr
	default:
		return TypeF64
	}
}

// TypedMetricID wraps a RawMetricID together with the Go value type its
// measurements are expected to carry. Constructing one checks the
// metric's registered ValueType once, at creation, so call sites that
// only ever see a TypedMetricID never need to re-check it per
// measurement.
type TypedMetricID[T MetricValue] struct {
	raw RawMetricID
}

// NewTypedMetricID wraps metric.ID as a TypedMetricID[T], failing with
// ErrMetricValueTypeMismatch if metric's registered ValueType does not
// match T.
func NewTypedMetricID[T MetricValue](metric Metric) (TypedMetricID[T], error) {
	if metric.ValueType != valueTypeOf[T]() {
		return TypedMetricID[T]{}, ErrMetricValueTypeMismatch
	}
	return TypedMetricID[T]{raw: metric.ID}, nil
}

// Raw returns the untyped id underlying this TypedMetricID.
func (id TypedMetricID[T]) Raw() RawMetricID { return id.raw }
