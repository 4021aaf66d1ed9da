package api

import "time"

// AttributeValue is the typed value of a measurement attribute. Exactly one
// field is meaningful, selected by Type.
type AttributeValue struct {
	Type ValueType
	F64  float64
	U64  uint64
	Bool bool
	Str  string
}

func F64Value(v float64) AttributeValue { return AttributeValue{Type: TypeF64, F64: v} }
func U64Value(v uint64) AttributeValue  { return AttributeValue{Type: TypeU64, U64: v} }
func BoolValue(v bool) AttributeValue   { return AttributeValue{Type: TypeBool, Bool: v} }
func StrValue(v string) AttributeValue  { return AttributeValue{Type: TypeStr, Str: v} }

// Attribute is a single key/value pair attached to a MeasurementPoint.
type Attribute struct {
	Key   string
	Value AttributeValue
}

// MeasurementPoint is a single timestamped value of a metric, for a given
// resource and consumer.
type MeasurementPoint struct {
	Metric     RawMetricID
	Timestamp  time.Time
	Value      AttributeValue
	Resource   Resource
	Consumer   ResourceConsumer
	Attributes []Attribute
}

// WithAttr returns a copy of the point with the given attribute appended.
func (p MeasurementPoint) WithAttr(key string, value AttributeValue) MeasurementPoint {
	attrs := make([]Attribute, len(p.Attributes), len(p.Attributes)+1)
	copy(attrs, p.Attributes)
	p.Attributes = append(attrs, Attribute{Key: key, Value: value})
	return p
}

// MeasurementBuffer is an ordered batch of measurement points moving
// between a source, the transform stage and the outputs. Buffers are not
// safe for concurrent mutation; ownership transfers at each pipeline stage.
type MeasurementBuffer struct {
	points []MeasurementPoint
}

// NewMeasurementBuffer returns an empty buffer with the given initial
// capacity hint.
func NewMeasurementBuffer(capacityHint int) *MeasurementBuffer {
	return &MeasurementBuffer{points: make([]MeasurementPoint, 0, capacityHint)}
}

// Push appends a point to the buffer.
func (b *MeasurementBuffer) Push(p MeasurementPoint) {
	b.points = append(b.points, p)
}

// Len returns the number of points currently in the buffer.
func (b *MeasurementBuffer) Len() int { return len(b.points) }

// Reserve grows the buffer's backing storage so at least additional more
// points can be pushed without a further reallocation. A source that knows
// how many points it is about to push in a tight loop uses this to avoid
// repeated grow-and-copy, the way a hot-path Rust source reserves its Vec.
func (b *MeasurementBuffer) Reserve(additional int) {
	if additional <= 0 {
		return
	}
	if cap(b.points)-len(b.points) >= additional {
		return
	}
	grown := make([]MeasurementPoint, len(b.points), len(b.points)+additional)
	copy(grown, b.points)
	b.points = grown
}

// Points returns the buffer's points. The returned slice aliases the
// buffer's storage and must not be retained past the next mutation.
func (b *MeasurementBuffer) Points() []MeasurementPoint { return b.points }

// Retain keeps only the points for which keep returns true, in place.
func (b *MeasurementBuffer) Retain(keep func(MeasurementPoint) bool) {
	out := b.points[:0]
	for _, p := range b.points {
		if keep(p) {
			out = append(out, p)
		}
	}
	b.points = out
}

// Map replaces each point in place with the result of f. If f returns false
// as its second result, the point is dropped.
func (b *MeasurementBuffer) Map(f func(MeasurementPoint) (MeasurementPoint, bool)) {
	out := b.points[:0]
	for _, p := range b.points {
		if np, ok := f(p); ok {
			out = append(out, np)
		}
	}
	b.points = out
}

// Clone returns a deep-enough copy of the buffer (points are value types
// except for the Attributes slice, which is also copied).
func (b *MeasurementBuffer) Clone() *MeasurementBuffer {
	clone := &MeasurementBuffer{points: make([]MeasurementPoint, len(b.points))}
	for i, p := range b.points {
		np := p
		if len(p.Attributes) > 0 {
			np.Attributes = append([]Attribute(nil), p.Attributes...)
		}
		clone.points[i] = np
	}
	return clone
}

// Merge appends other's points to b and returns b.
func (b *MeasurementBuffer) Merge(other *MeasurementBuffer) *MeasurementBuffer {
	b.points = append(b.points, other.points...)
	return b
}
