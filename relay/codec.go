package relay

import (
	"strings"

	"alumet/api"
)

func encodeValueType(vt api.ValueType) string {
	switch vt {
	case api.TypeU64:
		return "u64"
	case api.TypeBool:
		return "bool"
	case api.TypeStr:
		return "str"
	default:
		return "f64"
	}
}

func decodeValueType(s string) api.ValueType {
	switch s {
	case "u64":
		return api.TypeU64
	case "bool":
		return api.TypeBool
	case "str":
		return api.TypeStr
	default:
		return api.TypeF64
	}
}

func encodeValue(v api.AttributeValue) wireValue {
	switch v.Type {
	case api.TypeU64:
		return wireValue{Type: "u64", U64: v.U64}
	case api.TypeBool:
		return wireValue{Type: "bool", Bool: v.Bool}
	case api.TypeStr:
		return wireValue{Type: "str", Str: v.Str}
	default:
		return wireValue{Type: "f64", F64: v.F64}
	}
}

func decodeValue(w wireValue) api.AttributeValue {
	switch w.Type {
	case "u64":
		return api.U64Value(w.U64)
	case "bool":
		return api.BoolValue(w.Bool)
	case "str":
		return api.StrValue(w.Str)
	default:
		return api.F64Value(w.F64)
	}
}

var baseUnitsByName = map[string]api.UnitKind{
	"unity":      api.Unity,
	"second":     api.Second,
	"watt":       api.Watt,
	"joule":      api.Joule,
	"volt":       api.Volt,
	"ampere":     api.Ampere,
	"hertz":      api.Hertz,
	"celsius":    api.DegreeCelsius,
	"fahrenheit": api.DegreeFahrenheit,
	"watthour":   api.WattHour,
}

var prefixesBySymbol = map[string]api.Prefix{
	"n": api.PrefixNano,
	"u": api.PrefixMicro,
	"m": api.PrefixMilli,
	"k": api.PrefixKilo,
	"M": api.PrefixMega,
	"G": api.PrefixGiga,
}

// encodeUnit renders a Unit as its UniqueName, the same string a local
// custom-unit registration would use.
func encodeUnit(u api.Unit) string { return u.UniqueName() }

// decodeUnit parses a unit name received over the wire, falling back to
// registering it as a custom unit if it names neither a known base unit
// nor a known SI-prefixed base unit. This mirrors the original relay
// protocol's behavior of accepting an arbitrary unit string from a peer.
func decodeUnit(name string) api.Unit {
	if kind, ok := baseUnitsByName[name]; ok {
		return api.Unit{Kind: kind}
	}
	for symbol, prefix := range prefixesBySymbol {
		rest, ok := strings.CutPrefix(name, symbol)
		if !ok {
			continue
		}
		if kind, ok := baseUnitsByName[rest]; ok {
			return api.Unit{Kind: kind, Prefix: prefix}
		}
	}
	return api.RegisterCustomUnit(api.CustomUnitDef{UniqueName: name, DisplayName: name})
}

func encodeBuffer(buf *api.MeasurementBuffer) []wirePoint {
	points := buf.Points()
	out := make([]wirePoint, len(points))
	for i, p := range points {
		attrs := make([]wireAttribute, len(p.Attributes))
		for j, a := range p.Attributes {
			attrs[j] = wireAttribute{Key: a.Key, Value: encodeValue(a.Value)}
		}
		out[i] = wirePoint{
			MetricID:      uint64(p.Metric),
			TimestampSec:  p.Timestamp.Unix(),
			TimestampNsec: int32(p.Timestamp.Nanosecond()),
			Value:         encodeValue(p.Value),
			ResourceKind:  p.Resource.Kind,
			ResourceID:    p.Resource.ID,
			ConsumerKind:  p.Consumer.Kind,
			ConsumerID:    p.Consumer.ID,
			Attributes:    attrs,
		}
	}
	return out
}

// decodeBuffer turns wire points back into a MeasurementBuffer, resolving
// each point's client-local metric id to a server-side RawMetricID via
// resolve. Points whose metric id resolve fails are dropped and their
// client ids returned in unresolved, so the caller can log them.
func decodeBuffer(wire []wirePoint, resolve func(clientMetricID uint64) (api.RawMetricID, bool)) (buf *api.MeasurementBuffer, unresolved []uint64) {
	buf = api.NewMeasurementBuffer(len(wire))
	for _, w := range wire {
		metricID, ok := resolve(w.MetricID)
		if !ok {
			unresolved = append(unresolved, w.MetricID)
			continue
		}
		attrs := make([]api.Attribute, len(w.Attributes))
		for j, a := range w.Attributes {
			attrs[j] = api.Attribute{Key: a.Key, Value: decodeValue(a.Value)}
		}
		buf.Push(api.MeasurementPoint{
			Metric:     metricID,
			Timestamp:  unixToTime(w.TimestampSec, w.TimestampNsec),
			Value:      decodeValue(w.Value),
			Resource:   api.Resource{Kind: w.ResourceKind, ID: w.ResourceID},
			Consumer:   api.ResourceConsumer{Kind: w.ConsumerKind, ID: w.ConsumerID},
			Attributes: attrs,
		})
	}
	return buf, unresolved
}
