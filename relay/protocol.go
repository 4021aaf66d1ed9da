// Package relay implements the wire protocol that lets one running agent
// forward its measurements to another: a client dials a server, the two
// exchange a version handshake, the client registers its metrics under
// its own namespace, then streams measurement batches that the server
// feeds into its own transform/output pipeline.
//
// Messages are framed as a 4-byte big-endian length prefix followed by a
// JSON-encoded envelope, the simplest framing available given this
// module's dependency set.
package relay

import "time"

// ProtocolVersion gates compatibility between client and server. A
// server rejects any client whose version differs from its own.
const ProtocolVersion uint32 = 1

// CoreVersion and PluginVersion are reported in the handshake so a
// mismatched peer's logs show what it was talking to.
const (
	CoreVersion   = "alumet/0.1"
	PluginVersion = "relay/0.1"
)

// Message kinds carried in a frame's Kind field.
const (
	kindGreet            = "greet"
	kindGreetResponse    = "greet_response"
	kindRegisterMetrics  = "register_metrics"
	kindSendMeasurements = "send_measurements"
)

// Greet is the first message a client sends after connecting.
type Greet struct {
	CoreVersion     string `json:"core_version"`
	PluginVersion   string `json:"plugin_version"`
	ProtocolVersion uint32 `json:"protocol_version"`
}

// GreetResponse is the server's reply to a Greet. If Accept is false the
// connection is unusable and the client must close it.
type GreetResponse struct {
	Accept              bool   `json:"accept"`
	ServerCoreVersion   string `json:"server_core_version"`
	ServerPluginVersion string `json:"server_plugin_version"`
	ProtocolVersion     uint32 `json:"protocol_version"`
}

// WireMetric is a metric definition as declared by a client. ID is the
// client's own local identifier for the metric; the server remembers the
// mapping from ID to its own registered metric for the lifetime of the
// connection and uses it to resolve the metric_id field of every point in
// a later SendMeasurements.
type WireMetric struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Unit        string `json:"unit"`
	ValueType   string `json:"value_type"`
	Description string `json:"description,omitempty"`
}

// RegisterMetrics declares one or more metrics a client intends to report
// measurements for.
type RegisterMetrics struct {
	Metrics []WireMetric `json:"metrics"`
}

// SendMeasurements carries one batch of measurement points.
type SendMeasurements struct {
	Buffer []wirePoint `json:"buffer"`
}

type wireValue struct {
	Type string  `json:"type"`
	F64  float64 `json:"f64,omitempty"`
	U64  uint64  `json:"u64,omitempty"`
	Bool bool    `json:"bool,omitempty"`
	Str  string  `json:"str,omitempty"`
}

type wireAttribute struct {
	Key   string    `json:"key"`
	Value wireValue `json:"value"`
}

type wirePoint struct {
	MetricID      uint64          `json:"metric_id"`
	TimestampSec  int64           `json:"timestamp_sec"`
	TimestampNsec int32           `json:"timestamp_nsec"`
	Value         wireValue       `json:"value"`
	ResourceKind  string          `json:"resource_kind"`
	ResourceID    string          `json:"resource_id"`
	ConsumerKind  string          `json:"consumer_kind"`
	ConsumerID    string          `json:"consumer_id"`
	Attributes    []wireAttribute `json:"attributes,omitempty"`
}

func unixToTime(sec int64, nsec int32) time.Time {
	return time.Unix(sec, int64(nsec)).UTC()
}
