package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"alumet/api"
)

// Client is the forwarding side of the relay: it dials a server, declares
// the metrics it measures, and streams batches to it.
type Client struct {
	name            string
	stream          *stream
	serverCoreVer   string
	serverPluginVer string
}

// Dial connects to addr and performs the version handshake. name
// identifies this client to the server and namespaces the metrics it
// registers.
func Dial(ctx context.Context, addr, name string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("relay: dial %s: %w", addr, err)
	}
	c := &Client{name: name, stream: newStream(conn)}
	if err := c.handshake(); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) handshake() error {
	greet := Greet{CoreVersion: CoreVersion, PluginVersion: PluginVersion, ProtocolVersion: ProtocolVersion}
	if err := c.stream.writeMessage(c.name, kindGreet, greet); err != nil {
		return fmt.Errorf("relay: send greeting: %w", err)
	}
	f, err := c.stream.readMessage()
	if err != nil {
		return fmt.Errorf("relay: read greeting response: %w", err)
	}
	if f.Kind != kindGreetResponse {
		return fmt.Errorf("relay: expected %s, got %s", kindGreetResponse, f.Kind)
	}
	var resp GreetResponse
	if err := json.Unmarshal(f.Payload, &resp); err != nil {
		return fmt.Errorf("relay: decode greeting response: %w", err)
	}
	if !resp.Accept {
		return fmt.Errorf("relay: server rejected this client: protocol version %d, server wants %d",
			ProtocolVersion, resp.ProtocolVersion)
	}
	c.serverCoreVer = resp.ServerCoreVersion
	c.serverPluginVer = resp.ServerPluginVersion
	return nil
}

// ServerVersion returns the core and plugin versions the server reported
// during the handshake.
func (c *Client) ServerVersion() (core, plugin string) { return c.serverCoreVer, c.serverPluginVer }

// RegisterMetrics declares metrics to the server. Each metric.ID is used
// as-is in subsequent SendMeasurements calls; the server maps it to its
// own metric id for the lifetime of this connection.
func (c *Client) RegisterMetrics(metrics []api.Metric) error {
	wire := make([]WireMetric, len(metrics))
	for i, m := range metrics {
		wire[i] = WireMetric{
			ID:          uint64(m.ID),
			Name:        m.Name,
			Unit:        encodeUnit(m.Unit),
			ValueType:   encodeValueType(m.ValueType),
			Description: m.Description,
		}
	}
	if err := c.stream.writeMessage(c.name, kindRegisterMetrics, RegisterMetrics{Metrics: wire}); err != nil {
		return fmt.Errorf("relay: register metrics: %w", err)
	}
	return nil
}

// SendMeasurements streams one batch of measurements to the server.
func (c *Client) SendMeasurements(buf *api.MeasurementBuffer) error {
	msg := SendMeasurements{Buffer: encodeBuffer(buf)}
	if err := c.stream.writeMessage(c.name, kindSendMeasurements, msg); err != nil {
		return fmt.Errorf("relay: send measurements: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.stream.Close() }
