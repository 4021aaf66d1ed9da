package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	"alumet/api"
	"alumet/internal/telemetry/logging"
	"alumet/registry"
)

// Server accepts relay client connections, registers their metrics under
// a client-namespaced name in metrics, and hands every received batch to
// sink.
type Server struct {
	metrics *registry.Registry
	sink    func(*api.MeasurementBuffer)
	log     logging.Logger

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer returns a Server that registers remote metrics into metrics
// and forwards every received measurement batch to sink. sink is called
// from whichever connection's goroutine received the batch, so it must
// be safe for concurrent use by multiple clients.
func NewServer(metrics *registry.Registry, sink func(*api.MeasurementBuffer), log logging.Logger) *Server {
	return &Server{metrics: metrics, sink: sink, log: log}
}

// Serve listens on addr and accepts connections until ctx is cancelled or
// Close is called. It blocks until the listener stops.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("relay: listen on %s: %w", addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.wg.Wait()
				return nil
			default:
				return fmt.Errorf("relay: accept: %w", err)
			}
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.handleConn(ctx, conn); err != nil {
				s.log.WarnCtx(ctx, "relay connection ended", "err", err.Error())
			}
		}()
	}
}

// Addr returns the address Serve bound to, or nil if Serve has not bound
// a listener yet.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops accepting new connections and waits for in-flight
// connections to finish.
func (s *Server) Close() error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return nil
	}
	err := ln.Close()
	s.wg.Wait()
	return err
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) error {
	defer conn.Close()
	st := newStream(conn)

	clientName, err := s.greet(ctx, st)
	if err != nil {
		return err
	}
	s.log.InfoCtx(ctx, "relay client connected", "client", clientName, "remote", conn.RemoteAddr().String())

	// idByClient maps the client's own metric id (as declared in its
	// RegisterMetrics messages) to the id this server assigned the
	// same metric in its own registry.
	idByClient := make(map[uint64]api.RawMetricID)

	for {
		f, err := st.readMessage()
		if err != nil {
			if errors.Is(err, ErrDisconnected) {
				return nil
			}
			return fmt.Errorf("relay: read message from %s: %w", clientName, err)
		}
		switch f.Kind {
		case kindRegisterMetrics:
			var body RegisterMetrics
			if err := json.Unmarshal(f.Payload, &body); err != nil {
				return fmt.Errorf("relay: decode register_metrics from %s: %w", clientName, err)
			}
			for _, wm := range body.Metrics {
				id, err := s.metrics.Register(clientName+":"+wm.Name, decodeUnit(wm.Unit), decodeValueType(wm.ValueType), wm.Description)
				if err != nil {
					s.log.WarnCtx(ctx, "relay: rejected remote metric", "client", clientName, "metric", wm.Name, "err", err.Error())
					continue
				}
				idByClient[wm.ID] = id
			}
		case kindSendMeasurements:
			var body SendMeasurements
			if err := json.Unmarshal(f.Payload, &body); err != nil {
				return fmt.Errorf("relay: decode send_measurements from %s: %w", clientName, err)
			}
			buf, unresolved := decodeBuffer(body.Buffer, func(clientID uint64) (api.RawMetricID, bool) {
				id, ok := idByClient[clientID]
				return id, ok
			})
			if len(unresolved) > 0 {
				s.log.WarnCtx(ctx, "relay: dropped points for unregistered metrics", "client", clientName, "count", len(unresolved))
			}
			if buf.Len() > 0 {
				s.sink(buf)
			}
		default:
			s.log.WarnCtx(ctx, "relay: unexpected message kind", "client", clientName, "kind", f.Kind)
		}
	}
}

func (s *Server) greet(ctx context.Context, st *stream) (string, error) {
	f, err := st.readMessage()
	if err != nil {
		return "", fmt.Errorf("relay: read greeting: %w", err)
	}
	if f.Kind != kindGreet {
		return "", fmt.Errorf("relay: expected %s, got %s", kindGreet, f.Kind)
	}
	var g Greet
	if err := json.Unmarshal(f.Payload, &g); err != nil {
		return "", fmt.Errorf("relay: decode greeting: %w", err)
	}
	accept := g.ProtocolVersion == ProtocolVersion
	resp := GreetResponse{
		Accept:              accept,
		ServerCoreVersion:   CoreVersion,
		ServerPluginVersion: PluginVersion,
		ProtocolVersion:     ProtocolVersion,
	}
	if err := st.writeMessage("", kindGreetResponse, resp); err != nil {
		return "", fmt.Errorf("relay: send greeting response: %w", err)
	}
	if !accept {
		s.log.WarnCtx(ctx, "relay: rejected incompatible client", "client", f.Sender, "protocol_version", g.ProtocolVersion)
		return "", fmt.Errorf("relay: client %s uses protocol version %d, incompatible with %d", f.Sender, g.ProtocolVersion, ProtocolVersion)
	}
	return f.Sender, nil
}
