package relay

import (
	"context"

	"alumet/api"
	"alumet/internal/telemetry/logging"
	"alumet/registry"
	"alumet/relay"
)

// serverSource runs a relay.Server for the lifetime of the pipeline,
// feeding every batch it receives from remote clients into emit.
type serverSource struct {
	addr    string
	metrics *registry.Registry
	log     logging.Logger
}

func newServerSource(addr string, metrics *registry.Registry, log logging.Logger) *serverSource {
	return &serverSource{addr: addr, metrics: metrics, log: log}
}

func (s *serverSource) Run(ctx context.Context, emit func(*api.MeasurementBuffer)) error {
	srv := relay.NewServer(s.metrics, emit, s.log)
	defer srv.Close()
	if err := srv.Serve(ctx, s.addr); err != nil {
		select {
		case <-ctx.Done():
			return nil
		default:
			return err
		}
	}
	return nil
}
