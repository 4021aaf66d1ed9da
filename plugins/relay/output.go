package relay

import (
	"context"
	"sync"

	"alumet/api"
	"alumet/pipeline"
	"alumet/plugin"
	"alumet/registry"
	"alumet/relay"
)

// clientOutput forwards every batch it is given to a relay server,
// dialing lazily on its first Write and declaring each metric the first
// time a point for it is seen.
type clientOutput struct {
	addr string
	name string

	mu     sync.Mutex
	client *relay.Client
	known  map[api.RawMetricID]bool
}

func newClientOutput(addr, name string) *clientOutput {
	return &clientOutput{addr: addr, name: name, known: make(map[api.RawMetricID]bool)}
}

// Blocking marks this output for the pipeline's dedicated blocking
// worker pool: dialing and writing to a TCP socket should never stall
// an output task's own select loop.
func (o *clientOutput) Blocking() {}

func (o *clientOutput) Write(ctx context.Context, buf *api.MeasurementBuffer, metrics registry.Reader) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.client == nil {
		c, err := relay.Dial(ctx, o.addr, o.name)
		if err != nil {
			return pipeline.CanRetryWriteError(err)
		}
		o.client = c
	}

	var fresh []api.Metric
	for _, p := range buf.Points() {
		if o.known[p.Metric] {
			continue
		}
		if m, ok := metrics.ByID(p.Metric); ok {
			fresh = append(fresh, m)
			o.known[p.Metric] = true
		}
	}
	if len(fresh) > 0 {
		if err := o.client.RegisterMetrics(fresh); err != nil {
			o.closeLocked()
			return pipeline.CanRetryWriteError(err)
		}
	}
	if err := o.client.SendMeasurements(buf); err != nil {
		o.closeLocked()
		return pipeline.CanRetryWriteError(err)
	}
	return nil
}

func (o *clientOutput) closeLocked() {
	if o.client != nil {
		o.client.Close()
		o.client = nil
		o.known = make(map[api.RawMetricID]bool)
	}
}

func (o *clientOutput) close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closeLocked()
}

var _ plugin.BlockingOutput = (*clientOutput)(nil)
