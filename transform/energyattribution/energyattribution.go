// Package energyattribution redistributes a package-level energy
// counter across the per-process consumers that ran on that package,
// weighted by each process's reported hardware usage.
package energyattribution

import (
	"context"
	"fmt"

	"alumet/api"
	"alumet/registry"
)

// Transform reads a per-resource energy counter (reported for
// api.ConsumerLocal()) and a per-process usage metric (reported for
// api.Process(pid)) and, for every resource seen in a batch, splits the
// resource's energy across the processes that reported usage on it in
// the same batch, proportional to their share of the total usage.
type Transform struct {
	energyMetric     api.RawMetricID
	usageMetric      api.RawMetricID
	attributedMetric api.RawMetricID
}

// New registers the "attributed_energy" metric in metrics and returns a
// Transform reading energyMetric and usageMetric.
func New(metrics *registry.Registry, energyMetric, usageMetric api.RawMetricID) (*Transform, error) {
	id, err := metrics.Register("attributed_energy", api.Unit{Kind: api.Joule}, api.TypeF64,
		"energy consumption attributed to a process, proportional to its hardware usage")
	if err != nil {
		return nil, fmt.Errorf("energyattribution: register attributed_energy metric: %w", err)
	}
	return &Transform{energyMetric: energyMetric, usageMetric: usageMetric, attributedMetric: id}, nil
}

type resourceUsage struct {
	total float64
	byPid map[string]float64
}

func (t *Transform) Apply(_ context.Context, buf *api.MeasurementBuffer, _ registry.Reader) error {
	usage := make(map[api.Resource]*resourceUsage)
	var energyPoints []api.MeasurementPoint

	for _, p := range buf.Points() {
		switch p.Metric {
		case t.usageMetric:
			ru, ok := usage[p.Resource]
			if !ok {
				ru = &resourceUsage{byPid: make(map[string]float64)}
				usage[p.Resource] = ru
			}
			w := numericValue(p.Value)
			ru.total += w
			ru.byPid[p.Consumer.ID] += w
		case t.energyMetric:
			energyPoints = append(energyPoints, p)
		}
	}

	for _, e := range energyPoints {
		ru, ok := usage[e.Resource]
		if !ok || ru.total <= 0 {
			continue
		}
		total := numericValue(e.Value)
		for pid, w := range ru.byPid {
			share := total * (w / ru.total)
			buf.Push(api.MeasurementPoint{
				Metric:    t.attributedMetric,
				Timestamp: e.Timestamp,
				Value:     api.F64Value(share),
				Resource:  e.Resource,
				Consumer:  api.Process(pid),
			})
		}
	}
	return nil
}

func numericValue(v api.AttributeValue) float64 {
	if v.Type == api.TypeU64 {
		return float64(v.U64)
	}
	return v.F64
}
