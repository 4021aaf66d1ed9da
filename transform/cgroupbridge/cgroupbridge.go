// Package cgroupbridge rewrites measurement points reported per-process
// into points reported per-control-group, so outputs that only
// understand cgroups can consume process-level metrics.
package cgroupbridge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"alumet/api"
	"alumet/internal/telemetry/logging"
	"alumet/registry"
)

// Lookup resolves a process id to the control group path that process
// currently belongs to.
type Lookup func(pid string) (cgroupPath string, err error)

// ProcLookup returns a Lookup backed by procRoot/<pid>/cgroup, in the
// kernel's "hierarchy-id:controller-list:path" line format. It returns
// the path from the first line with a non-empty path field.
func ProcLookup(procRoot string) Lookup {
	return func(pid string) (string, error) {
		path := filepath.Join(procRoot, pid, "cgroup")
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("cgroupbridge: read %s: %w", path, err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			parts := strings.SplitN(line, ":", 3)
			if len(parts) == 3 && parts[2] != "" {
				return parts[2], nil
			}
		}
		return "", fmt.Errorf("cgroupbridge: no cgroup path found for pid %s in %s", pid, path)
	}
}

// Transform rewrites the consumer of every point whose metric is
// tracked and whose consumer is a Process into the ControlGroup that
// process belongs to, as resolved by lookup. A lookup failure keeps the
// point unchanged and is logged, rather than dropping the point.
//
// Merging the resulting per-cgroup points (when several processes map
// to the same cgroup) is not this transform's job: compose it with
// transform/aggregation, which already folds points sharing a (metric,
// resource, consumer) key.
type Transform struct {
	tracked      map[api.RawMetricID]bool
	lookup       Lookup
	keepOriginal bool
	log          logging.Logger
}

// New returns a Transform that bridges points for the given metrics
// using lookup. If keepOriginal is true, the original Process-consumer
// point is kept alongside the rewritten ControlGroup-consumer one
// instead of being replaced.
func New(metricIDs []api.RawMetricID, lookup Lookup, keepOriginal bool, log logging.Logger) *Transform {
	tracked := make(map[api.RawMetricID]bool, len(metricIDs))
	for _, id := range metricIDs {
		tracked[id] = true
	}
	return &Transform{tracked: tracked, lookup: lookup, keepOriginal: keepOriginal, log: log}
}

func (t *Transform) Apply(ctx context.Context, buf *api.MeasurementBuffer, _ registry.Reader) error {
	var extra []api.MeasurementPoint
	buf.Map(func(p api.MeasurementPoint) (api.MeasurementPoint, bool) {
		if !t.tracked[p.Metric] || p.Consumer.Kind != api.ConsumerProcess {
			return p, true
		}
		cgroupPath, err := t.lookup(p.Consumer.ID)
		if err != nil {
			t.log.WarnCtx(ctx, "cgroup lookup failed, keeping process consumer", "pid", p.Consumer.ID, "err", err.Error())
			return p, true
		}
		rewritten := p
		rewritten.Consumer = api.ControlGroup(cgroupPath)
		if t.keepOriginal {
			extra = append(extra, rewritten)
			return p, true
		}
		return rewritten, true
	})
	for _, p := range extra {
		buf.Push(p)
	}
	return nil
}
