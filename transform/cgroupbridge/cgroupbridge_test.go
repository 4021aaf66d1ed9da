package cgroupbridge

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumet/api"
	"alumet/internal/telemetry/logging"
)

func TestProcLookupReadsCgroupFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "123"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "123", "cgroup"),
		[]byte("0::/system.slice/docker-abc.scope\n"), 0o644))

	path, err := ProcLookup(dir)("123")
	require.NoError(t, err)
	assert.Equal(t, "/system.slice/docker-abc.scope", path)
}

func TestProcLookupErrorsWhenFileMissing(t *testing.T) {
	_, err := ProcLookup(t.TempDir())("999")
	assert.Error(t, err)
}

func TestTransformRewritesProcessConsumerToControlGroup(t *testing.T) {
	lookup := func(pid string) (string, error) { return "/system.slice/app-" + pid + ".scope", nil }
	tr := New([]api.RawMetricID{1}, lookup, false, logging.New(nil))

	buf := api.NewMeasurementBuffer(1)
	buf.Push(api.MeasurementPoint{Metric: 1, Value: api.F64Value(1), Consumer: api.Process("42")})

	require.NoError(t, tr.Apply(context.Background(), buf, nil))
	require.Equal(t, 1, buf.Len())
	assert.Equal(t, api.ConsumerControlGroup, buf.Points()[0].Consumer.Kind)
	assert.Equal(t, "/system.slice/app-42.scope", buf.Points()[0].Consumer.ID)
}

func TestTransformKeepOriginalAddsBothPoints(t *testing.T) {
	lookup := func(pid string) (string, error) { return "/slice", nil }
	tr := New([]api.RawMetricID{1}, lookup, true, logging.New(nil))

	buf := api.NewMeasurementBuffer(1)
	buf.Push(api.MeasurementPoint{Metric: 1, Value: api.F64Value(1), Consumer: api.Process("42")})

	require.NoError(t, tr.Apply(context.Background(), buf, nil))
	require.Equal(t, 2, buf.Len())
}

func TestTransformLeavesUntrackedMetricsAlone(t *testing.T) {
	lookup := func(string) (string, error) { t.Fatal("lookup should not be called"); return "", nil }
	tr := New([]api.RawMetricID{1}, lookup, false, logging.New(nil))

	buf := api.NewMeasurementBuffer(1)
	buf.Push(api.MeasurementPoint{Metric: 2, Value: api.F64Value(1), Consumer: api.Process("42")})

	require.NoError(t, tr.Apply(context.Background(), buf, nil))
	assert.Equal(t, api.ConsumerProcess, buf.Points()[0].Consumer.Kind)
}

func TestTransformFallsBackOnLookupFailure(t *testing.T) {
	lookup := func(string) (string, error) { return "", assert.AnError }
	tr := New([]api.RawMetricID{1}, lookup, false, logging.New(nil))

	buf := api.NewMeasurementBuffer(1)
	buf.Push(api.MeasurementPoint{Metric: 1, Value: api.F64Value(1), Consumer: api.Process("42")})

	require.NoError(t, tr.Apply(context.Background(), buf, nil))
	assert.Equal(t, api.ConsumerProcess, buf.Points()[0].Consumer.Kind)
}
