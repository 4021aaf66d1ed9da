package energyattribution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumet/api"
	"alumet/registry"
)

func TestAttributesEnergyProportionalToUsage(t *testing.T) {
	reg := registry.New()
	energyMetric, err := reg.Register("rapl_energy", api.Unit{Kind: api.Joule}, api.TypeF64, "")
	require.NoError(t, err)
	usageMetric, err := reg.Register("cpu_time_delta", api.Unit{Kind: api.Second}, api.TypeF64, "")
	require.NoError(t, err)

	tr, err := New(reg, energyMetric, usageMetric)
	require.NoError(t, err)

	pkg := api.CPUPackage("0")
	buf := api.NewMeasurementBuffer(3)
	buf.Push(api.MeasurementPoint{Metric: energyMetric, Value: api.F64Value(100), Resource: pkg, Consumer: api.ConsumerLocal()})
	buf.Push(api.MeasurementPoint{Metric: usageMetric, Value: api.F64Value(30), Resource: pkg, Consumer: api.Process("1")})
	buf.Push(api.MeasurementPoint{Metric: usageMetric, Value: api.F64Value(70), Resource: pkg, Consumer: api.Process("2")})

	require.NoError(t, tr.Apply(context.Background(), buf, nil))

	byPid := make(map[string]float64)
	for _, p := range buf.Points() {
		if p.Metric == tr.attributedMetric {
			byPid[p.Consumer.ID] = p.Value.F64
		}
	}
	require.Len(t, byPid, 2)
	assert.InDelta(t, 30.0, byPid["1"], 1e-9)
	assert.InDelta(t, 70.0, byPid["2"], 1e-9)
}

func TestSkipsResourcesWithNoReportedUsage(t *testing.T) {
	reg := registry.New()
	energyMetric, _ := reg.Register("rapl_energy", api.Unit{Kind: api.Joule}, api.TypeF64, "")
	usageMetric, _ := reg.Register("cpu_time_delta", api.Unit{Kind: api.Second}, api.TypeF64, "")
	tr, err := New(reg, energyMetric, usageMetric)
	require.NoError(t, err)

	buf := api.NewMeasurementBuffer(1)
	buf.Push(api.MeasurementPoint{Metric: energyMetric, Value: api.F64Value(50), Resource: api.CPUPackage("1"), Consumer: api.ConsumerLocal()})

	require.NoError(t, tr.Apply(context.Background(), buf, nil))
	assert.Equal(t, 1, buf.Len(), "no attributed points should be added without usage data")
}
