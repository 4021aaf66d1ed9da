package api_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumet/api"
)

func TestMeasurementBufferRetainAndMerge(t *testing.T) {
	buf := api.NewMeasurementBuffer(4)
	now := time.Now()
	buf.Push(api.MeasurementPoint{Metric: 1, Timestamp: now, Value: api.F64Value(1), Resource: api.LocalMachine(), Consumer: api.ConsumerLocal()})
	buf.Push(api.MeasurementPoint{Metric: 2, Timestamp: now, Value: api.F64Value(2), Resource: api.CPUPackage("0"), Consumer: api.ConsumerLocal()})
	require.Equal(t, 2, buf.Len())

	buf.Retain(func(p api.MeasurementPoint) bool { return p.Metric == 1 })
	require.Equal(t, 1, buf.Len())
	assert.Equal(t, api.RawMetricID(1), buf.Points()[0].Metric)

	other := api.NewMeasurementBuffer(1)
	other.Push(api.MeasurementPoint{Metric: 3, Timestamp: now, Value: api.U64Value(7)})
	buf.Merge(other)
	require.Equal(t, 2, buf.Len())
}

func TestMeasurementBufferCloneIsIndependent(t *testing.T) {
	buf := api.NewMeasurementBuffer(1)
	buf.Push(api.MeasurementPoint{Metric: 1, Value: api.StrValue("x")}.WithAttr("k", api.BoolValue(true)))

	clone := buf.Clone()
	clone.Points()[0].Attributes[0].Value = api.BoolValue(false)

	assert.True(t, buf.Points()[0].Attributes[0].Value.Bool)
	assert.False(t, clone.Points()[0].Attributes[0].Value.Bool)
}

func TestUnitNaming(t *testing.T) {
	w := api.Unit{Kind: api.Watt}
	assert.Equal(t, "watt", w.UniqueName())
	assert.Equal(t, "W", w.DisplayName())

	mw := w.WithPrefix(api.PrefixMilli)
	assert.Equal(t, "mwatt", mw.UniqueName())
	assert.Equal(t, "mW", mw.DisplayName())
}

func TestCustomUnitRegistration(t *testing.T) {
	u := api.RegisterCustomUnit(api.CustomUnitDef{UniqueName: "flops", DisplayName: "FLOPS"})
	assert.Equal(t, "flops", u.UniqueName())
	assert.Equal(t, "FLOPS", u.DisplayName())
}
