package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumet/api"
)

func TestTypedMetricIDAcceptsMatchingValueType(t *testing.T) {
	m := api.Metric{ID: 1, Name: "cpu_usage", ValueType: api.TypeF64}
	id, err := api.NewTypedMetricID[float64](m)
	require.NoError(t, err)
	assert.Equal(t, api.RawMetricID(1), id.Raw())
}

func TestTypedMetricIDRejectsMismatchedValueType(t *testing.T) {
	m := api.Metric{ID: 1, Name: "cpu_usage", ValueType: api.TypeF64}
	_, err := api.NewTypedMetricID[uint64](m)
	assert.ErrorIs(t, err, api.ErrMetricValueTypeMismatch)
}
