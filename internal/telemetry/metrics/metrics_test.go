package metrics_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumet/internal/telemetry/metrics"
)

func TestNoopProviderDiscardsObservations(t *testing.T) {
	p := metrics.NewNoopProvider()
	c := p.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{Name: "x"}})
	c.Inc(1)
	require.NoError(t, p.Health(context.Background()))
}

func TestPrometheusProviderReusesVecForSameName(t *testing.T) {
	p := metrics.NewPrometheusProvider(metrics.PrometheusProviderOptions{})
	opts := metrics.CounterOpts{CommonOpts: metrics.CommonOpts{Namespace: "alumet", Subsystem: "test", Name: "hits_total", Help: "h"}}
	c1 := p.NewCounter(opts)
	c2 := p.NewCounter(opts)
	c1.Inc(1)
	c2.Inc(1)
	assert.NotNil(t, c1)
	assert.NotNil(t, c2)
	assert.NotNil(t, p.MetricsHandler())
}

func TestPrometheusProviderInvalidNameFallsBackToNoop(t *testing.T) {
	p := metrics.NewPrometheusProvider(metrics.PrometheusProviderOptions{})
	c := p.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{Name: "bad name!"}})
	// Should not panic even though registration failed.
	c.Inc(1)
}
