package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumet/api"
	"alumet/internal/broadcast"
	"alumet/internal/telemetry/logging"
	"alumet/naming"
	"alumet/registry"
)

type incrementTransform struct{ by uint64 }

func (t *incrementTransform) Apply(ctx context.Context, buf *api.MeasurementBuffer, metrics registry.Reader) error {
	buf.Map(func(p api.MeasurementPoint) (api.MeasurementPoint, bool) {
		p.Value = api.U64Value(p.Value.U64 + t.by)
		return p, true
	})
	return nil
}

type fatalTransform struct{}

func (fatalTransform) Apply(ctx context.Context, buf *api.MeasurementBuffer, metrics registry.Reader) error {
	return FatalTransformError(assertErr)
}

type assertError string

func (e assertError) Error() string { return string(e) }

var assertErr = assertError("boom")

func TestTransformStageAppliesEnabledTransformsInOrder(t *testing.T) {
	in := make(chan *api.MeasurementBuffer, 1)
	out := broadcast.New[*api.MeasurementBuffer]()
	recv := out.Subscribe(1)

	transforms := []namedTransform{
		{name: naming.NewTransformName("p", "add1"), transform: &incrementTransform{by: 1}},
		{name: naming.NewTransformName("p", "add10"), transform: &incrementTransform{by: 10}},
	}
	stage, err := newTransformStage(transforms, in, out, registry.New(), logging.New(nil))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go stage.run(ctx)

	buf := api.NewMeasurementBuffer(1)
	buf.Push(api.MeasurementPoint{Value: api.U64Value(5)})
	in <- buf

	select {
	case got := <-recv.C():
		assert.Equal(t, uint64(16), got.Points()[0].Value.U64)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for transformed batch")
	}
}

func TestTransformStageSkipsDisabledTransform(t *testing.T) {
	in := make(chan *api.MeasurementBuffer, 1)
	out := broadcast.New[*api.MeasurementBuffer]()
	recv := out.Subscribe(1)

	transforms := []namedTransform{
		{name: naming.NewTransformName("p", "add1"), transform: &incrementTransform{by: 1}},
		{name: naming.NewTransformName("p", "add10"), transform: &incrementTransform{by: 10}},
	}
	stage, err := newTransformStage(transforms, in, out, registry.New(), logging.New(nil))
	require.NoError(t, err)
	stage.setEnabled(1, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go stage.run(ctx)

	buf := api.NewMeasurementBuffer(1)
	buf.Push(api.MeasurementPoint{Value: api.U64Value(5)})
	in <- buf

	select {
	case got := <-recv.C():
		assert.Equal(t, uint64(6), got.Points()[0].Value.U64)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for transformed batch")
	}
}

func TestTransformStageStopsOnFatalError(t *testing.T) {
	in := make(chan *api.MeasurementBuffer, 1)
	out := broadcast.New[*api.MeasurementBuffer]()

	transforms := []namedTransform{
		{name: naming.NewTransformName("p", "fatal"), transform: fatalTransform{}},
	}
	stage, err := newTransformStage(transforms, in, out, registry.New(), logging.New(nil))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- stage.run(context.Background()) }()

	in <- api.NewMeasurementBuffer(0)

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("transform stage did not stop on fatal error")
	}
}
