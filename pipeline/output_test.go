package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumet/api"
	"alumet/control"
	"alumet/internal/blockingpool"
	"alumet/internal/broadcast"
	"alumet/internal/telemetry/logging"
	"alumet/naming"
	"alumet/registry"
)

type recordingOutput struct {
	mu      sync.Mutex
	written []*api.MeasurementBuffer
}

func (o *recordingOutput) Write(ctx context.Context, buf *api.MeasurementBuffer, metrics registry.Reader) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.written = append(o.written, buf)
	return nil
}

func (o *recordingOutput) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.written)
}

func TestOutputTaskReceivesPublishedBatches(t *testing.T) {
	bus := broadcast.New[*api.MeasurementBuffer]()
	out := &recordingOutput{}
	task := newOutputTask(naming.NewOutputName("p", "rec"), out, registry.New(), bus, blockingpool.New(1, 1), logging.New(nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go task.run(ctx)
	time.Sleep(10 * time.Millisecond) // let the task subscribe

	bus.Send(api.NewMeasurementBuffer(0))
	bus.Send(api.NewMeasurementBuffer(0))

	require.Eventually(t, func() bool { return out.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestOutputTaskPausedDropsPublishedBatches(t *testing.T) {
	bus := broadcast.New[*api.MeasurementBuffer]()
	out := &recordingOutput{}
	task := newOutputTask(naming.NewOutputName("p", "rec"), out, registry.New(), bus, blockingpool.New(1, 1), logging.New(nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go task.run(ctx)
	time.Sleep(10 * time.Millisecond)

	task.setState(control.OutputPause)
	time.Sleep(10 * time.Millisecond)
	bus.Send(api.NewMeasurementBuffer(0))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, out.count())
}

func TestOutputTaskStopEndsTask(t *testing.T) {
	bus := broadcast.New[*api.MeasurementBuffer]()
	out := &recordingOutput{}
	task := newOutputTask(naming.NewOutputName("p", "rec"), out, registry.New(), bus, blockingpool.New(1, 1), logging.New(nil))

	done := make(chan error, 1)
	go func() { done <- task.run(context.Background()) }()
	time.Sleep(10 * time.Millisecond)

	task.setState(control.OutputStop)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("output task did not stop")
	}
}
