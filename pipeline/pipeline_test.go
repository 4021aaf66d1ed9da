package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumet/api"
	"alumet/naming"
	"alumet/trigger"
)

type constantSource struct{ value uint64 }

func (s *constantSource) Poll(ctx context.Context, out *api.MeasurementBuffer) error {
	out.Push(api.MeasurementPoint{Value: api.U64Value(s.value)})
	return nil
}

func TestPipelineEndToEndSourceTransformOutput(t *testing.T) {
	p := New(DefaultConfig(), nil)

	spec, err := trigger.NewInterval(10 * time.Millisecond).Build()
	require.NoError(t, err)

	p.AddSource(naming.NewSourceName("demo", "constant"), &constantSource{value: 41}, spec)
	require.NoError(t, p.AddTransform(naming.NewTransformName("demo", "add1"), &incrementTransform{by: 1}))
	out := &recordingOutput{}
	p.AddOutput(naming.NewOutputName("demo", "recorder"), out)

	require.NoError(t, p.Start(context.Background()))
	defer p.Shutdown()

	require.Eventually(t, func() bool { return out.count() >= 3 }, time.Second, 5*time.Millisecond)

	out.mu.Lock()
	defer out.mu.Unlock()
	for _, buf := range out.written {
		for _, pt := range buf.Points() {
			assert.Equal(t, uint64(42), pt.Value.U64)
		}
	}
	assert.NotNil(t, p.Metrics())
}

// TestShutdownFlushesUnsentSourceBuffer checks that a source with points
// already polled but not yet auto-flushed (its flush_interval is far
// longer than its poll_interval) still reaches its output once Shutdown
// is called, instead of being dropped with the rest of the pipeline.
func TestShutdownFlushesUnsentSourceBuffer(t *testing.T) {
	p := New(DefaultConfig(), nil)

	spec, err := trigger.NewInterval(10 * time.Millisecond).FlushInterval(time.Hour).Build()
	require.NoError(t, err)

	p.AddSource(naming.NewSourceName("demo", "constant"), &constantSource{value: 7}, spec)
	out := &recordingOutput{}
	p.AddOutput(naming.NewOutputName("demo", "recorder"), out)

	require.NoError(t, p.Start(context.Background()))

	time.Sleep(30 * time.Millisecond) // let a couple of polls accumulate, unflushed
	require.Equal(t, 0, out.count())

	p.Shutdown()

	require.Equal(t, 1, out.count())
	out.mu.Lock()
	defer out.mu.Unlock()
	assert.Greater(t, out.written[0].Len(), 0)
}
