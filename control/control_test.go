package control_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumet/control"
	"alumet/naming"
)

type recordingConsumer struct {
	received chan control.Message
}

func (c *recordingConsumer) HandleControl(msg control.Message) {
	c.received <- msg
}

func TestDispatcherRoutesByKind(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, handle := control.NewDispatcher(ctx, 4)
	sourceConsumer := &recordingConsumer{received: make(chan control.Message, 1)}
	d.Register(control.KindSource, sourceConsumer)

	msg := control.Message{Kind: control.KindSource, Selector: naming.All(), State: control.StatePause}
	require.NoError(t, handle.TrySend(msg))

	select {
	case got := <-sourceConsumer.received:
		assert.Equal(t, control.StatePause, got.State)
	case <-time.After(time.Second):
		t.Fatal("message was not routed")
	}
}

func TestShutdownFailsFutureSends(t *testing.T) {
	ctx := context.Background()
	_, handle := control.NewDispatcher(ctx, 1)
	handle.Shutdown()

	time.Sleep(10 * time.Millisecond) // let dispatcher loop observe cancellation
	err := handle.TrySend(control.Message{Kind: control.KindOutput})
	assert.ErrorIs(t, err, control.ErrShutdown)
}

func TestScopedHandleSelectorsOwnPlugin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, handle := control.NewDispatcher(ctx, 1)
	scoped := handle.Scoped("my-plugin")
	assert.Equal(t, naming.PluginName("my-plugin"), scoped.Plugin())
	assert.True(t, scoped.AllOwnedByPlugin().Matches(naming.NewSourceName("my-plugin", "s").Generic()))
}
