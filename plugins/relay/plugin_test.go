package relay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumet/internal/agent"
	"alumet/pipeline"
	"alumet/plugin"
	"alumet/plugins"
)

func TestNewPluginAppliesDefaultsWhenConfigEmpty(t *testing.T) {
	p := newPlugin(nil)
	assert.Empty(t, p.serverAddr)
	assert.Empty(t, p.listenAddr)
	assert.NotEmpty(t, p.clientName)
}

func TestNewPluginHonorsConfig(t *testing.T) {
	p := newPlugin(map[string]any{
		"server_addr": "relay.example:9000",
		"listen_addr": "0.0.0.0:9000",
		"client_name": "worker-1",
	})
	assert.Equal(t, "relay.example:9000", p.serverAddr)
	assert.Equal(t, "0.0.0.0:9000", p.listenAddr)
	assert.Equal(t, "worker-1", p.clientName)
}

func TestStartWithNeitherAddrWiresNothing(t *testing.T) {
	pipe := pipeline.New(pipeline.DefaultConfig(), nil)
	p := newPlugin(nil)
	require.NoError(t, p.Init(context.Background()))
	require.NoError(t, p.Start(context.Background(), agent.NewStartHandle(pipe, "relay")))
	assert.Nil(t, p.output)
	require.NoError(t, p.Stop(context.Background()))
}

func TestStartWithServerAddrWiresOutput(t *testing.T) {
	pipe := pipeline.New(pipeline.DefaultConfig(), nil)
	p := newPlugin(map[string]any{"server_addr": "127.0.0.1:9999"})
	require.NoError(t, p.Init(context.Background()))
	require.NoError(t, p.Start(context.Background(), agent.NewStartHandle(pipe, "relay")))

	require.NotNil(t, p.output)
	assert.Equal(t, "127.0.0.1:9999", p.output.addr)
	require.NoError(t, p.Stop(context.Background()))
}

func TestPluginIsRegisteredByName(t *testing.T) {
	factory, err := plugins.Get("relay")
	require.NoError(t, err)
	built := factory(nil)
	assert.Equal(t, "relay", string(built.Name()))
}

var _ plugin.Plugin = (*Plugin)(nil)
