package plugin_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumet/control"
	"alumet/naming"
	"alumet/plugin"
	"alumet/registry"
)

type fakePlugin struct {
	name            naming.PluginName
	events          *[]string
	failStart       bool
	afterStartCalls int
}

func (p *fakePlugin) Name() naming.PluginName         { return p.name }
func (p *fakePlugin) Version() string                 { return "0.0.1" }
func (p *fakePlugin) DefaultConfig() map[string]any    { return nil }
func (p *fakePlugin) Init(ctx context.Context) error {
	*p.events = append(*p.events, string(p.name)+":init")
	return nil
}
func (p *fakePlugin) Start(ctx context.Context, h plugin.StartHandle) error {
	*p.events = append(*p.events, string(p.name)+":start")
	if p.failStart {
		return assertErr
	}
	return nil
}
func (p *fakePlugin) Stop(ctx context.Context) error {
	*p.events = append(*p.events, string(p.name)+":stop")
	return nil
}
func (p *fakePlugin) AfterPluginsStart(ctx context.Context) error {
	p.afterStartCalls++
	*p.events = append(*p.events, string(p.name)+":after")
	return nil
}
func (p *fakePlugin) BeforeOperationBegin(ctx context.Context) error {
	*p.events = append(*p.events, string(p.name)+":before-op")
	return nil
}
func (p *fakePlugin) AfterOperationBegin(ctx context.Context) error {
	*p.events = append(*p.events, string(p.name)+":after-op")
	return nil
}

var assertErr = assertError("boom")

type assertError string

func (e assertError) Error() string { return string(e) }

type fakeHandle struct{}

func (fakeHandle) Metrics() *registry.Registry                  { return registry.New() }
func (fakeHandle) Control() *control.ScopedHandle                { return nil }
func (fakeHandle) AddSource(b plugin.SourceBuilder)               {}
func (fakeHandle) AddAutonomousSource(string, plugin.AutonomousSource) {}
func (fakeHandle) AddTransform(b plugin.TransformBuilder)         {}
func (fakeHandle) AddOutput(b plugin.OutputBuilder)               {}

func TestRunnerLifecycleOrder(t *testing.T) {
	var events []string
	a := &fakePlugin{name: "a", events: &events}
	b := &fakePlugin{name: "b", events: &events}

	r := plugin.NewRunner(nil)
	r.Add(a)
	r.Add(b)

	require.NoError(t, r.InitAll(context.Background()))
	r.DefaultConfigAll(context.Background())
	require.NoError(t, r.StartAll(context.Background(), func(plugin.Plugin) plugin.StartHandle { return fakeHandle{} }))
	require.NoError(t, r.BeforeOperationBegin(context.Background()))
	require.NoError(t, r.PostPipelineStart(context.Background()))
	require.NoError(t, r.AfterOperationBegin(context.Background()))
	require.NoError(t, r.StopAll(context.Background()))

	assert.Equal(t, []string{
		"a:init", "b:init",
		"a:start", "b:start",
		"a:after", "b:after",
		"a:before-op", "b:before-op",
		"a:after-op", "b:after-op",
		"b:stop", "a:stop",
	}, events)
	assert.Equal(t, 1, a.afterStartCalls)
}

func TestStartAllPropagatesError(t *testing.T) {
	var events []string
	a := &fakePlugin{name: "a", events: &events, failStart: true}
	r := plugin.NewRunner(nil)
	r.Add(a)
	require.NoError(t, r.InitAll(context.Background()))
	err := r.StartAll(context.Background(), func(plugin.Plugin) plugin.StartHandle { return fakeHandle{} })
	require.Error(t, err)
}
