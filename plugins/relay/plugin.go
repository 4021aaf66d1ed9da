// Package relay wraps package relay's client and server as a
// plugin.Plugin: configuring plugins.relay.server_addr runs a relay
// client output forwarding local measurements to another Alumet;
// configuring plugins.relay.listen_addr runs a relay server accepting
// measurements from remote Alumets into this one.
package relay

import (
	"context"
	"os"

	"alumet/internal/telemetry/logging"
	"alumet/naming"
	"alumet/plugin"
	"alumet/plugins"
)

func init() {
	plugins.Register("relay", func(cfg map[string]any) plugin.Plugin { return newPlugin(cfg) })
}

type Plugin struct {
	serverAddr string
	listenAddr string
	clientName string

	output *clientOutput
	log    logging.Logger
}

func newPlugin(cfg map[string]any) *Plugin {
	hostname, _ := os.Hostname()
	return &Plugin{
		serverAddr: plugins.StringOr(cfg, "server_addr", ""),
		listenAddr: plugins.StringOr(cfg, "listen_addr", ""),
		clientName: plugins.StringOr(cfg, "client_name", hostname),
	}
}

func (p *Plugin) Name() naming.PluginName { return "relay" }
func (p *Plugin) Version() string         { return "0.1.0" }

func (p *Plugin) Init(context.Context) error {
	p.log = logging.New(nil)
	return nil
}

func (p *Plugin) DefaultConfig() map[string]any {
	return map[string]any{
		"server_addr": "",
		"listen_addr": "",
		"client_name": "",
	}
}

func (p *Plugin) Start(_ context.Context, handle plugin.StartHandle) error {
	if p.serverAddr != "" {
		p.output = newClientOutput(p.serverAddr, p.clientName)
		handle.AddOutput(func(plugin.BuildContext) (string, plugin.Output, error) {
			return "forward", p.output, nil
		})
	}
	if p.listenAddr != "" {
		handle.AddAutonomousSource("accept", newServerSource(p.listenAddr, handle.Metrics(), p.log))
	}
	return nil
}

func (p *Plugin) Stop(context.Context) error {
	if p.output != nil {
		p.output.close()
	}
	return nil
}

var _ plugin.Plugin = (*Plugin)(nil)
