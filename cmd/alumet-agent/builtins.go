package main

import (
	"fmt"

	_ "alumet/plugins/aggregation"
	_ "alumet/plugins/cgroupbridge"
	_ "alumet/plugins/energyattribution"
	_ "alumet/plugins/relay"

	"alumet/internal/config"
	"alumet/internal/wordsuggest"
	"alumet/plugin"
	"alumet/plugins"
)

// resolvePlugins returns the plugin.Plugin instances to run: every
// built-in plugin if names is empty, or exactly the named ones, each
// configured from cfg.Plugins[name]. An unrecognized name is reported
// with a "did you mean" hint against the set of built-ins.
func resolvePlugins(names []string, cfg config.Config) ([]plugin.Plugin, error) {
	if len(names) == 0 {
		names = plugins.Names()
	}
	out := make([]plugin.Plugin, 0, len(names))
	for _, name := range names {
		factory, err := plugins.Get(name)
		if err != nil {
			if hint := wordsuggest.Suggest(name, plugins.Names()); hint != "" {
				return nil, fmt.Errorf("%w (%s)", err, hint)
			}
			return nil, err
		}
		out = append(out, factory(cfg.Plugins[name]))
	}
	return out, nil
}
