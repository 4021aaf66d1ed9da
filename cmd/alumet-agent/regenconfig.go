package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"alumet/internal/config"
	"alumet/internal/wordsuggest"
	"alumet/plugins"
)

var regenConfigOutput string

var regenConfigCmd = &cobra.Command{
	Use:   "regen-config",
	Short: "Write a fresh configuration file with every plugin's default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRegenConfig()
	},
}

func init() {
	regenConfigCmd.Flags().StringVar(&regenConfigOutput, "output", "alumet-config.yaml", "path to write the generated configuration to")
}

func runRegenConfig() error {
	names := pluginNames
	if len(names) == 0 {
		names = plugins.Names()
	}

	tree := map[string]any{
		"poll_interval":       config.DefaultConfig().PollInterval.String(),
		"flush_interval":      config.DefaultConfig().FlushInterval.String(),
		"update_interval":     config.DefaultConfig().UpdateInterval.String(),
		"max_update_interval": config.DefaultConfig().MaxUpdateInterval.String(),
		"worker_threads":      0,
	}

	pluginDefaults := make(map[string]any, len(names))
	for _, name := range names {
		factory, err := plugins.Get(name)
		if err != nil {
			if hint := wordsuggest.Suggest(name, plugins.Names()); hint != "" {
				return fmt.Errorf("%w (%s)", err, hint)
			}
			return err
		}
		pluginDefaults[name] = factory(nil).DefaultConfig()
	}
	tree["plugins"] = pluginDefaults

	out, err := yaml.Marshal(tree)
	if err != nil {
		return fmt.Errorf("regen-config: marshal: %w", err)
	}
	if err := os.WriteFile(regenConfigOutput, out, 0o644); err != nil {
		return fmt.Errorf("regen-config: write %s: %w", regenConfigOutput, err)
	}
	fmt.Printf("wrote %s\n", regenConfigOutput)
	return nil
}
