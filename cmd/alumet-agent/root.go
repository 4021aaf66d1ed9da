// Package main is the alumet-agent CLI: a cobra command tree wiring
// config loading, the plugin runner and the measurement pipeline
// together into a running process.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"alumet/internal/telemetry/logging"
)

var (
	configPath      string
	pluginNames     []string
	configOverrides []string
	maxUpdateFlag   string
	logFile         string
)

var rootCmd = &cobra.Command{
	Use:     "alumet-agent",
	Short:   "Alumet measurement agent",
	Long:    "alumet-agent runs the Alumet measurement pipeline: a configurable set of sources, transforms and outputs collecting and routing energy and resource-usage measurements.",
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "alumet-config.yaml", "path to the YAML configuration file")
	rootCmd.PersistentFlags().StringSliceVar(&pluginNames, "plugins", nil, "comma-separated list of plugins to enable (default: all built-in plugins)")
	rootCmd.PersistentFlags().StringArrayVar(&configOverrides, "config-override", nil, "override a config key, as KEY=VALUE (repeatable)")
	rootCmd.PersistentFlags().StringVar(&maxUpdateFlag, "max-update-interval", "", "clamp the configured update_interval to this duration")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this rotating file instead of stdout")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(regenConfigCmd)
}

// Execute runs the CLI; main's only job is to call this and translate a
// non-nil error into a process exit code.
func Execute() error {
	return rootCmd.Execute()
}

func newLogger() logging.Logger {
	if logFile == "" {
		return logging.New(nil)
	}
	return logging.NewWithRotation(logging.FileRotationConfig{
		Path:       logFile,
		MaxSizeMB:  100,
		MaxBackups: 3,
		MaxAgeDays: 28,
		Compress:   true,
	}, slog.LevelInfo)
}

func overridesWithMax(overrides []string) []string {
	if maxUpdateFlag == "" {
		return overrides
	}
	return append(append([]string{}, overrides...), fmt.Sprintf("max_update_interval=%s", maxUpdateFlag))
}

func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
