// Package plugins is the global registry of built-in plugin factories.
// Subpackages register themselves from their own init().
package plugins

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"alumet/plugin"
)

// ErrNotFound is returned by Get for a name with no registered factory.
var ErrNotFound = errors.New("plugins: not registered")

// Factory builds a configured plugin.Plugin from its merged config tree
// (defaults overlaid with whatever the user's config file sets under
// plugins.<name>).
type Factory func(cfg map[string]any) plugin.Plugin

var registry = make(map[string]Factory)

// Register adds factory under name. Panics on an empty name, a nil
// factory, or a name already registered, all three being compile-time
// bugs rather than runtime conditions.
func Register(name string, factory Factory) {
	if name == "" {
		panic("plugins: name cannot be empty")
	}
	if factory == nil {
		panic("plugins: factory cannot be nil")
	}
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("plugins: %q already registered", name))
	}
	registry[name] = factory
}

// Get returns the factory registered under name.
func Get(name string) (Factory, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("plugin %q: %w", name, ErrNotFound)
	}
	return f, nil
}

// Names returns every registered plugin name, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StringOr reads key from cfg as a string, or returns fallback if absent
// or of the wrong type.
func StringOr(cfg map[string]any, key, fallback string) string {
	if v, ok := cfg[key].(string); ok {
		return v
	}
	return fallback
}

// DurationOr reads key from cfg as a duration string (e.g. "10s"), or
// returns fallback if absent, of the wrong type, or unparseable.
func DurationOr(cfg map[string]any, key string, fallback time.Duration) time.Duration {
	s, ok := cfg[key].(string)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// BoolOr reads key from cfg as a bool, or returns fallback if absent or
// of the wrong type.
func BoolOr(cfg map[string]any, key string, fallback bool) bool {
	if v, ok := cfg[key].(bool); ok {
		return v
	}
	return fallback
}

// StringSlice reads key from cfg as a list of strings. YAML decodes
// sequences as []any, so each element is converted individually;
// non-string elements are skipped.
func StringSlice(cfg map[string]any, key string) []string {
	raw, ok := cfg[key].([]any)
	if !ok {
		if ss, ok := cfg[key].([]string); ok {
			return ss
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
