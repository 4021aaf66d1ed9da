package naming

import "path/filepath"

// Selector picks a subset of pipeline elements of one kind, for use in
// control messages that target one element, every element of a plugin,
// every element, or every element whose plugin and element name match a
// pair of shell glob patterns.
type Selector struct {
	single *ElementName
	plugin *PluginName
	all    bool

	isPattern    bool
	pluginGlob   string
	elementGlob  string
}

// Single selects exactly the named element.
func Single(name ElementName) Selector {
	n := name
	return Selector{single: &n}
}

// ByPlugin selects every element registered by the given plugin.
func ByPlugin(plugin PluginName) Selector {
	p := plugin
	return Selector{plugin: &p}
}

// All selects every element.
func All() Selector {
	return Selector{all: true}
}

// Pattern selects every element whose plugin name matches pluginGlob and
// whose element name matches elementGlob, using path/filepath glob
// syntax (e.g. "rapl*" or "*").
func Pattern(pluginGlob, elementGlob string) Selector {
	return Selector{isPattern: true, pluginGlob: pluginGlob, elementGlob: elementGlob}
}

// Matches reports whether name is selected.
func (s Selector) Matches(name ElementName) bool {
	switch {
	case s.all:
		return true
	case s.single != nil:
		return *s.single == name
	case s.plugin != nil:
		return name.Plugin == *s.plugin
	case s.isPattern:
		pluginOK, _ := filepath.Match(s.pluginGlob, string(name.Plugin))
		elementOK, _ := filepath.Match(s.elementGlob, name.Element)
		return pluginOK && elementOK
	default:
		return false
	}
}
