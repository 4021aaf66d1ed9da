// Package naming provides the typed names used to address pipeline
// elements (sources, transforms, outputs) unambiguously across the
// control plane and the plugin lifecycle.
package naming

import "fmt"

// PluginName identifies the plugin that registered a pipeline element.
type PluginName string

// ElementKind is the type of a pipeline element.
type ElementKind int

const (
	KindSource ElementKind = iota
	KindTransform
	KindOutput
)

func (k ElementKind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindTransform:
		return "transform"
	case KindOutput:
		return "output"
	default:
		return "unknown"
	}
}

// ElementName is the full name of a pipeline element: which plugin
// registered it, what kind it is, and its name within that plugin.
type ElementName struct {
	Kind    ElementKind
	Plugin  PluginName
	Element string
}

func (n ElementName) String() string {
	return fmt.Sprintf("%ss/%s/%s", n.Kind, n.Plugin, n.Element)
}

// AsSource narrows an ElementName to a SourceName, or reports ok=false if
// the kind does not match.
func (n ElementName) AsSource() (SourceName, bool) {
	if n.Kind != KindSource {
		return SourceName{}, false
	}
	return SourceName(n), true
}

// AsTransform narrows an ElementName to a TransformName.
func (n ElementName) AsTransform() (TransformName, bool) {
	if n.Kind != KindTransform {
		return TransformName{}, false
	}
	return TransformName(n), true
}

// AsOutput narrows an ElementName to an OutputName.
func (n ElementName) AsOutput() (OutputName, bool) {
	if n.Kind != KindOutput {
		return OutputName{}, false
	}
	return OutputName(n), true
}

// SourceName is the full name of a source.
type SourceName ElementName

// NewSourceName builds a SourceName for the given plugin and element.
func NewSourceName(plugin PluginName, element string) SourceName {
	return SourceName{Kind: KindSource, Plugin: plugin, Element: element}
}

func (n SourceName) String() string       { return ElementName(n).String() }
func (n SourceName) Generic() ElementName { return ElementName(n) }

// TransformName is the full name of a transform.
type TransformName ElementName

func NewTransformName(plugin PluginName, element string) TransformName {
	return TransformName{Kind: KindTransform, Plugin: plugin, Element: element}
}

func (n TransformName) String() string       { return ElementName(n).String() }
func (n TransformName) Generic() ElementName { return ElementName(n) }

// OutputName is the full name of an output.
type OutputName ElementName

func NewOutputName(plugin PluginName, element string) OutputName {
	return OutputName{Kind: KindOutput, Plugin: plugin, Element: element}
}

func (n OutputName) String() string       { return ElementName(n).String() }
func (n OutputName) Generic() ElementName { return ElementName(n) }
