package api

import (
	"fmt"
	"sync"
)

// Prefix is an SI magnitude prefix applied to a base Unit.
type Prefix int

const (
	PrefixNone Prefix = iota
	PrefixNano
	PrefixMicro
	PrefixMilli
	PrefixKilo
	PrefixMega
	PrefixGiga
)

func (p Prefix) symbol() string {
	switch p {
	case PrefixNano:
		return "n"
	case PrefixMicro:
		return "u"
	case PrefixMilli:
		return "m"
	case PrefixKilo:
		return "k"
	case PrefixMega:
		return "M"
	case PrefixGiga:
		return "G"
	default:
		return ""
	}
}

// UnitKind identifies one of the built-in base units, or Custom for a
// plugin-registered one.
type UnitKind int

const (
	Unity UnitKind = iota
	Second
	Watt
	Joule
	Volt
	Ampere
	Hertz
	DegreeCelsius
	DegreeFahrenheit
	WattHour
	Custom
)

// Unit is a base unit plus an optional SI prefix. The zero value is Unity
// with no prefix.
type Unit struct {
	Kind     UnitKind
	Prefix   Prefix
	CustomID CustomUnitID
}

// WithPrefix returns the unit with the given SI prefix applied.
func (u Unit) WithPrefix(p Prefix) Unit {
	u.Prefix = p
	return u
}

// UniqueName returns a stable, machine-readable identifier for the unit,
// suitable for wire formats and metric names.
func (u Unit) UniqueName() string {
	base := u.baseUniqueName()
	return u.Prefix.symbol() + base
}

func (u Unit) baseUniqueName() string {
	switch u.Kind {
	case Unity:
		return "unity"
	case Second:
		return "second"
	case Watt:
		return "watt"
	case Joule:
		return "joule"
	case Volt:
		return "volt"
	case Ampere:
		return "ampere"
	case Hertz:
		return "hertz"
	case DegreeCelsius:
		return "celsius"
	case DegreeFahrenheit:
		return "fahrenheit"
	case WattHour:
		return "watthour"
	case Custom:
		if def, ok := globalCustomUnits.get(u.CustomID); ok {
			return def.UniqueName
		}
		return "custom"
	default:
		return "unknown"
	}
}

// DisplayName returns a human-friendly rendering for logs and UIs.
func (u Unit) DisplayName() string {
	base := u.baseDisplayName()
	return u.Prefix.symbol() + base
}

func (u Unit) baseDisplayName() string {
	switch u.Kind {
	case Unity:
		return ""
	case Second:
		return "s"
	case Watt:
		return "W"
	case Joule:
		return "J"
	case Volt:
		return "V"
	case Ampere:
		return "A"
	case Hertz:
		return "Hz"
	case DegreeCelsius:
		return "°C"
	case DegreeFahrenheit:
		return "°F"
	case WattHour:
		return "Wh"
	case Custom:
		if def, ok := globalCustomUnits.get(u.CustomID); ok {
			return def.DisplayName
		}
		return "?"
	default:
		return "?"
	}
}

func (u Unit) String() string {
	return fmt.Sprintf("%s (%s)", u.DisplayName(), u.UniqueName())
}

// CustomUnitID identifies a plugin-registered unit in the process-global
// custom unit registry.
type CustomUnitID uint32

// CustomUnitDef describes a custom unit.
type CustomUnitDef struct {
	UniqueName  string
	DisplayName string
}

type customUnitRegistry struct {
	mu   sync.RWMutex
	defs []CustomUnitDef
}

func (r *customUnitRegistry) register(def CustomUnitDef) CustomUnitID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs = append(r.defs, def)
	return CustomUnitID(len(r.defs) - 1)
}

func (r *customUnitRegistry) get(id CustomUnitID) (CustomUnitDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) < 0 || int(id) >= len(r.defs) {
		return CustomUnitDef{}, false
	}
	return r.defs[id], true
}

var globalCustomUnits = &customUnitRegistry{}

// RegisterCustomUnit adds a new unit to the process-global custom unit
// registry and returns a Unit referencing it. Safe for concurrent use.
func RegisterCustomUnit(def CustomUnitDef) Unit {
	id := globalCustomUnits.register(def)
	return Unit{Kind: Custom, CustomID: id}
}
