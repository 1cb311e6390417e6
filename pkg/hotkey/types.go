// Package hotkey decodes a stream of low-level key/modifier events into
// high-level press/release edges for one of three configurable trigger
// shapes, and fans the resulting edges out to listeners.
package hotkey

import "strings"

// EventKind distinguishes a key press from a key release.
type EventKind int

const (
	Pressed EventKind = iota
	Released
)

// Modifier is one of the four tracked modifier keys.
type Modifier string

const (
	Shift   Modifier = "SHIFT"
	Control Modifier = "CONTROL"
	Alt     Modifier = "ALT"
	Meta    Modifier = "META"
)

// ModifierSet is a small set of Modifier values.
type ModifierSet map[Modifier]struct{}

// NewModifierSet builds a ModifierSet from the given modifiers.
func NewModifierSet(mods ...Modifier) ModifierSet {
	s := make(ModifierSet, len(mods))
	for _, m := range mods {
		s[m] = struct{}{}
	}
	return s
}

// Contains reports whether m is present.
func (s ModifierSet) Contains(m Modifier) bool {
	_, ok := s[m]
	return ok
}

// SubsetOf reports whether every modifier in s is also in other.
func (s ModifierSet) SubsetOf(other ModifierSet) bool {
	for m := range s {
		if !other.Contains(m) {
			return false
		}
	}
	return true
}

// NormalizedKeyEvent is the immutable record produced by the external key
// hook. key is always uppercased; left/right location is encoded directly
// into the key name (e.g. "LEFT_SHIFT") when the platform exposes it.
type NormalizedKeyEvent struct {
	Kind      EventKind
	Key       string
	Modifiers ModifierSet
	WhenMs    int64
}

// NewNormalizedKeyEvent uppercases key before storing it, preserving the
// data model's invariant.
func NewNormalizedKeyEvent(kind EventKind, key string, modifiers ModifierSet, whenMs int64) NormalizedKeyEvent {
	return NormalizedKeyEvent{
		Kind:      kind,
		Key:       strings.ToUpper(key),
		Modifiers: modifiers,
		WhenMs:    whenMs,
	}
}
