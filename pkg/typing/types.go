// Package typing implements the ordered typing-fallback chain: synthetic
// paste, clipboard-only, and notify-only, each with its own observability.
package typing

import "time"

// NewlineMode controls how the clipboard-only adapter normalizes newlines.
type NewlineMode string

const (
	NewlineLF   NewlineMode = "LF"
	NewlineCRLF NewlineMode = "CRLF"
	NewlineNone NewlineMode = "NONE"
)

// PasteShortcut selects the OS paste chord the synthetic-paste adapter issues.
type PasteShortcut string

const (
	PasteMetaV    PasteShortcut = "META+V"
	PasteControlV PasteShortcut = "CONTROL+V"
	PasteAuto     PasteShortcut = "AUTO"
)

// Adapter is one tier of the typing chain.
type Adapter interface {
	Name() string
	CanDeliver() bool
	Deliver(text string) bool
}

// TypingFallbackEvent is emitted for every tier the chain skips or fails.
type TypingFallbackEvent struct {
	Tier   string
	Reason string
	At     time.Time
}

// AllTypingFallbacksFailedEvent is emitted when every tier in the chain failed.
type AllTypingFallbacksFailedEvent struct {
	Reason string
	At     time.Time
}
