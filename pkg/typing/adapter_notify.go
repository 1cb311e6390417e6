package typing

import (
	"github.com/dictation-core/dictation/pkg/logging"
)

const previewMaxChars = 120

// NotifyAdapter is the terminal tier of the chain: it never fails. It logs
// a character count and a truncated preview instead of the full text, so a
// misconfigured upstream adapter never leaks full transcripts into logs at
// this level.
type NotifyAdapter struct {
	logger logging.Logger
}

func NewNotifyAdapter(logger logging.Logger) *NotifyAdapter {
	if logger == nil {
		logger = &logging.NoOpLogger{}
	}
	return &NotifyAdapter{logger: logger}
}

func (a *NotifyAdapter) Name() string { return "notify" }

func (a *NotifyAdapter) CanDeliver() bool { return true }

func (a *NotifyAdapter) Deliver(text string) bool {
	a.logger.Info("transcription ready, no delivery path succeeded", "chars", len([]rune(text)), "preview", preview(text))
	return true
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewMaxChars {
		return text
	}
	return string(runes[:previewMaxChars]) + "..."
}
