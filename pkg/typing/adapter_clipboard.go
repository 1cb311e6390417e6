package typing

import (
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"github.com/dictation-core/dictation/pkg/logging"
)

// ClipboardAdapter places the transcription on the system clipboard without
// attempting to synthesize a paste keystroke. It is the last non-notify
// tier: the user pastes manually.
type ClipboardAdapter struct {
	newlineMode     NewlineMode
	trimTrailingLF  bool
	restorePrevious bool
	restoreDelay    time.Duration
	logger          logging.Logger

	readClipboard  func() (string, error)
	writeClipboard func(string) error
}

// NewClipboardAdapter builds a ClipboardAdapter. restoreDelay holds the
// dictated text on the clipboard before restoring whatever preceded it,
// giving the user a window to paste manually; restorePrevious with a zero
// delay restores almost immediately and should only be used deliberately.
func NewClipboardAdapter(newlineMode NewlineMode, trimTrailingLF, restorePrevious bool, restoreDelay time.Duration, logger logging.Logger) *ClipboardAdapter {
	if logger == nil {
		logger = &logging.NoOpLogger{}
	}
	return &ClipboardAdapter{
		newlineMode:     newlineMode,
		trimTrailingLF:  trimTrailingLF,
		restorePrevious: restorePrevious,
		restoreDelay:    restoreDelay,
		logger:          logger,
		readClipboard:   clipboard.ReadAll,
		writeClipboard:  clipboard.WriteAll,
	}
}

func (a *ClipboardAdapter) Name() string { return "clipboard" }

func (a *ClipboardAdapter) CanDeliver() bool {
	return clipboard.Unsupported == false
}

func (a *ClipboardAdapter) Deliver(text string) bool {
	normalized := a.normalize(text)

	var previous string
	var hadPrevious bool
	if a.restorePrevious {
		if prev, err := a.readClipboard(); err == nil {
			previous = prev
			hadPrevious = true
		}
	}

	if err := a.writeClipboard(normalized); err != nil {
		a.logger.Warn("clipboard write failed", "error", err)
		return false
	}

	if a.restorePrevious && hadPrevious {
		go func() {
			time.Sleep(a.restoreDelay)
			_ = a.writeClipboard(previous)
		}()
	}

	return true
}

func (a *ClipboardAdapter) normalize(text string) string {
	unified := strings.ReplaceAll(text, "\r\n", "\n")
	if a.trimTrailingLF {
		unified = strings.TrimSuffix(unified, "\n")
	}

	switch a.newlineMode {
	case NewlineCRLF:
		return strings.ReplaceAll(unified, "\n", "\r\n")
	case NewlineNone:
		return strings.ReplaceAll(unified, "\n", " ")
	default:
		return unified
	}
}
