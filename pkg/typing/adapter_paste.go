package typing

import (
	"context"
	"os/exec"
	"time"

	"github.com/atotto/clipboard"

	"github.com/dictation-core/dictation/pkg/logging"
)

// defaultChunkRunes is the maximum number of runes copied to the clipboard
// per paste chord when the caller does not configure one. Longer
// transcriptions are split across multiple chords with a settle delay
// between them, matching how window managers occasionally drop an
// immediately-repeated paste chord.
const defaultChunkRunes = 4000

// defaultInterChunkDelay separates successive synthesized paste chords
// when the caller does not configure one.
const defaultInterChunkDelay = 120 * time.Millisecond

// PasteAdapter synthesizes a paste by writing to the clipboard and issuing
// the platform paste chord through an external keystroke-injection tool.
// It requires accessibility/input-injection permission on the host, which
// CanDeliver probes via the presence of the configured binary.
type PasteAdapter struct {
	shortcut PasteShortcut
	binary   string
	args     []string
	logger   logging.Logger

	chunkSize       int
	interChunkDelay time.Duration

	lookupBinary func(string) (string, error)
	runCommand   func(ctx context.Context, name string, args ...string) error
	writeClip    func(string) error
}

// NewPasteAdapter builds a PasteAdapter. binary/args name the external
// keystroke-injection tool (e.g. "xdotool", []string{"key", "ctrl+v"} on
// X11, or "ydotool" on Wayland); the caller resolves the right one for the
// host and shortcut. chunkSize <= 0 and interChunkDelay < 0 fall back to
// the package defaults.
func NewPasteAdapter(shortcut PasteShortcut, binary string, args []string, chunkSize int, interChunkDelay time.Duration, logger logging.Logger) *PasteAdapter {
	if logger == nil {
		logger = &logging.NoOpLogger{}
	}
	if chunkSize <= 0 {
		chunkSize = defaultChunkRunes
	}
	if interChunkDelay < 0 {
		interChunkDelay = defaultInterChunkDelay
	}
	return &PasteAdapter{
		shortcut:        shortcut,
		binary:          binary,
		args:            args,
		logger:          logger,
		chunkSize:       chunkSize,
		interChunkDelay: interChunkDelay,
		lookupBinary:    exec.LookPath,
		runCommand: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
		writeClip: clipboard.WriteAll,
	}
}

func (a *PasteAdapter) Name() string { return "synthetic-paste" }

// CanDeliver gates on the keystroke-injection binary being resolvable on
// PATH, which stands in for the accessibility/input permission check.
func (a *PasteAdapter) CanDeliver() bool {
	if a.binary == "" {
		return false
	}
	_, err := a.lookupBinary(a.binary)
	return err == nil
}

func (a *PasteAdapter) Deliver(text string) bool {
	chunks := chunkText(text, a.chunkSize)
	for i, chunk := range chunks {
		if err := a.writeClip(chunk); err != nil {
			a.logger.Warn("paste adapter clipboard write failed", "error", err)
			return false
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := a.runCommand(ctx, a.binary, a.args...)
		cancel()
		if err != nil {
			a.logger.Warn("paste adapter chord failed", "error", err)
			return false
		}

		if i < len(chunks)-1 {
			time.Sleep(a.interChunkDelay)
		}
	}
	return true
}

func chunkText(text string, max int) []string {
	runes := []rune(text)
	if len(runes) <= max {
		return []string{text}
	}
	var chunks []string
	for start := 0; start < len(runes); start += max {
		end := start + max
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
