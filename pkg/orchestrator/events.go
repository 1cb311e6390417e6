package orchestrator

import (
	"sync"
	"time"

	"github.com/dictation-core/dictation/pkg/stt"
)

// TranscriptionCompletedEvent is published exactly once per successful
// press/release cycle, after reconciliation (or single-engine selection).
type TranscriptionCompletedEvent struct {
	Result     stt.TranscriptionResult
	Timestamp  time.Time
	EngineUsed string
}

// CompletionListener is a static, construction-time subscriber.
type CompletionListener func(TranscriptionCompletedEvent)

// publisher fans TranscriptionCompletedEvent out to statically-registered
// listeners, matching the minimal typed-publisher shape used by
// pkg/hotkey.Manager and pkg/stt.Watchdog rather than a runtime-discovered
// bus.
type publisher struct {
	mu        sync.Mutex
	listeners []CompletionListener
}

func newPublisher(listeners ...CompletionListener) *publisher {
	return &publisher{listeners: append([]CompletionListener(nil), listeners...)}
}

func (p *publisher) publish(ev TranscriptionCompletedEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, l := range p.listeners {
		l(ev)
	}
}
