package stt

import (
	"context"
	"sync"
	"time"

	"github.com/dictation-core/dictation/pkg/logging"
)

// WatchdogState is the per-engine restart-budget state.
type WatchdogState int

const (
	Healthy WatchdogState = iota
	Restarting
	Disabled
)

func (s WatchdogState) String() string {
	switch s {
	case Healthy:
		return "HEALTHY"
	case Restarting:
		return "RESTARTING"
	case Disabled:
		return "DISABLED"
	default:
		return "UNKNOWN"
	}
}

// EngineRecoveredEvent is published when a restarted engine re-initializes successfully.
type EngineRecoveredEvent struct {
	Engine string
}

// EngineDisabledEvent is published when an engine exhausts its restart budget.
type EngineDisabledEvent struct {
	Engine   string
	Cooldown time.Time
}

type engineState struct {
	state           WatchdogState
	restarts        []time.Time
	cooldownUntil   time.Time
}

// Watchdog implements the sliding-window restart-budget state machine for
// a set of named engines: HEALTHY -> RESTARTING -> DISABLED and back.
type Watchdog struct {
	mu                   sync.Mutex
	windowMinutes        int
	maxRestartsPerWindow int
	cooldownMinutes      int
	logger               logging.Logger

	engines       map[string]*engineState
	restartFn     map[string]func(ctx context.Context) error
	onDisabled    func(EngineDisabledEvent)
	onRecovered   func(EngineRecoveredEvent)
}

// NewWatchdog builds a Watchdog with the given policy knobs. restartFns
// maps each engine name to a close+initialize function run on a dedicated
// goroutine when a restart is attempted.
func NewWatchdog(windowMinutes, maxRestartsPerWindow, cooldownMinutes int, restartFns map[string]func(ctx context.Context) error, onDisabled func(EngineDisabledEvent), onRecovered func(EngineRecoveredEvent), logger logging.Logger) *Watchdog {
	if logger == nil {
		logger = &logging.NoOpLogger{}
	}
	engines := make(map[string]*engineState, len(restartFns))
	for name := range restartFns {
		engines[name] = &engineState{state: Healthy}
	}
	return &Watchdog{
		windowMinutes:        windowMinutes,
		maxRestartsPerWindow: maxRestartsPerWindow,
		cooldownMinutes:      cooldownMinutes,
		logger:               logger,
		engines:              engines,
		restartFn:            restartFns,
		onDisabled:           onDisabled,
		onRecovered:          onRecovered,
	}
}

// OnFailure implements the §4.N failure policy.
func (w *Watchdog) OnFailure(ev EngineFailureEvent) {
	w.mu.Lock()
	es, ok := w.engines[ev.Engine]
	if !ok {
		w.mu.Unlock()
		return
	}

	now := ev.At
	if now.IsZero() {
		now = time.Now()
	}
	w.dropStale(es, now)

	if es.state == Disabled {
		if now.After(es.cooldownUntil) {
			es.state = Restarting
			es.restarts = nil
		} else {
			w.mu.Unlock()
			return
		}
	}

	if len(es.restarts) < w.maxRestartsPerWindow {
		es.state = Restarting
		es.restarts = append(es.restarts, now)
		w.mu.Unlock()

		go w.attemptRestart(ev.Engine)
		return
	}

	es.state = Disabled
	es.cooldownUntil = now.Add(time.Duration(w.cooldownMinutes) * time.Minute)
	cooldown := es.cooldownUntil
	w.mu.Unlock()

	w.logger.Warn("stt engine disabled after exhausting restart budget", "engine", ev.Engine, "cooldown_until", cooldown)
	if w.onDisabled != nil {
		w.onDisabled(EngineDisabledEvent{Engine: ev.Engine, Cooldown: cooldown})
	}
}

// dropStale must be called with w.mu held.
func (w *Watchdog) dropStale(es *engineState, now time.Time) {
	cutoff := now.Add(-time.Duration(w.windowMinutes) * time.Minute)
	kept := es.restarts[:0]
	for _, ts := range es.restarts {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	es.restarts = kept
}

func (w *Watchdog) attemptRestart(engine string) {
	fn := w.restartFn[engine]
	if fn == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := fn(ctx); err != nil {
		w.logger.Warn("stt engine restart failed", "engine", engine, "error", err)
		return
	}
	w.OnRecovered(engine)
}

// OnRecovered implements the §4.N recovery policy: state -> HEALTHY. The
// restart-timestamp deque is deliberately not cleared, preserving memory
// of prior instability.
func (w *Watchdog) OnRecovered(engine string) {
	w.mu.Lock()
	es, ok := w.engines[engine]
	if !ok {
		w.mu.Unlock()
		return
	}
	es.state = Healthy
	w.mu.Unlock()

	if w.onRecovered != nil {
		w.onRecovered(EngineRecoveredEvent{Engine: engine})
	}
}

// IsEngineEnabled reports whether engine's state is not DISABLED.
func (w *Watchdog) IsEngineEnabled(engine string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	es, ok := w.engines[engine]
	if !ok {
		return false
	}
	return es.state != Disabled
}

// Tick opportunistically expires cooldowns without waiting for the next
// failure. Nothing in the watchdog calls this automatically; callers may
// wire it to a scheduled ticker if they want cooldown expiry decoupled
// from failure arrival (see the open-question decision in DESIGN.md).
func (w *Watchdog) Tick(now time.Time) {
	var toRestart []string

	w.mu.Lock()
	for name, es := range w.engines {
		if es.state == Disabled && now.After(es.cooldownUntil) {
			es.state = Restarting
			es.restarts = nil
			toRestart = append(toRestart, name)
		}
	}
	w.mu.Unlock()

	for _, name := range toRestart {
		go w.attemptRestart(name)
	}
}

// Snapshot reports each engine's current state, for CLI/log observability.
func (w *Watchdog) Snapshot() map[string]WatchdogState {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]WatchdogState, len(w.engines))
	for name, es := range w.engines {
		out[name] = es.state
	}
	return out
}
