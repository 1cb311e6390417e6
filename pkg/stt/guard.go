package stt

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/semaphore"
)

// EngineFailureEvent is published by engines (and the guard) whenever an
// operation fails in a way the watchdog should count against the
// engine's restart budget.
type EngineFailureEvent struct {
	Engine    string
	At        time.Time
	Reason    string
	Cause     error
	Context   string
}

// FailureListener is a static, construction-time subscriber.
type FailureListener func(EngineFailureEvent)

// Guard wraps a counting semaphore with a bounded acquire wait, emitting
// an EngineFailureEvent on timeout or context cancellation. Every guarded
// operation must release on every exit path.
type Guard struct {
	engineName string
	sem        *semaphore.Weighted
	onFailure  FailureListener
}

// NewGuard builds a Guard permitting up to max concurrent holders.
func NewGuard(engineName string, max int64, onFailure FailureListener) *Guard {
	return &Guard{
		engineName: engineName,
		sem:        semaphore.NewWeighted(max),
		onFailure:  onFailure,
	}
}

// Acquire blocks up to timeoutMs for a permit. On timeout or context
// cancellation it emits an EngineFailureEvent and returns false.
func (g *Guard) Acquire(ctx context.Context, timeoutMs int) bool {
	waitCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	if err := g.sem.Acquire(waitCtx, 1); err != nil {
		reason := "concurrency-limit"
		if ctx.Err() != nil {
			reason = "interrupted"
		}
		if g.onFailure != nil {
			g.onFailure(EngineFailureEvent{
				Engine:  g.engineName,
				At:      time.Now(),
				Reason:  reason,
				Cause:   err,
				Context: "acquireTimeoutMs=" + strconv.Itoa(timeoutMs),
			})
		}
		return false
	}
	return true
}

// Release restores one permit. Safe to call exactly once per successful Acquire.
func (g *Guard) Release() {
	g.sem.Release(1)
}
