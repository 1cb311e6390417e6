package stt

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatchdogRestartsWithinBudget(t *testing.T) {
	var restarts int32
	release := make(chan struct{})
	restartFns := map[string]func(ctx context.Context) error{
		"primary": func(ctx context.Context) error {
			atomic.AddInt32(&restarts, 1)
			<-release
			return nil
		},
	}
	w := NewWatchdog(60, 1, 10, restartFns, nil, nil, nil)

	w.OnFailure(EngineFailureEvent{Engine: "primary", At: time.Now()})
	if !w.IsEngineEnabled("primary") {
		t.Error("expected engine still enabled after first failure within budget")
	}

	w.OnFailure(EngineFailureEvent{Engine: "primary", At: time.Now()})
	if w.IsEngineEnabled("primary") {
		t.Error("expected engine disabled after second failure exceeds budget of 1")
	}

	before := atomic.LoadInt32(&restarts)
	w.OnFailure(EngineFailureEvent{Engine: "primary", At: time.Now()})
	if atomic.LoadInt32(&restarts) != before {
		t.Error("expected third failure while disabled and within cooldown to not attempt another restart")
	}

	close(release)
}

func TestWatchdogDisabledPublishesEvent(t *testing.T) {
	var disabledEv *EngineDisabledEvent
	done := make(chan struct{})
	restartFns := map[string]func(ctx context.Context) error{
		"primary": func(ctx context.Context) error { return nil },
	}
	w := NewWatchdog(60, 1, 10, restartFns, func(ev EngineDisabledEvent) {
		disabledEv = &ev
		close(done)
	}, nil, nil)

	w.OnFailure(EngineFailureEvent{Engine: "primary", At: time.Now()})
	w.OnFailure(EngineFailureEvent{Engine: "primary", At: time.Now()})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for EngineDisabledEvent")
	}
	if disabledEv.Engine != "primary" {
		t.Errorf("expected disabled event for primary, got %+v", disabledEv)
	}
}

func TestWatchdogRecoveryResetsToHealthyButKeepsDeque(t *testing.T) {
	done := make(chan struct{})
	restartFns := map[string]func(ctx context.Context) error{
		"primary": func(ctx context.Context) error { return nil },
	}
	w := NewWatchdog(60, 5, 10, restartFns, nil, func(ev EngineRecoveredEvent) {
		close(done)
	}, nil)

	w.OnFailure(EngineFailureEvent{Engine: "primary", At: time.Now()})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for recovery")
	}

	if !w.IsEngineEnabled("primary") {
		t.Error("expected engine healthy (enabled) after recovery")
	}
	w.mu.Lock()
	deque := len(w.engines["primary"].restarts)
	w.mu.Unlock()
	if deque != 1 {
		t.Errorf("expected restart deque to retain its entry after recovery, got %d", deque)
	}
}
