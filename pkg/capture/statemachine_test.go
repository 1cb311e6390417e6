package capture

import (
	"sync"
	"testing"
)

func TestStartOnlySucceedsOnce(t *testing.T) {
	sm := NewStateMachine()
	if !sm.Start("a") {
		t.Fatal("expected first start to succeed")
	}
	if sm.Start("b") {
		t.Error("expected second start while active to fail")
	}
	id, ok := sm.GetActive()
	if !ok || id != "a" {
		t.Errorf("expected active id to remain 'a', got %q ok=%v", id, ok)
	}
}

func TestStopOnlyMatchingID(t *testing.T) {
	sm := NewStateMachine()
	sm.Start("a")
	if sm.Stop("wrong") {
		t.Error("expected stop with wrong id to fail")
	}
	if !sm.Stop("a") {
		t.Error("expected stop with matching id to succeed")
	}
	if sm.IsActive() {
		t.Error("expected no active session after stop")
	}
}

func TestCancelReturnsPrevious(t *testing.T) {
	sm := NewStateMachine()
	if _, ok := sm.Cancel(); ok {
		t.Error("expected cancel on empty machine to report not-ok")
	}
	sm.Start("a")
	id, ok := sm.Cancel()
	if !ok || id != "a" {
		t.Errorf("expected cancel to return previous id 'a', got %q ok=%v", id, ok)
	}
	if sm.IsActive() {
		t.Error("expected no active session after cancel")
	}
}

func TestStateMachineConcurrentStartsAtMostOneWins(t *testing.T) {
	sm := NewStateMachine()
	const n = 50
	var wg sync.WaitGroup
	successes := make(chan string, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if sm.Start("session") {
				successes <- "session"
			}
		}(i)
	}
	wg.Wait()
	close(successes)

	count := 0
	for range successes {
		count++
	}
	if count != 1 {
		t.Errorf("expected exactly one successful concurrent start, got %d", count)
	}
}
