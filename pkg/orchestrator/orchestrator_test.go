package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dictation-core/dictation/pkg/audio"
	"github.com/dictation-core/dictation/pkg/capture"
	"github.com/dictation-core/dictation/pkg/hotkey"
	"github.com/dictation-core/dictation/pkg/stt"
)

type fakeCapturer struct {
	samples chan []byte
	errs    chan error
}

func newFakeCapturer(chunks ...[]byte) *fakeCapturer {
	c := &fakeCapturer{samples: make(chan []byte, len(chunks)+1), errs: make(chan error, 1)}
	for _, chunk := range chunks {
		c.samples <- chunk
	}
	return c
}

func (c *fakeCapturer) Samples() <-chan []byte { return c.samples }
func (c *fakeCapturer) Errors() <-chan error   { return c.errs }
func (c *fakeCapturer) Stop() error            { return nil }

type fakeEngine struct {
	name   string
	delay  time.Duration
	result stt.EngineResult
	err    error
	calls  int32
	mu     sync.Mutex
}

func (e *fakeEngine) Name() string                        { return e.name }
func (e *fakeEngine) Initialize(ctx context.Context) error { return nil }
func (e *fakeEngine) Close(ctx context.Context) error      { return nil }
func (e *fakeEngine) Transcribe(ctx context.Context, pcm []byte) (stt.EngineResult, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return stt.EngineResult{}, ctx.Err()
		}
	}
	if e.err != nil {
		return stt.EngineResult{}, e.err
	}
	return e.result, nil
}

func newTestOrchestrator(t *testing.T, primary, secondary stt.Engine, watchdog *stt.Watchdog, reconciler stt.Reconciler, reconcileEnabled bool, capturer audio.Capturer) (*Orchestrator, *capture.StateMachine, *audio.CaptureService) {
	t.Helper()
	sm := capture.NewStateMachine()
	factory := func(cfg audio.LineConfig) (audio.Capturer, error) { return capturer, nil }
	validator := audio.NewValidator(0, 10_000_000)
	svc := audio.NewCaptureService(factory, "", 20, 60000, validator, nil, nil)

	o := New(Config{
		PrimaryEngineName:   "primary",
		SecondaryEngineName: "secondary",
		ReconcileEnabled:    reconcileEnabled,
		DispatchDeadlineMs:  2000,
	}, sm, svc, primary, secondary, watchdog, reconciler, nil, nil, nil)

	return o, sm, svc
}

func TestOrchestratorHappyPathPublishesOneCompletion(t *testing.T) {
	primary := &fakeEngine{name: "primary", result: stt.EngineResult{Text: "hello", Confidence: 0.9, EngineName: "primary"}}
	capturer := newFakeCapturer([]byte{1, 2, 3, 4})

	var events []TranscriptionCompletedEvent
	var mu sync.Mutex
	o, sm, svc := newTestOrchestrator(t, primary, nil, nil, nil, false, capturer)
	o.pub = newPublisher(func(ev TranscriptionCompletedEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	_ = sm
	_ = svc

	o.OnPress(hotkey.HotkeyPressedEvent{At: time.Now()})
	time.Sleep(20 * time.Millisecond)
	o.OnRelease(hotkey.HotkeyReleasedEvent{At: time.Now()})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, "hello", events[0].Result.Text)
}

// S4: one engine fails; reconciled event carries the other's text and the
// watchdog's deque for the failing engine grows by one.
func TestScenarioS4OneEngineFails(t *testing.T) {
	primary := &fakeEngine{name: "primary", err: errors.New("boom")}
	secondary := &fakeEngine{name: "secondary", result: stt.EngineResult{Text: "fallback", Confidence: 0.9, EngineName: "secondary"}}
	capturer := newFakeCapturer([]byte{1, 2, 3, 4})

	restartFns := map[string]func(ctx context.Context) error{
		"primary": func(ctx context.Context) error { return nil },
	}
	w := stt.NewWatchdog(60, 5, 10, restartFns, nil, nil, nil)

	var events []TranscriptionCompletedEvent
	var mu sync.Mutex
	o, _, _ := newTestOrchestrator(t, primary, secondary, w, stt.NewSimplePreferenceReconciler(stt.Primary), true, capturer)
	o.pub = newPublisher(func(ev TranscriptionCompletedEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	o.OnPress(hotkey.HotkeyPressedEvent{At: time.Now()})
	time.Sleep(20 * time.Millisecond)
	o.OnRelease(hotkey.HotkeyReleasedEvent{At: time.Now()})

	mu.Lock()
	require.Len(t, events, 1)
	assert.Equal(t, "fallback", events[0].Result.Text)
	mu.Unlock()

	w.OnFailure(stt.EngineFailureEvent{Engine: "primary", At: time.Now()})
	assert.True(t, w.IsEngineEnabled("primary"), "expected only 2 total failures recorded, engine should still be enabled")
}

// S6: rapid double-press followed by one release must produce exactly
// one TranscriptionCompletedEvent and must not start a second session.
func TestScenarioS6RapidDoublePress(t *testing.T) {
	primary := &fakeEngine{name: "primary", result: stt.EngineResult{Text: "once", Confidence: 0.9, EngineName: "primary"}}
	capturer := newFakeCapturer([]byte{1, 2, 3, 4})

	var events []TranscriptionCompletedEvent
	var mu sync.Mutex
	o, _, _ := newTestOrchestrator(t, primary, nil, nil, nil, false, capturer)
	o.pub = newPublisher(func(ev TranscriptionCompletedEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	o.OnPress(hotkey.HotkeyPressedEvent{At: time.Now()})
	o.OnPress(hotkey.HotkeyPressedEvent{At: time.Now()}) // duplicate press, must be ignored
	time.Sleep(20 * time.Millisecond)
	o.OnRelease(hotkey.HotkeyReleasedEvent{At: time.Now()})

	mu.Lock()
	require.Len(t, events, 1, "expected exactly one completion event for rapid double-press")
	mu.Unlock()

	primary.mu.Lock()
	defer primary.mu.Unlock()
	assert.EqualValues(t, 1, primary.calls)
}

func TestOrchestratorCaptureErrorCancelsSession(t *testing.T) {
	primary := &fakeEngine{name: "primary", result: stt.EngineResult{Text: "x"}}
	capturer := newFakeCapturer()
	o, sm, _ := newTestOrchestrator(t, primary, nil, nil, nil, false, capturer)

	o.OnPress(hotkey.HotkeyPressedEvent{At: time.Now()})
	time.Sleep(5 * time.Millisecond)

	o.OnCaptureError(audio.CaptureErrorEvent{Reason: errors.New("line gone"), At: time.Now()})

	assert.False(t, sm.IsActive(), "expected capture state machine session to be canceled")
}

func TestOrchestratorLatencyBreakdownReportsAllStages(t *testing.T) {
	primary := &fakeEngine{name: "primary", result: stt.EngineResult{Text: "hello", Confidence: 0.9, EngineName: "primary"}}
	capturer := newFakeCapturer([]byte{1, 2, 3, 4})
	o, _, _ := newTestOrchestrator(t, primary, nil, nil, nil, false, capturer)

	o.OnPress(hotkey.HotkeyPressedEvent{At: time.Now()})
	time.Sleep(20 * time.Millisecond)
	o.OnRelease(hotkey.HotkeyReleasedEvent{At: time.Now()})

	bd := o.GetLatencyBreakdown()
	assert.GreaterOrEqual(t, bd.PressToCaptureStart, int64(0))
	assert.GreaterOrEqual(t, bd.ReleaseToDispatchStart, int64(0))
	assert.GreaterOrEqual(t, bd.DispatchToReconcile, int64(0))
	assert.GreaterOrEqual(t, bd.ReconcileToTyped, int64(0))
}

func TestOrchestratorAllEnginesDisabledReturnsUnavailable(t *testing.T) {
	primary := &fakeEngine{name: "primary", result: stt.EngineResult{Text: "x"}}
	capturer := newFakeCapturer([]byte{1, 2, 3, 4})

	restartFns := map[string]func(ctx context.Context) error{
		"primary": func(ctx context.Context) error { <-make(chan struct{}); return nil },
	}
	w := stt.NewWatchdog(60, 0, 10, restartFns, nil, nil, nil)
	w.OnFailure(stt.EngineFailureEvent{Engine: "primary", At: time.Now()})

	var events []TranscriptionCompletedEvent
	o, _, _ := newTestOrchestrator(t, primary, nil, w, nil, false, capturer)
	o.pub = newPublisher(func(ev TranscriptionCompletedEvent) {
		events = append(events, ev)
	})

	o.OnPress(hotkey.HotkeyPressedEvent{At: time.Now()})
	time.Sleep(10 * time.Millisecond)
	o.OnRelease(hotkey.HotkeyReleasedEvent{At: time.Now()})

	assert.Empty(t, events, "expected no completion event when all engines disabled")
	snap := o.Snapshot()
	assert.EqualValues(t, 1, snap.Failed)
}
