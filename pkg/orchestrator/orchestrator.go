// Package orchestrator wires hotkey press/release edges to audio capture,
// STT dispatch, reconciliation, and the typing chain, guaranteeing exactly
// one in-flight transcription.
package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dictation-core/dictation/pkg/audio"
	"github.com/dictation-core/dictation/pkg/capture"
	"github.com/dictation-core/dictation/pkg/hotkey"
	"github.com/dictation-core/dictation/pkg/logging"
	"github.com/dictation-core/dictation/pkg/stt"
	"github.com/dictation-core/dictation/pkg/typing"
)

// Stats is a point-in-time snapshot of orchestrator throughput, exposed
// for CLI status output and tests; it is not part of the event model.
type Stats struct {
	Completed     int64
	Failed        int64
	LastLatencyMs int64
}

// LatencyBreakdown holds per-stage timings for the most recently completed
// press/release cycle, all values in milliseconds. Zero means the stage
// boundary was never reached (e.g. capture never started).
type LatencyBreakdown struct {
	PressToCaptureStart    int64 // hotkey press -> capture session started
	ReleaseToDispatchStart int64 // hotkey release -> transcription dispatch started
	DispatchToReconcile    int64 // dispatch started -> engine result(s) reconciled
	ReconcileToTyped       int64 // reconciled -> typing chain delivery attempted
}

// Config bundles the knobs the orchestrator needs beyond its collaborators.
type Config struct {
	PrimaryEngineName   string
	SecondaryEngineName string
	ReconcileEnabled    bool
	DispatchDeadlineMs  int
}

// Orchestrator is component O: it owns no audio, no engines, no clipboard
// itself, only the glue between them.
type Orchestrator struct {
	cfg Config

	captureSM  *capture.StateMachine
	captureSvc *audio.CaptureService

	primaryEngine   stt.Engine
	secondaryEngine stt.Engine
	dispatcher      *stt.Dispatcher
	reconciler      stt.Reconciler
	watchdog        *stt.Watchdog

	typingChain   *typing.Chain
	notifyAdapter *typing.NotifyAdapter
	logger        logging.Logger
	pub           *publisher

	svcMu     sync.Mutex
	activeSvc string

	completed     int64
	failed        int64
	lastLatencyMs int64

	latencyMu       sync.Mutex
	pressAt         time.Time
	captureStartAt  time.Time
	releaseAt       time.Time
	dispatchStartAt time.Time
	reconciledAt    time.Time
	typedAt         time.Time
}

// New wires an Orchestrator. watchdog and reconciler may be nil: a nil
// watchdog treats every engine as always enabled and never records
// failures; a nil reconciler forces single-engine mode regardless of
// cfg.ReconcileEnabled.
func New(
	cfg Config,
	captureSM *capture.StateMachine,
	captureSvc *audio.CaptureService,
	primaryEngine, secondaryEngine stt.Engine,
	watchdog *stt.Watchdog,
	reconciler stt.Reconciler,
	typingChain *typing.Chain,
	notifyAdapter *typing.NotifyAdapter,
	logger logging.Logger,
	listeners ...CompletionListener,
) *Orchestrator {
	if logger == nil {
		logger = &logging.NoOpLogger{}
	}
	return &Orchestrator{
		cfg:             cfg,
		captureSM:       captureSM,
		captureSvc:      captureSvc,
		primaryEngine:   primaryEngine,
		secondaryEngine: secondaryEngine,
		dispatcher:      stt.NewDispatcher(primaryEngine, secondaryEngine),
		reconciler:      reconciler,
		watchdog:        watchdog,
		typingChain:     typingChain,
		notifyAdapter:   notifyAdapter,
		logger:          logger,
		pub:             newPublisher(listeners...),
	}
}

// OnPress implements the §4.O press edge: start the state machine with a
// fresh id; a rejected start (duplicate press while one is in flight) is
// ignored silently.
func (o *Orchestrator) OnPress(ev hotkey.HotkeyPressedEvent) {
	id := uuid.NewString()
	if !o.captureSM.Start(id) {
		return
	}

	o.latencyMu.Lock()
	o.pressAt = ev.At
	o.latencyMu.Unlock()

	svcID, err := o.captureSvc.StartSession()
	if err != nil {
		o.logger.Warn("failed to start capture session", "error", err)
		o.captureSM.Cancel()
		return
	}

	o.latencyMu.Lock()
	o.captureStartAt = time.Now()
	o.latencyMu.Unlock()

	o.svcMu.Lock()
	o.activeSvc = svcID
	o.svcMu.Unlock()
}

// OnRelease implements the §4.O release edge: atomically clear the active
// id, stop and join the capture worker, read the validated PCM, dispatch
// to one or both engines, reconcile, and publish the completion event.
func (o *Orchestrator) OnRelease(ev hotkey.HotkeyReleasedEvent) {
	if _, ok := o.captureSM.Cancel(); !ok {
		return
	}

	o.latencyMu.Lock()
	o.releaseAt = ev.At
	o.latencyMu.Unlock()

	o.svcMu.Lock()
	svcID := o.activeSvc
	o.activeSvc = ""
	o.svcMu.Unlock()
	if svcID == "" {
		return
	}

	if err := o.captureSvc.StopSession(svcID); err != nil {
		o.logger.Warn("failed to stop capture session", "error", err)
		return
	}

	pcm, err := o.captureSvc.ReadAll(svcID)
	if err != nil {
		o.logger.Warn("capture rejected", "error", err)
		o.notifyFailure(err)
		return
	}

	o.transcribeAndDeliver(pcm)
}

// OnCaptureError is subscribed to CaptureErrorEvent: cancel the active
// session. The watchdog is unaffected; this is a capture-environment
// failure, not an engine failure.
func (o *Orchestrator) OnCaptureError(ev audio.CaptureErrorEvent) {
	id, ok := o.captureSM.Cancel()
	if !ok {
		return
	}
	o.svcMu.Lock()
	svcID := o.activeSvc
	o.activeSvc = ""
	o.svcMu.Unlock()

	o.logger.Warn("capture error, canceling session", "session_id", id, "reason", ev.Reason)
	if svcID != "" {
		_ = o.captureSvc.CancelSession(svcID)
	}
}

func (o *Orchestrator) transcribeAndDeliver(pcm []byte) {
	start := time.Now()
	o.latencyMu.Lock()
	o.dispatchStartAt = start
	o.latencyMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(o.cfg.DispatchDeadlineMs)*time.Millisecond)
	defer cancel()

	result, engineUsed, err := o.transcribe(ctx, pcm)
	if err != nil {
		atomic.AddInt64(&o.failed, 1)
		o.logger.Warn("transcription failed, session cleaned up silently", "error", err)
		return
	}

	o.latencyMu.Lock()
	o.reconciledAt = time.Now()
	o.latencyMu.Unlock()

	atomic.AddInt64(&o.completed, 1)
	atomic.StoreInt64(&o.lastLatencyMs, time.Since(start).Milliseconds())

	o.pub.publish(TranscriptionCompletedEvent{
		Result:     result,
		Timestamp:  time.Now(),
		EngineUsed: engineUsed,
	})

	if o.typingChain != nil {
		o.typingChain.Deliver(result.Text)
	}

	o.latencyMu.Lock()
	o.typedAt = time.Now()
	o.latencyMu.Unlock()
}

// transcribe implements the §4.O dispatch-mode choice.
func (o *Orchestrator) transcribe(ctx context.Context, pcm []byte) (stt.TranscriptionResult, string, error) {
	if o.cfg.ReconcileEnabled && o.reconciler != nil {
		pair, err := o.dispatcher.TranscribeBoth(ctx, pcm, o.cfg.DispatchDeadlineMs)
		if err != nil {
			o.reportFailureIfEngineRelated(o.cfg.PrimaryEngineName, err)
			o.reportFailureIfEngineRelated(o.cfg.SecondaryEngineName, err)
			return stt.TranscriptionResult{}, "", err
		}
		if pair.Primary == nil {
			o.reportFailureIfEngineRelated(o.cfg.PrimaryEngineName, stt.ErrTranscriptionFailed)
		}
		if pair.Secondary == nil {
			o.reportFailureIfEngineRelated(o.cfg.SecondaryEngineName, stt.ErrTranscriptionFailed)
		}
		return o.reconciler.Reconcile(pair), "reconciled", nil
	}

	engine, name, err := o.selectSingleEngine()
	if err != nil {
		return stt.TranscriptionResult{}, "", err
	}

	res, err := engine.Transcribe(ctx, pcm)
	if err != nil {
		o.reportFailureIfEngineRelated(name, err)
		return stt.TranscriptionResult{}, "", err
	}
	return stt.TranscriptionResult{
		Text:       res.Text,
		Confidence: res.Confidence,
		EngineName: res.EngineName,
		Timestamp:  time.Now().UnixMilli(),
	}, name, nil
}

// selectSingleEngine implements single-engine mode: prefer the configured
// primary if the watchdog reports it enabled, else the secondary; fail
// with ErrUnavailable if neither is.
func (o *Orchestrator) selectSingleEngine() (stt.Engine, string, error) {
	if o.isEngineEnabled(o.cfg.PrimaryEngineName) {
		return o.primaryEngine, o.cfg.PrimaryEngineName, nil
	}
	if o.isEngineEnabled(o.cfg.SecondaryEngineName) {
		return o.secondaryEngine, o.cfg.SecondaryEngineName, nil
	}
	return nil, "", stt.ErrUnavailable
}

func (o *Orchestrator) isEngineEnabled(name string) bool {
	if o.watchdog == nil {
		return true
	}
	return o.watchdog.IsEngineEnabled(name)
}

// reportFailureIfEngineRelated forwards an engine-attributable failure to
// the watchdog; concurrency-limit timeouts are already reported by the
// engine's own guard and are not double-counted here.
func (o *Orchestrator) reportFailureIfEngineRelated(engineName string, err error) {
	if o.watchdog == nil || engineName == "" || err == stt.ErrConcurrencyLimit {
		return
	}
	o.watchdog.OnFailure(stt.EngineFailureEvent{
		Engine: engineName,
		At:     time.Now(),
		Reason: err.Error(),
		Cause:  err,
	})
}

// notifyFailure routes a pre-dispatch failure (e.g. InvalidAudio) straight
// to the notify tier, bypassing paste/clipboard entirely, per §7's
// user-visible behavior.
func (o *Orchestrator) notifyFailure(err error) {
	if o.notifyAdapter == nil {
		return
	}
	o.notifyAdapter.Deliver(err.Error())
}

// Snapshot reports cumulative completion counters and the last
// transcription's wall-clock latency, for CLI status output.
func (o *Orchestrator) Snapshot() Stats {
	return Stats{
		Completed:     atomic.LoadInt64(&o.completed),
		Failed:        atomic.LoadInt64(&o.failed),
		LastLatencyMs: atomic.LoadInt64(&o.lastLatencyMs),
	}
}

// GetLatencyBreakdown returns per-stage timings for the most recently
// completed press/release cycle. A stage whose boundary timestamps are
// both unset (or out of order, e.g. a fresh cycle overwrote only some of
// them) reports zero rather than a negative duration.
func (o *Orchestrator) GetLatencyBreakdown() LatencyBreakdown {
	o.latencyMu.Lock()
	defer o.latencyMu.Unlock()

	var bd LatencyBreakdown
	if ms, ok := sinceIfAfter(o.pressAt, o.captureStartAt); ok {
		bd.PressToCaptureStart = ms
	}
	if ms, ok := sinceIfAfter(o.releaseAt, o.dispatchStartAt); ok {
		bd.ReleaseToDispatchStart = ms
	}
	if ms, ok := sinceIfAfter(o.dispatchStartAt, o.reconciledAt); ok {
		bd.DispatchToReconcile = ms
	}
	if ms, ok := sinceIfAfter(o.reconciledAt, o.typedAt); ok {
		bd.ReconcileToTyped = ms
	}
	return bd
}

// sinceIfAfter returns end-start in milliseconds when both timestamps are
// set and end is not before start.
func sinceIfAfter(start, end time.Time) (int64, bool) {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return 0, false
	}
	return end.Sub(start).Milliseconds(), true
}
