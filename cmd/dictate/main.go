// Command dictate runs the push-to-talk dictation daemon: hold a hotkey,
// speak, release, and the transcription is typed into whatever window
// currently has focus.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/dictation-core/dictation/pkg/audio"
	"github.com/dictation-core/dictation/pkg/capture"
	"github.com/dictation-core/dictation/pkg/config"
	"github.com/dictation-core/dictation/pkg/hotkey"
	"github.com/dictation-core/dictation/pkg/logging"
	"github.com/dictation-core/dictation/pkg/orchestrator"
	"github.com/dictation-core/dictation/pkg/stt"
	"github.com/dictation-core/dictation/pkg/typing"
)

func main() {
	configPath := flag.String("config", "", "path to an optional dictate.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dictate: loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewZapLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "dictate: building logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		logger.Error("initializing audio context", "error", err)
		os.Exit(1)
	}
	defer mctx.Uninit()

	primary, secondary := buildEngines(cfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := primary.Initialize(ctx); err != nil {
		cancel()
		logger.Error("initializing primary engine", "engine", primary.Name(), "error", err)
		os.Exit(1)
	}
	cancel()
	defer primary.Close(context.Background())
	defer secondary.Close(context.Background())

	var watchdog *stt.Watchdog
	if cfg.WatchdogEnabled {
		watchdog = stt.NewWatchdog(
			int(cfg.WatchdogWindow.Minutes()),
			cfg.WatchdogMaxRestarts,
			int(cfg.WatchdogCooldown.Minutes()),
			map[string]func(context.Context) error{
				primary.Name():   restartFn(primary),
				secondary.Name(): restartFn(secondary),
			},
			func(ev stt.EngineDisabledEvent) {
				logger.Warn("engine disabled", "engine", ev.Engine, "cooldown_until", ev.Cooldown)
			},
			func(ev stt.EngineRecoveredEvent) {
				logger.Info("engine recovered", "engine", ev.Engine)
			},
			logger,
		)
	}

	validator := audio.NewValidator(int(cfg.AudioMinDuration.Milliseconds()), int(cfg.AudioMaxDuration.Milliseconds()))

	// orch is constructed below but the capture service needs a handle to
	// its OnCaptureError before orch exists; the closure forwards through
	// this pointer, assigned once orch is built.
	var orch *orchestrator.Orchestrator
	captureSvc := audio.NewCaptureService(
		audio.NewMalgoCapturerFactory(mctx),
		cfg.CaptureDeviceName,
		cfg.CaptureChunkMs,
		int(cfg.CaptureMaxDuration.Milliseconds()),
		validator,
		logger,
		func(ev audio.CaptureErrorEvent) {
			if orch != nil {
				orch.OnCaptureError(ev)
			}
		},
	)

	typingChain := buildTypingChain(cfg, logger)
	notifyAdapter := typing.NewNotifyAdapter(logger)

	orchCfg := orchestrator.Config{
		PrimaryEngineName:   primary.Name(),
		SecondaryEngineName: secondary.Name(),
		ReconcileEnabled:    cfg.STTReconcileEnabled,
		DispatchDeadlineMs:  int(cfg.STTTimeout.Milliseconds()),
	}

	orch = orchestrator.New(
		orchCfg,
		capture.NewStateMachine(),
		captureSvc,
		primary, secondary,
		watchdog,
		buildReconciler(cfg),
		typingChain,
		notifyAdapter,
		logger,
		func(ev orchestrator.TranscriptionCompletedEvent) {
			fmt.Printf("\r\033[K[%s] %s\n", ev.EngineUsed, ev.Result.Text)
			bd := orch.GetLatencyBreakdown()
			logger.Debug("latency breakdown",
				"press_to_capture_start_ms", bd.PressToCaptureStart,
				"release_to_dispatch_start_ms", bd.ReleaseToDispatchStart,
				"dispatch_to_reconcile_ms", bd.DispatchToReconcile,
				"reconcile_to_typed_ms", bd.ReconcileToTyped,
			)
		},
	)

	trigger := buildTrigger(cfg)
	manager := hotkey.NewManager(trigger)
	manager.Subscribe(orch.OnPress, orch.OnRelease)

	keySource := hotkey.NewEvdevSource(cfg.HotkeyDevicePath, logger)
	if err := keySource.Register(manager.HandleEvent); err != nil {
		logger.Error("registering key source", "device", cfg.HotkeyDevicePath, "error", err)
		os.Exit(1)
	}
	defer keySource.Unregister()

	fmt.Printf("dictate ready: trigger=%s key=%s primary=%s secondary=%s\n",
		trigger.Name(), cfg.HotkeyKey, primary.Name(), secondary.Name())
	fmt.Println("hold the configured hotkey to dictate, Ctrl+C to exit")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	fmt.Println("\nshutting down...")
	captureSvc.Shutdown(2 * time.Second)
}

func buildEngines(cfg config.Config, logger logging.Logger) (stt.Engine, stt.Engine) {
	onFailure := func(ev stt.EngineFailureEvent) {
		logger.Warn("engine concurrency failure", "engine", ev.Engine, "reason", ev.Reason)
	}

	primary := stt.NewInProcessEngine(stt.InProcessConfig{
		ModelPath:        envOr("DICTATE_VOSK_MODEL_PATH", "./models/vosk"),
		SampleRate:       float64(audio.SampleRateHz),
		ConcurrencyMax:   int64(cfg.STTPrimaryMax),
		AcquireTimeoutMs: int(cfg.STTAcquireTimeout.Milliseconds()),
	}, onFailure, logger)

	secondary := stt.NewSubprocessEngine(stt.SubprocessEngineConfig{
		Binary:           envOr("DICTATE_WHISPER_BINARY", "whisper-cpp"),
		ModelPath:        envOr("DICTATE_WHISPER_MODEL_PATH", "./models/ggml-base.bin"),
		Language:         envOr("DICTATE_WHISPER_LANGUAGE", "en"),
		Threads:          4,
		TimeoutSeconds:   int(cfg.STTTimeout.Seconds()) + 5,
		MaxStdoutBytes:   1 << 20,
		ConcurrencyMax:   int64(cfg.STTSecondaryMax),
		AcquireTimeoutMs: int(cfg.STTAcquireTimeout.Milliseconds()),
	}, stt.NewSubprocessManager(), onFailure, logger)

	return primary, secondary
}

func restartFn(engine stt.Engine) func(context.Context) error {
	return func(ctx context.Context) error {
		_ = engine.Close(ctx)
		return engine.Initialize(ctx)
	}
}

func buildReconciler(cfg config.Config) stt.Reconciler {
	switch cfg.STTReconcileStrategy {
	case "CONFIDENCE":
		return stt.NewConfidenceReconciler(stt.Primary)
	case "OVERLAP":
		return stt.NewOverlapReconciler(stt.Primary, cfg.STTOverlapThreshold)
	default:
		return stt.NewSimplePreferenceReconciler(stt.Primary)
	}
}

func buildTrigger(cfg config.Config) hotkey.Trigger {
	mods := hotkey.NewModifierSet()
	for _, m := range cfg.HotkeyModifiers {
		mods[hotkey.Modifier(strings.ToUpper(m))] = struct{}{}
	}

	switch cfg.HotkeyTrigger {
	case "DOUBLE_TAP":
		return hotkey.NewDoubleTapTrigger(cfg.HotkeyKey, cfg.HotkeyThreshold.Milliseconds())
	case "MODIFIER_COMBO":
		return hotkey.NewModifierComboTrigger(mods, cfg.HotkeyKey)
	default:
		return hotkey.NewSingleKeyTrigger(cfg.HotkeyKey, mods)
	}
}

// buildTypingChain assembles the ordered delivery chain: synthetic paste
// first (requires an input-injection binary on PATH), then clipboard-only
// unless disabled, then notify as the terminal tier.
func buildTypingChain(cfg config.Config, logger logging.Logger) *typing.Chain {
	var adapters []typing.Adapter

	binary, args := pasteCommand(cfg.TypingPasteShortcut)
	if binary != "" {
		adapters = append(adapters, typing.NewPasteAdapter(
			typing.PasteShortcut(cfg.TypingPasteShortcut),
			binary, args,
			cfg.TypingChunkSize,
			cfg.TypingInterChunkDelay,
			logger,
		))
	}

	if cfg.TypingClipboardOnlyFallback {
		adapters = append(adapters, typing.NewClipboardAdapter(
			typing.NewlineMode(cfg.TypingNormalizeNewlines),
			cfg.TypingTrimTrailingNewline,
			cfg.TypingRestoreClipboard,
			cfg.TypingFocusDelay,
			logger,
		))
	}

	adapters = append(adapters, typing.NewNotifyAdapter(logger))

	return typing.NewChain(adapters, logger,
		func(ev typing.TypingFallbackEvent) {
			logger.Warn("typing tier fell back", "tier", ev.Tier, "reason", ev.Reason)
		},
		func(ev typing.AllTypingFallbacksFailedEvent) {
			logger.Error("all typing tiers failed", "reason", ev.Reason)
		},
	)
}

// pasteCommand resolves the external keystroke-injection binary and chord
// arguments for the configured shortcut, selecting a per-platform default
// when shortcut is AUTO. Returns an empty binary if no lookup is possible
// on this GOOS, letting CanDeliver's own exec.LookPath check (and the
// clipboard/notify tiers behind it) handle the fallback.
func pasteCommand(shortcut string) (string, []string) {
	chord := "ctrl+v"
	if shortcut == string(typing.PasteMetaV) {
		chord = "super+v"
	}

	switch runtime.GOOS {
	case "darwin":
		script := `tell application "System Events" to keystroke "v" using command down`
		return "osascript", []string{"-e", script}
	case "linux":
		if _, err := exec.LookPath("ydotool"); err == nil {
			return "ydotool", []string{"key", chord}
		}
		return "xdotool", []string{"key", "--clearmodifiers", chord}
	default:
		return "", nil
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
