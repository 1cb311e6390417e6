package stt

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/dictation-core/dictation/pkg/audio"
	"github.com/dictation-core/dictation/pkg/logging"
)

// SubprocessEngineConfig configures the whisper-equivalent engine.
type SubprocessEngineConfig struct {
	Binary           string
	ModelPath        string
	Language         string
	Threads          int
	TimeoutSeconds   int
	MaxStdoutBytes   int
	ConcurrencyMax   int64
	AcquireTimeoutMs int
}

// whisperResult is the subprocess binary's JSON output contract.
type whisperResult struct {
	Text     string `json:"text"`
	Segments []struct {
		Text  string `json:"text"`
		Words []struct {
			Word string `json:"word"`
		} `json:"words"`
	} `json:"segments"`
}

// SubprocessEngine spawns an external binary per call via a
// SubprocessManager, wrapping the PCM as a temp WAV file first.
type SubprocessEngine struct {
	cfg     SubprocessEngineConfig
	manager *SubprocessManager
	guard   *Guard
	logger  logging.Logger
	tempDir string
}

// NewSubprocessEngine builds an engine around cfg and manager. logger
// defaults to a no-op sink.
func NewSubprocessEngine(cfg SubprocessEngineConfig, manager *SubprocessManager, onFailure FailureListener, logger logging.Logger) *SubprocessEngine {
	if logger == nil {
		logger = &logging.NoOpLogger{}
	}
	e := &SubprocessEngine{cfg: cfg, manager: manager, logger: logger}
	e.guard = NewGuard(e.Name(), cfg.ConcurrencyMax, onFailure)
	return e
}

func (e *SubprocessEngine) Name() string { return "whisper-equivalent" }

// Initialize/Close are no-ops: the subprocess engine holds no persistent
// native state, only per-call temp files and the external process.
func (e *SubprocessEngine) Initialize(ctx context.Context) error { return nil }
func (e *SubprocessEngine) Close(ctx context.Context) error      { return nil }

// Transcribe implements §4.J: wrap pcm as a WAV temp file, invoke the
// manager, parse its JSON stdout, delete the temp file, release the guard.
func (e *SubprocessEngine) Transcribe(ctx context.Context, pcm []byte) (EngineResult, error) {
	if len(pcm) == 0 {
		return EngineResult{}, ErrInvalidArgument
	}

	if !e.guard.Acquire(ctx, e.cfg.AcquireTimeoutMs) {
		return EngineResult{}, ErrConcurrencyLimit
	}
	defer e.guard.Release()

	wavPath, err := e.writeTempWav(pcm)
	if err != nil {
		return EngineResult{}, err
	}
	defer os.Remove(wavPath)

	start := time.Now()
	stdout, err := e.manager.Transcribe(ctx, wavPath, SubprocessConfig{
		Binary:         e.cfg.Binary,
		ModelPath:      e.cfg.ModelPath,
		Language:       e.cfg.Language,
		Threads:        e.cfg.Threads,
		TimeoutSeconds: e.cfg.TimeoutSeconds,
		JSONFlags:      []string{"-oj"},
		MaxStdoutBytes: e.cfg.MaxStdoutBytes,
	})
	if err != nil {
		return EngineResult{}, err
	}

	text, tokens := e.parseResult(stdout)
	return EngineResult{
		Text:       text,
		Confidence: 1.0,
		Tokens:     tokens,
		DurationMs: uint32(time.Since(start).Milliseconds()),
		EngineName: e.Name(),
		RawJSON:    stdout,
	}, nil
}

func (e *SubprocessEngine) writeTempWav(pcm []byte) (string, error) {
	f, err := os.CreateTemp(e.tempDir, "dictation-*.wav")
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := f.Write(audio.NewWavBuffer(pcm)); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// parseResult wraps parseWhisperResult with the warn-and-continue logging
// §4.J requires for malformed subprocess stdout.
func (e *SubprocessEngine) parseResult(stdout string) (string, []string) {
	if len(stdout) >= e.cfg.MaxStdoutBytes {
		e.logger.Warn("whisper stdout truncated, continuing with partial result",
			"bytes", len(stdout), "max_bytes", e.cfg.MaxStdoutBytes)
	}
	var probe json.RawMessage
	if err := json.Unmarshal([]byte(stdout), &probe); err != nil {
		e.logger.Warn("whisper stdout JSON parse error, continuing with empty result", "error", err)
	}
	return parseWhisperResult(stdout)
}

// parseWhisperResult implements §4.J's text/tokens extraction: prefer
// top-level text, else concatenate non-blank segment texts; tokens prefer
// segment word lists, else tokenize the resolved text.
func parseWhisperResult(stdout string) (text string, tokens []string) {
	var result whisperResult
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		return "", nil
	}

	text = strings.TrimSpace(result.Text)
	if text == "" {
		var parts []string
		for _, seg := range result.Segments {
			trimmed := strings.TrimSpace(seg.Text)
			if trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		text = strings.Join(parts, " ")
	}

	var wordTokens []string
	for _, seg := range result.Segments {
		for _, w := range seg.Words {
			wordTokens = append(wordTokens, tokenize(w.Word)...)
		}
	}
	if len(wordTokens) > 0 {
		return text, wordTokens
	}
	return text, tokenize(text)
}
