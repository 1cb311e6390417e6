package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	vosk "github.com/alphacep/vosk-api/go"

	"github.com/dictation-core/dictation/pkg/logging"
)

const maxResultJSONBytes = 1 << 20 // 1 MiB

// voskCanonicalResult is vosk's default result shape.
type voskCanonicalResult struct {
	Text   string `json:"text"`
	Result []struct {
		Conf float64 `json:"conf"`
		Word string  `json:"word"`
	} `json:"result"`
}

// voskAlternativesResult is vosk's alternatives-enabled result shape.
type voskAlternativesResult struct {
	Alternatives []struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"alternatives"`
}

// InProcessConfig configures the vosk-backed in-process engine.
type InProcessConfig struct {
	ModelPath     string
	SampleRate    float64
	SilenceGapMs  int // 0 disables pause-based segmentation
	ConcurrencyMax int64
	AcquireTimeoutMs int
}

// InProcessEngine loads a native model once behind a lifecycle guard and
// constructs a fresh recognizer per transcribe call; recognizers are never
// pooled, only the model handle is.
type InProcessEngine struct {
	cfg       InProcessConfig
	lifecycle *lifecycle
	guard     *Guard
	logger    logging.Logger

	modelMu sync.Mutex
	model   *vosk.VoskModel
}

// NewInProcessEngine builds an engine around cfg. onFailure receives
// EngineFailureEvents raised by the concurrency guard. logger defaults to
// a no-op sink.
func NewInProcessEngine(cfg InProcessConfig, onFailure FailureListener, logger logging.Logger) *InProcessEngine {
	if logger == nil {
		logger = &logging.NoOpLogger{}
	}
	e := &InProcessEngine{cfg: cfg, logger: logger}
	e.guard = NewGuard(e.Name(), cfg.ConcurrencyMax, onFailure)
	e.lifecycle = newLifecycle(e.doInitialize, e.doClose)
	return e
}

func (e *InProcessEngine) Name() string { return "vosk-equivalent" }

func (e *InProcessEngine) Initialize(ctx context.Context) error { return e.lifecycle.initialize() }
func (e *InProcessEngine) Close(ctx context.Context) error      { return e.lifecycle.close() }

func (e *InProcessEngine) doInitialize() error {
	model, err := vosk.NewModel(e.cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("stt: loading vosk model: %w", err)
	}
	e.modelMu.Lock()
	e.model = model
	e.modelMu.Unlock()
	return nil
}

func (e *InProcessEngine) doClose() error {
	e.modelMu.Lock()
	defer e.modelMu.Unlock()
	if e.model != nil {
		e.model.Free()
		e.model = nil
	}
	return nil
}

// Transcribe implements §4.I: reject empty input, acquire the guard, read
// a stable model reference, build a fresh recognizer, feed the buffer,
// parse the result, release the guard.
func (e *InProcessEngine) Transcribe(ctx context.Context, pcm []byte) (EngineResult, error) {
	if len(pcm) == 0 {
		return EngineResult{}, ErrInvalidArgument
	}

	if !e.guard.Acquire(ctx, e.cfg.AcquireTimeoutMs) {
		return EngineResult{}, ErrConcurrencyLimit
	}
	defer e.guard.Release()

	e.modelMu.Lock()
	model := e.model
	e.modelMu.Unlock()
	if model == nil {
		return EngineResult{}, ErrNotInitialized
	}

	start := time.Now()
	var result EngineResult
	var err error
	if e.cfg.SilenceGapMs > 0 {
		result, err = e.transcribeWithPauses(model, pcm)
	} else {
		result, err = e.transcribeSingleSegment(model, pcm)
	}
	if err != nil {
		return EngineResult{}, err
	}
	result.DurationMs = uint32(time.Since(start).Milliseconds())
	result.EngineName = e.Name()
	return result, nil
}

func (e *InProcessEngine) transcribeSingleSegment(model *vosk.VoskModel, pcm []byte) (EngineResult, error) {
	rec, err := vosk.NewRecognizer(model, e.cfg.SampleRate)
	if err != nil {
		return EngineResult{}, fmt.Errorf("stt: creating recognizer: %w", err)
	}
	defer rec.Free()

	rec.AcceptWaveform(pcm)
	resultJSON := rec.FinalResult()
	text, confidence, tokens := e.parseResult(resultJSON)

	return EngineResult{Text: text, Confidence: confidence, Tokens: tokens, RawJSON: resultJSON}, nil
}

// parseResult wraps parseVoskResult with the warn-and-continue logging
// §4.I requires for truncated or malformed recognizer output.
func (e *InProcessEngine) parseResult(resultJSON string) (string, float64, []string) {
	if len(resultJSON) > maxResultJSONBytes {
		e.logger.Warn("vosk result JSON truncated, continuing with partial result",
			"bytes", len(resultJSON), "max_bytes", maxResultJSONBytes)
	}
	var probe json.RawMessage
	if err := json.Unmarshal([]byte(resultJSON), &probe); err != nil {
		e.logger.Warn("vosk result JSON parse error, continuing with empty result", "error", err)
	}
	return parseVoskResult(resultJSON)
}

// transcribeWithPauses splits pcm at RMS-silence boundaries and
// transcribes each non-empty segment independently, per §4.I's optional
// pause-detection behavior.
func (e *InProcessEngine) transcribeWithPauses(model *vosk.VoskModel, pcm []byte) (EngineResult, error) {
	segments := splitOnSilence(pcm, e.cfg.SilenceGapMs)
	if len(segments) <= 1 {
		return e.transcribeSingleSegment(model, pcm)
	}

	var texts []string
	var confSum float64
	var confCount int
	var rawJSONs []string

	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		res, err := e.transcribeSingleSegment(model, seg)
		if err != nil {
			return EngineResult{}, err
		}
		if res.Text != "" {
			texts = append(texts, res.Text)
		}
		confSum += res.Confidence
		confCount++
		rawJSONs = append(rawJSONs, res.RawJSON)
	}

	confidence := 1.0
	if confCount > 0 {
		confidence = confSum / float64(confCount)
	}

	joined := strings.Join(texts, "\n")
	return EngineResult{
		Text:       joined,
		Confidence: clamp01(confidence),
		Tokens:     tokenize(joined),
		RawJSON:    strings.Join(rawJSONs, "\n"),
	}, nil
}

// parseVoskResult implements the §4.I JSON contract: canonical form with
// per-word confidences, or the alternatives form, with graceful recovery
// on malformed or oversized input.
func parseVoskResult(resultJSON string) (text string, confidence float64, tokens []string) {
	if len(resultJSON) > maxResultJSONBytes {
		resultJSON = resultJSON[:maxResultJSONBytes]
	}

	var canonical voskCanonicalResult
	if err := json.Unmarshal([]byte(resultJSON), &canonical); err == nil && (canonical.Text != "" || len(canonical.Result) > 0 || looksCanonical(resultJSON)) {
		text = strings.TrimSpace(canonical.Text)
		if len(canonical.Result) == 0 {
			confidence = 1.0
		} else {
			var sum float64
			for _, w := range canonical.Result {
				sum += clamp01(w.Conf)
			}
			confidence = sum / float64(len(canonical.Result))
		}
		return text, clamp01(confidence), tokenize(text)
	}

	var alt voskAlternativesResult
	if err := json.Unmarshal([]byte(resultJSON), &alt); err == nil {
		if len(alt.Alternatives) == 0 {
			return "", 1.0, nil
		}
		first := alt.Alternatives[0]
		return strings.TrimSpace(first.Text), clamp01(first.Confidence), tokenize(first.Text)
	}

	return "", 1.0, nil
}

// looksCanonical disambiguates an empty canonical decode ({} unmarshals
// cleanly into both shapes) from a genuine alternatives-form payload.
func looksCanonical(raw string) bool {
	if strings.Contains(raw, `"alternatives"`) {
		return false
	}
	return strings.Contains(raw, `"text"`) || strings.Contains(raw, `"result"`)
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return fields
}
