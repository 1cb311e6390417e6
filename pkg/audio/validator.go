package audio

import "errors"

// InvalidReason classifies why ErrInvalidAudio was returned.
type InvalidReason string

const (
	ReasonTooShort InvalidReason = "TOO_SHORT"
	ReasonTooLong  InvalidReason = "TOO_LONG"
	ReasonEmpty    InvalidReason = "EMPTY"
)

// ErrInvalidAudio is the sentinel wrapped with a Reason by InvalidAudioError.
var ErrInvalidAudio = errors.New("audio: buffer failed duration validation")

// InvalidAudioError carries the specific reason a buffer was rejected.
type InvalidAudioError struct {
	Reason InvalidReason
}

func (e *InvalidAudioError) Error() string {
	return "audio: invalid audio (" + string(e.Reason) + ")"
}

func (e *InvalidAudioError) Unwrap() error {
	return ErrInvalidAudio
}

// Validator enforces minimum and maximum capture duration.
type Validator struct {
	minDurationMs int
	maxDurationMs int
}

// NewValidator constructs a Validator bound to the given duration window.
func NewValidator(minDurationMs, maxDurationMs int) *Validator {
	return &Validator{minDurationMs: minDurationMs, maxDurationMs: maxDurationMs}
}

// Validate rejects pcm whose duration falls outside [minDurationMs, maxDurationMs].
func (v *Validator) Validate(pcm []byte) error {
	if len(pcm) == 0 {
		return &InvalidAudioError{Reason: ReasonEmpty}
	}
	durMs := DurationMs(len(pcm))
	if durMs < v.minDurationMs {
		return &InvalidAudioError{Reason: ReasonTooShort}
	}
	if durMs > v.maxDurationMs {
		return &InvalidAudioError{Reason: ReasonTooLong}
	}
	return nil
}
