package audio

import (
	"errors"
	"testing"
)

func TestValidatorBoundaries(t *testing.T) {
	v := NewValidator(250, 300000)

	minBytes := BytesForDuration(250)
	if err := v.Validate(make([]byte, minBytes)); err != nil {
		t.Errorf("expected exact min duration to validate, got %v", err)
	}

	var invalidErr *InvalidAudioError
	if err := v.Validate(make([]byte, minBytes-1)); !errors.As(err, &invalidErr) || invalidErr.Reason != ReasonTooShort {
		t.Errorf("expected TOO_SHORT one byte under min, got %v", err)
	}
}

func TestValidatorTooLong(t *testing.T) {
	v := NewValidator(250, 1000)
	maxBytes := BytesForDuration(1000)

	var invalidErr *InvalidAudioError
	if err := v.Validate(make([]byte, maxBytes+ByteRate)); !errors.As(err, &invalidErr) || invalidErr.Reason != ReasonTooLong {
		t.Errorf("expected TOO_LONG, got %v", err)
	}
}

func TestValidatorEmpty(t *testing.T) {
	v := NewValidator(0, 300000)
	var invalidErr *InvalidAudioError
	if err := v.Validate(nil); !errors.As(err, &invalidErr) || invalidErr.Reason != ReasonEmpty {
		t.Errorf("expected EMPTY, got %v", err)
	}
}
