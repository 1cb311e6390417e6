package audio

import (
	"bytes"
	"testing"
)

func TestNewWavBuffer(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	wav := NewWavBuffer(pcm)

	if !bytes.HasPrefix(wav, []byte("RIFF")) {
		t.Errorf("expected RIFF prefix")
	}
	if !bytes.Contains(wav, []byte("WAVE")) {
		t.Errorf("expected WAVE format identifier")
	}

	expectedLen := 44 + len(pcm)
	if len(wav) != expectedLen {
		t.Errorf("expected length %d, got %d", expectedLen, len(wav))
	}
}

func TestWavRoundTrip(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	wav := NewWavBuffer(pcm)

	stripped, err := StripWavHeader(wav)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(pcm, stripped) {
		t.Errorf("round trip mismatch: got %v want %v", stripped, pcm)
	}
}

func TestWavRoundTripEmptyPCM(t *testing.T) {
	wav := NewWavBuffer(nil)
	stripped, err := StripWavHeader(wav)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stripped) != 0 {
		t.Errorf("expected empty pcm, got %d bytes", len(stripped))
	}
}

func TestStripWavHeaderTooShort(t *testing.T) {
	if _, err := StripWavHeader([]byte("short")); err != ErrShortWavHeader {
		t.Errorf("expected ErrShortWavHeader, got %v", err)
	}
}
