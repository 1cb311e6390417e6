// Package audio owns the fixed PCM format contract, the bounded ring
// buffer a capture session writes into, duration validation, and the
// capture service that drives a microphone line end to end.
package audio

// Fixed format: 16 kHz, 16-bit signed little-endian, mono. Every other
// component in this repo consumes raw PCM in this exact format; only the
// WAV wrapper (for the subprocess STT engine) ever touches a header.
const (
	SampleRateHz = 16000
	BitsPerSample = 16
	Channels      = 1
	BlockAlign    = Channels * BitsPerSample / 8 // 2
	ByteRate      = SampleRateHz * BlockAlign    // 32000
)

// BytesForDuration converts a duration in milliseconds to a byte count at
// the fixed format's byte rate.
func BytesForDuration(ms int) int {
	return ms * ByteRate / 1000
}

// DurationMs converts a byte count back to milliseconds at the fixed
// format's byte rate.
func DurationMs(bytes int) int {
	return bytes * 1000 / ByteRate
}
