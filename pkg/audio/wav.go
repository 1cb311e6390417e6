package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// ErrShortWavHeader is returned by StripWavHeader when given fewer than
// the canonical 44 header bytes.
var ErrShortWavHeader = errors.New("audio: wav buffer shorter than canonical header")

const wavHeaderLen = 44

// NewWavBuffer wraps raw PCM in the fixed-format's canonical 44-byte RIFF
// header: RIFF/WAVE/fmt /data chunks, all size fields little-endian.
func NewWavBuffer(pcm []byte) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(wavHeaderLen + len(pcm))

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(Channels))
	binary.Write(buf, binary.LittleEndian, uint32(SampleRateHz))
	binary.Write(buf, binary.LittleEndian, uint32(ByteRate))
	binary.Write(buf, binary.LittleEndian, uint16(BlockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(BitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}

// StripWavHeader returns the PCM payload of a canonical 44-byte-header WAV
// buffer, i.e. the inverse of NewWavBuffer.
func StripWavHeader(wav []byte) ([]byte, error) {
	if len(wav) < wavHeaderLen {
		return nil, ErrShortWavHeader
	}
	pcm := make([]byte, len(wav)-wavHeaderLen)
	copy(pcm, wav[wavHeaderLen:])
	return pcm, nil
}
