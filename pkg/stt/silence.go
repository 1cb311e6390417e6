package stt

import (
	"math"

	"github.com/dictation-core/dictation/pkg/audio"
)

const (
	silenceWindowMs     = 20
	silenceRMSThreshold = 800
)

// splitOnSilence splits 16-bit mono PCM at RMS-silence boundaries of at
// least gapMs, evaluating 20ms windows against a fixed RMS threshold of
// 800. If no boundary is found the whole buffer is returned as a single
// segment.
func splitOnSilence(pcm []byte, gapMs int) [][]byte {
	const bytesPerSample = 2
	windowBytes := (silenceWindowMs * audio.SampleRateHz / 1000) * bytesPerSample
	if windowBytes <= 0 || len(pcm) < windowBytes {
		return [][]byte{pcm}
	}

	requiredSilentWindows := gapMs / silenceWindowMs
	if requiredSilentWindows <= 0 {
		requiredSilentWindows = 1
	}

	var segments [][]byte
	segStart := 0
	silentRun := 0
	silenceStartOffset := 0

	for offset := 0; offset+windowBytes <= len(pcm); offset += windowBytes {
		if windowRMS(pcm[offset:offset+windowBytes]) < silenceRMSThreshold {
			if silentRun == 0 {
				silenceStartOffset = offset
			}
			silentRun++
			if silentRun == requiredSilentWindows {
				if silenceStartOffset > segStart {
					segments = append(segments, pcm[segStart:silenceStartOffset])
				}
				segStart = offset + windowBytes
			}
		} else {
			silentRun = 0
		}
	}
	if segStart < len(pcm) {
		segments = append(segments, pcm[segStart:])
	}

	if len(segments) <= 1 {
		return [][]byte{pcm}
	}
	return segments
}

func windowRMS(window []byte) float64 {
	var sumSquares float64
	n := len(window) / 2
	if n == 0 {
		return 0
	}
	for i := 0; i+1 < len(window); i += 2 {
		sample := int16(uint16(window[i]) | uint16(window[i+1])<<8)
		f := float64(sample)
		sumSquares += f * f
	}
	return math.Sqrt(sumSquares / float64(n))
}
