// Package audio converts synthesized speech into playable form.
package audio

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrOddLength is returned for PCM16 data that ends mid-sample.
	ErrOddLength = errors.New("pcm16 data has odd length")
	// ErrEmpty is returned for audio with no samples.
	ErrEmpty = errors.New("audio has no samples")
)

// Decode turns base64 into raw PCM16 bytes.
func Decode(b64 string) ([]byte, error) {
	pcm, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode base64 audio: %w", err)
	}
	if len(pcm) == 0 {
		return nil, ErrEmpty
	}
	if len(pcm)%2 != 0 {
		return nil, ErrOddLength
	}
	return pcm, nil
}

// Frames converts little-endian PCM16 samples to floats in [-1, 1).
func Frames(pcm []byte) []float32 {
	frames := make([]float32, len(pcm)/2)
	for i := range frames {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		frames[i] = float32(s) / 32768.0
	}
	return frames
}

// Peak returns the largest absolute frame value.
func Peak(frames []float32) float32 {
	var peak float32
	for _, f := range frames {
		if f < 0 {
			f = -f
		}
		if f > peak {
			peak = f
		}
	}
	return peak
}

// Duration returns the playing time of pcm in seconds.
func Duration(pcm []byte, sampleRate, channels int) float64 {
	if sampleRate <= 0 || channels <= 0 {
		return 0
	}
	return float64(len(pcm)/2/channels) / float64(sampleRate)
}

// WAV wraps raw PCM16 samples in a RIFF/WAVE container.
func WAV(pcm []byte, sampleRate, channels int) []byte {
	const bitsPerSample = 16
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))
	buf.WriteString("RIFF")
	writeLE(&buf, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	writeLE(&buf, uint32(16))
	writeLE(&buf, uint16(1)) // PCM
	writeLE(&buf, uint16(channels))
	writeLE(&buf, uint32(sampleRate))
	writeLE(&buf, uint32(byteRate))
	writeLE(&buf, uint16(blockAlign))
	writeLE(&buf, uint16(bitsPerSample))

	buf.WriteString("data")
	writeLE(&buf, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}

func writeLE(buf *bytes.Buffer, v any) {
	// bytes.Buffer writes never fail.
	_ = binary.Write(buf, binary.LittleEndian, v)
}
