package gemini

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrOddSampleBuffer is returned for input that is not a whole number of float32 samples
var ErrOddSampleBuffer = errors.New("float32 sample buffer length must be a multiple of 4")

// Float32ToPCM16 converts little-endian float32 mono samples in [-1, 1] to
// little-endian signed 16-bit PCM. Out-of-range samples are clamped.
func Float32ToPCM16(samples []byte) ([]byte, error) {
	if len(samples)%4 != 0 {
		return nil, ErrOddSampleBuffer
	}

	out := make([]byte, len(samples)/2)
	for i := 0; i < len(samples)/4; i++ {
		f := math.Float32frombits(binary.LittleEndian.Uint32(samples[i*4:]))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(floatToInt16(f)))
	}
	return out, nil
}

func floatToInt16(f float32) int16 {
	if math.IsNaN(float64(f)) {
		return 0
	}
	v := float64(f) * 32768
	switch {
	case v >= math.MaxInt16:
		return math.MaxInt16
	case v <= math.MinInt16:
		return math.MinInt16
	default:
		return int16(v)
	}
}
