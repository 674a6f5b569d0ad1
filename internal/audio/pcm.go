package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"math"
	"time"

	"github.com/alexpernaoficial/Alex-Perna/internal/failure"
	"github.com/alexpernaoficial/Alex-Perna/internal/media"
)

// Fixed wire rates of the live model
const (
	InputSampleRate  = 16000
	OutputSampleRate = 24000

	// DefaultBlockSize is the number of samples per captured block (256ms at 16kHz)
	DefaultBlockSize = 4096

	bytesPerSample = 2
)

// ErrOddLength is wrapped by DecodeError when a payload is not whole 16-bit samples
var ErrOddLength = errors.New("byte length is not a multiple of the sample width")

// Block is one fixed-size chunk of normalized mono samples in [-1, 1]
type Block []float32

// Silence zeroes the block in place
func (b Block) Silence() {
	for i := range b {
		b[i] = 0
	}
}

// Buffer is decoded audio ready for playback
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the playback length of the buffer
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(int64(len(b.Samples)) * int64(time.Second) / int64(b.SampleRate))
}

// EncodeBlock converts samples into a base64 16-bit little-endian PCM frame.
// The block is zero-padded or truncated to size samples; size <= 0 keeps the
// input length.
func EncodeBlock(samples []float32, size int) media.Frame {
	if size <= 0 {
		size = len(samples)
	}

	buf := make([]byte, size*bytesPerSample)
	n := len(samples)
	if n > size {
		n = size
	}
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(buf[i*bytesPerSample:], uint16(floatToPCM16(samples[i])))
	}

	return media.Frame{
		MIMEType: media.MIMETypePCM16k,
		Data:     base64.StdEncoding.EncodeToString(buf),
	}
}

// DecodePCM decodes a base64 raw 16-bit little-endian mono payload recorded at
// sourceRate. When targetRate differs the samples are linearly resampled so the
// buffer plays at the device's native rate.
func DecodePCM(payload string, sourceRate, targetRate int) (*Buffer, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, &failure.DecodeError{Length: len(payload), Err: err}
	}
	if len(raw)%bytesPerSample != 0 {
		return nil, &failure.DecodeError{Length: len(raw), Err: ErrOddLength}
	}

	samples := make([]float32, len(raw)/bytesPerSample)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(raw[i*bytesPerSample:]))) / 32768
	}

	rate := sourceRate
	if targetRate > 0 && sourceRate > 0 && targetRate != sourceRate {
		samples = Resample(samples, sourceRate, targetRate)
		rate = targetRate
	}

	return &Buffer{Samples: samples, SampleRate: rate}, nil
}

// Resample converts samples between rates with linear interpolation
func Resample(samples []float32, from, to int) []float32 {
	if from == to || from <= 0 || to <= 0 || len(samples) == 0 {
		return samples
	}

	outLen := int(math.Round(float64(len(samples)) * float64(to) / float64(from)))
	out := make([]float32, outLen)
	step := float64(from) / float64(to)
	last := len(samples) - 1

	for i := range out {
		pos := float64(i) * step
		idx := int(pos)
		if idx >= last {
			out[i] = samples[last]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = samples[idx] + (samples[idx+1]-samples[idx])*frac
	}
	return out
}

// RMS returns sqrt(mean(sample²)) of samples
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func floatToPCM16(s float32) int16 {
	if s != s { // NaN
		return 0
	}
	v := math.Round(float64(s) * 32768)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
