// Package media defines the encoded frames sent to the live model.
package media

import (
	"strconv"
	"strings"
)

// MIME types used on the wire
const (
	MIMETypePCM16k = "audio/pcm;rate=16000"
	MIMETypePCM24k = "audio/pcm;rate=24000"
	MIMETypeJPEG   = "image/jpeg"
)

// Frame is a wire-ready media payload. Data holds base64 text.
type Frame struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// IsAudio reports whether the frame carries PCM audio
func (f Frame) IsAudio() bool {
	return strings.HasPrefix(f.MIMEType, "audio/")
}

// IsImage reports whether the frame carries an image
func (f Frame) IsImage() bool {
	return strings.HasPrefix(f.MIMEType, "image/")
}

// Kind returns a short label for metrics and logs
func (f Frame) Kind() string {
	switch {
	case f.IsAudio():
		return "audio"
	case f.IsImage():
		return "image"
	default:
		return "other"
	}
}

// SampleRate parses the rate parameter of an audio MIME type such as
// "audio/pcm;rate=24000", returning fallback when absent or invalid.
func SampleRate(mimeType string, fallback int) int {
	for _, param := range strings.Split(mimeType, ";")[1:] {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || !strings.EqualFold(key, "rate") {
			continue
		}
		if rate, err := strconv.Atoi(value); err == nil && rate > 0 {
			return rate
		}
	}
	return fallback
}
