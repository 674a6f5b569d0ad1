package audio

import (
	"context"
)

// CaptureConfig holds configuration for microphone capture
type CaptureConfig struct {
	// SampleRate is the capture rate in Hz; the live model expects 16000
	SampleRate uint32

	// BlockSize is the number of samples delivered per Block
	BlockSize int

	// PeriodFrames is the device callback period. Smaller = lower latency.
	PeriodFrames uint32

	// QueueBlocks is the capacity of the Blocks channel
	QueueBlocks int

	// DeviceID selects a capture device by ID or name. Empty = default device.
	DeviceID string
}

// DefaultConfig returns the capture configuration the live model expects
func DefaultConfig() CaptureConfig {
	return CaptureConfig{
		SampleRate:   InputSampleRate,
		BlockSize:    DefaultBlockSize,
		PeriodFrames: 1024,
		QueueBlocks:  8,
		DeviceID:     "",
	}
}

// Capturer is the interface for microphone capture implementations
type Capturer interface {
	// Start acquires the device and begins delivering blocks
	Start(ctx context.Context) error

	// Stop releases the device and closes the Blocks and Errors channels
	Stop() error

	// Blocks returns a channel of fixed-size blocks in capture order
	Blocks() <-chan Block

	// Errors returns a channel of non-fatal capture errors
	Errors() <-chan error

	// IsRunning returns true if capture is currently active
	IsRunning() bool

	// Suspended reports whether the backend stopped the device on its own,
	// e.g. after a route change
	Suspended() bool

	// Resume restarts a suspended device
	Resume() error
}

// NewCapturer creates the platform microphone capturer
func NewCapturer(config CaptureConfig) (Capturer, error) {
	return NewMalgoCapturer(config)
}
