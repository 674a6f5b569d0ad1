package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"github.com/alexpernaoficial/Alex-Perna/internal/failure"
)

// MalgoCapturer implements the Capturer interface using malgo
type MalgoCapturer struct {
	config       CaptureConfig
	device       *malgo.Device
	malgoContext *malgo.AllocatedContext
	ring         *SampleRing
	blocks       chan Block
	errors       chan error
	running      bool
	stopping     atomic.Bool
	suspended    atomic.Bool
	mu           sync.RWMutex
	stopChan     chan struct{}
	wg           sync.WaitGroup
}

// NewMalgoCapturer creates a new malgo-based microphone capturer
func NewMalgoCapturer(config CaptureConfig) (*MalgoCapturer, error) {
	if config.BlockSize <= 0 {
		return nil, fmt.Errorf("block size must be positive, got %d", config.BlockSize)
	}
	if config.SampleRate == 0 {
		config.SampleRate = InputSampleRate
	}
	if config.QueueBlocks <= 0 {
		config.QueueBlocks = 8
	}

	return &MalgoCapturer{
		config:   config,
		ring:     NewSampleRing(config.BlockSize * 4),
		blocks:   make(chan Block, config.QueueBlocks),
		errors:   make(chan error, 10),
		stopChan: make(chan struct{}),
	}, nil
}

// Start acquires the microphone and begins delivering blocks.
// Failing to open the device is reported as a PermissionError.
func (m *MalgoCapturer) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("capturer is already running")
	}
	m.running = true
	m.mu.Unlock()

	fail := func(err error) error {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		return &failure.PermissionError{Resource: "microphone", Err: err}
	}

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize malgo context: %w", err))
	}
	m.malgoContext = malgoCtx

	info, err := findMalgoDevice(malgoCtx, malgo.Capture, m.config.DeviceID)
	if err != nil {
		m.releaseContext()
		return fail(err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = m.config.SampleRate
	deviceConfig.PeriodSizeInFrames = m.config.PeriodFrames
	if info != nil {
		deviceConfig.Capture.DeviceID = info.ID.Pointer()
	}

	var callbacks malgo.DeviceCallbacks
	callbacks.Data = func(_, pInputSamples []byte, framecount uint32) {
		m.onSamples(pInputSamples, framecount)
	}
	callbacks.Stop = func() {
		if !m.stopping.Load() {
			m.suspended.Store(true)
		}
	}

	device, err := malgo.InitDevice(m.malgoContext.Context, deviceConfig, callbacks)
	if err != nil {
		m.releaseContext()
		return fail(fmt.Errorf("failed to initialize device: %w", err))
	}
	m.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		m.releaseContext()
		return fail(fmt.Errorf("failed to start device: %w", err))
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		select {
		case <-ctx.Done():
			go m.Stop()
		case <-m.stopChan:
		}
	}()

	return nil
}

// onSamples runs on the audio thread. It re-chunks the device period into
// fixed blocks and never blocks.
func (m *MalgoCapturer) onSamples(data []byte, framecount uint32) {
	n := int(framecount)
	if n*4 > len(data) {
		n = len(data) / 4
	}
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}

	if written := m.ring.Write(samples); written < n {
		m.reportError(fmt.Errorf("sample ring overflow, dropped %d samples", n-written))
	}

	for {
		block, ok := m.ring.NextBlock(m.config.BlockSize)
		if !ok {
			return
		}
		select {
		case m.blocks <- block:
		default:
			m.reportError(fmt.Errorf("block queue full, dropping block"))
		}
	}
}

func (m *MalgoCapturer) reportError(err error) {
	select {
	case m.errors <- err:
	default:
	}
}

func (m *MalgoCapturer) releaseContext() {
	if m.malgoContext == nil {
		return
	}
	_ = m.malgoContext.Uninit()
	m.malgoContext.Free()
	m.malgoContext = nil
}

// Stop releases the microphone and closes the output channels
func (m *MalgoCapturer) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.stopping.Store(true)
	m.mu.Unlock()

	close(m.stopChan)

	var stopErr error
	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			stopErr = fmt.Errorf("failed to stop device: %w", err)
		}
		m.device.Uninit()
		m.device = nil
	}
	m.releaseContext()

	m.wg.Wait()

	close(m.blocks)
	close(m.errors)

	return stopErr
}

// Blocks returns a channel of captured blocks
func (m *MalgoCapturer) Blocks() <-chan Block {
	return m.blocks
}

// Errors returns a channel of capture errors
func (m *MalgoCapturer) Errors() <-chan error {
	return m.errors
}

// Suspended reports whether the backend stopped the device while capture
// was running
func (m *MalgoCapturer) Suspended() bool {
	return m.suspended.Load()
}

// Resume restarts a suspended device
func (m *MalgoCapturer) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running || m.device == nil || !m.suspended.Load() {
		return nil
	}
	if err := m.device.Start(); err != nil {
		return fmt.Errorf("failed to resume capture: %w", err)
	}
	m.suspended.Store(false)
	return nil
}

// IsRunning returns true if capture is currently active
func (m *MalgoCapturer) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}
