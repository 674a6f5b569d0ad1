package playback

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/alexpernaoficial/Alex-Perna/internal/audio"
	"github.com/alexpernaoficial/Alex-Perna/internal/failure"
)

// PlayerConfig holds configuration for the speaker output
type PlayerConfig struct {
	// SampleRate of the output device; response audio is 24000
	SampleRate uint32

	// PeriodFrames is the device callback period
	PeriodFrames uint32

	// DeviceID selects a playback device by ID or name. Empty = default.
	DeviceID string
}

// DefaultPlayerConfig returns the output configuration for response audio
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate:   audio.OutputSampleRate,
		PeriodFrames: 480,
	}
}

// Player renders a Timeline to a malgo playback device
type Player struct {
	timeline     *Timeline
	malgoContext *malgo.AllocatedContext
	device       *malgo.Device
	scratch      []float32

	mu        sync.Mutex // serializes Resume and Close
	suspended atomic.Bool
	closed    atomic.Bool
}

// NewPlayer opens and starts the playback device
func NewPlayer(config PlayerConfig) (*Player, error) {
	if config.SampleRate == 0 {
		config.SampleRate = audio.OutputSampleRate
	}

	p := &Player{timeline: NewTimeline(int(config.SampleRate))}

	fail := func(err error) (*Player, error) {
		return nil, &failure.PermissionError{Resource: "speaker", Err: err}
	}

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize malgo context: %w", err))
	}
	p.malgoContext = malgoCtx

	info, err := audio.FindMalgoDevice(malgoCtx, audio.DeviceTypePlayback, config.DeviceID)
	if err != nil {
		p.releaseContext()
		return fail(err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = config.SampleRate
	deviceConfig.PeriodSizeInFrames = config.PeriodFrames
	if info != nil {
		deviceConfig.Playback.DeviceID = info.ID.Pointer()
	}

	var callbacks malgo.DeviceCallbacks
	callbacks.Data = func(pOutputSample, _ []byte, framecount uint32) {
		p.render(pOutputSample, framecount)
	}
	// the backend stops the device on route changes or sleep; Close stops
	// it too, which is not a suspension
	callbacks.Stop = func() {
		if !p.closed.Load() {
			p.suspended.Store(true)
		}
	}

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		p.releaseContext()
		return fail(fmt.Errorf("failed to initialize device: %w", err))
	}
	p.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		p.releaseContext()
		return fail(fmt.Errorf("failed to start device: %w", err))
	}

	return p, nil
}

// render runs on the audio thread
func (p *Player) render(out []byte, framecount uint32) {
	n := int(framecount)
	if n*4 > len(out) {
		n = len(out) / 4
	}
	if cap(p.scratch) < n {
		p.scratch = make([]float32, n)
	}
	frames := p.scratch[:n]
	p.timeline.Render(frames)
	for i, s := range frames {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
}

// Now returns the output clock
func (p *Player) Now() time.Duration {
	return p.timeline.Now()
}

// Schedule mixes buf at the given output position
func (p *Player) Schedule(at time.Duration, buf *audio.Buffer) {
	p.timeline.Schedule(at, buf)
}

// SampleRate returns the device rate
func (p *Player) SampleRate() int {
	return p.timeline.SampleRate()
}

// SetKeepAlive toggles the near-silent background tone
func (p *Player) SetKeepAlive(on bool) {
	p.timeline.SetKeepAlive(on)
}

// Resume restarts a device the backend stopped
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed.Load() || !p.suspended.Load() {
		return nil
	}
	if err := p.device.Start(); err != nil {
		return fmt.Errorf("failed to resume playback: %w", err)
	}
	p.suspended.Store(false)
	return nil
}

// Suspended reports whether the backend stopped the device; the output
// clock does not advance meanwhile
func (p *Player) Suspended() bool {
	return p.suspended.Load()
}

// Close stops the device and releases it. Safe to call more than once.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed.Swap(true) {
		return nil
	}

	var err error
	if p.device != nil {
		if stopErr := p.device.Stop(); stopErr != nil {
			err = fmt.Errorf("failed to stop playback: %w", stopErr)
		}
		p.device.Uninit()
		p.device = nil
	}
	p.timeline.Clear()
	p.releaseContext()
	return err
}

func (p *Player) releaseContext() {
	if p.malgoContext == nil {
		return
	}
	_ = p.malgoContext.Uninit()
	p.malgoContext.Free()
	p.malgoContext = nil
}
