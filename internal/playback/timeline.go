package playback

import (
	"math"
	"sync"
	"time"

	"github.com/alexpernaoficial/Alex-Perna/internal/audio"
)

// Keep-alive tone parameters: quiet enough to be inaudible, loud enough that
// the host keeps the output stream running.
const (
	KeepAliveGain      = 0.0001
	KeepAliveFrequency = 440.0
)

type voice struct {
	start   int64
	samples []float32
}

func (v voice) end() int64 { return v.start + int64(len(v.samples)) }

// Timeline is a sample-accurate mixer for a pull-based output device.
// Its clock advances by the number of frames rendered.
type Timeline struct {
	mu        sync.Mutex
	rate      int
	pos       int64
	voices    []voice
	keepAlive bool
	tonePhase float64
}

// NewTimeline creates a mono timeline running at rate Hz
func NewTimeline(rate int) *Timeline {
	return &Timeline{rate: rate}
}

// SampleRate returns the timeline rate in Hz
func (t *Timeline) SampleRate() int {
	return t.rate
}

// Now returns the position of the next frame to be rendered
func (t *Timeline) Now() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frameToDuration(t.pos)
}

// Schedule mixes buf into the timeline starting at the given position.
// Buffers at another rate are resampled.
func (t *Timeline) Schedule(at time.Duration, buf *audio.Buffer) {
	if buf == nil || len(buf.Samples) == 0 {
		return
	}
	samples := buf.Samples
	if buf.SampleRate > 0 && buf.SampleRate != t.rate {
		samples = audio.Resample(samples, buf.SampleRate, t.rate)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	start := t.durationToFrame(at)
	if start < t.pos {
		skip := t.pos - start
		if skip >= int64(len(samples)) {
			return
		}
		samples = samples[skip:]
		start = t.pos
	}
	t.voices = append(t.voices, voice{start: start, samples: samples})
}

// Render fills out with the next len(out) frames and advances the clock
func (t *Timeline) Render(out []float32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range out {
		out[i] = 0
	}

	from := t.pos
	to := from + int64(len(out))

	live := t.voices[:0]
	for _, v := range t.voices {
		lo := max(v.start, from)
		hi := min(v.end(), to)
		for f := lo; f < hi; f++ {
			out[f-from] += v.samples[f-v.start]
		}
		if v.end() > to {
			live = append(live, v)
		}
	}
	for i := len(live); i < len(t.voices); i++ {
		t.voices[i] = voice{}
	}
	t.voices = live

	if t.keepAlive {
		step := 2 * math.Pi * KeepAliveFrequency / float64(t.rate)
		for i := range out {
			out[i] += float32(KeepAliveGain * math.Sin(t.tonePhase))
			t.tonePhase += step
			if t.tonePhase > 2*math.Pi {
				t.tonePhase -= 2 * math.Pi
			}
		}
	}

	for i, s := range out {
		if s > 1 {
			out[i] = 1
		} else if s < -1 {
			out[i] = -1
		}
	}

	t.pos = to
}

// SetKeepAlive turns the near-silent background tone on or off
func (t *Timeline) SetKeepAlive(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.keepAlive = on
}

// Clear drops all scheduled audio immediately
func (t *Timeline) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.voices = nil
}

func (t *Timeline) frameToDuration(frames int64) time.Duration {
	return time.Duration(frames * int64(time.Second) / int64(t.rate))
}

func (t *Timeline) durationToFrame(d time.Duration) int64 {
	return int64(math.Round(d.Seconds() * float64(t.rate)))
}
