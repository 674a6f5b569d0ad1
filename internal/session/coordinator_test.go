package session

import (
	"context"
	"encoding/base64"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexpernaoficial/Alex-Perna/internal/audio"
	"github.com/alexpernaoficial/Alex-Perna/internal/failure"
	"github.com/alexpernaoficial/Alex-Perna/internal/live"
	"github.com/alexpernaoficial/Alex-Perna/internal/media"
	"github.com/alexpernaoficial/Alex-Perna/internal/screen"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

// fakeCapturer delivers blocks pushed by the test
type fakeCapturer struct {
	blocks   chan audio.Block
	errs     chan error
	mu       sync.Mutex
	started   bool
	stops     int
	suspended bool
	resumes   int
	stopOnce  sync.Once
}

func newFakeCapturer() *fakeCapturer {
	return &fakeCapturer{blocks: make(chan audio.Block, 8), errs: make(chan error, 1)}
}

func (f *fakeCapturer) Start(context.Context) error {
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()
	return nil
}

func (f *fakeCapturer) Stop() error {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
	f.stopOnce.Do(func() {
		close(f.blocks)
		close(f.errs)
	})
	return nil
}

func (f *fakeCapturer) Blocks() <-chan audio.Block { return f.blocks }
func (f *fakeCapturer) Errors() <-chan error       { return f.errs }

func (f *fakeCapturer) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started && f.stops == 0
}

func (f *fakeCapturer) Suspended() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.suspended
}

func (f *fakeCapturer) Resume() error {
	f.mu.Lock()
	f.suspended = false
	f.resumes++
	f.mu.Unlock()
	return nil
}

func (f *fakeCapturer) suspend() {
	f.mu.Lock()
	f.suspended = true
	f.mu.Unlock()
}

func (f *fakeCapturer) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

type scheduled struct {
	at  time.Duration
	buf *audio.Buffer
}

// fakeOutput is a manual clock that records scheduled buffers
type fakeOutput struct {
	mu        sync.Mutex
	now       time.Duration
	scheduled []scheduled
	keepAlive bool
	suspended bool
	resumes   int
	closes    int
}

func (f *fakeOutput) Now() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeOutput) set(d time.Duration) {
	f.mu.Lock()
	f.now = d
	f.mu.Unlock()
}

func (f *fakeOutput) Schedule(at time.Duration, buf *audio.Buffer) {
	f.mu.Lock()
	f.scheduled = append(f.scheduled, scheduled{at: at, buf: buf})
	f.mu.Unlock()
}

func (f *fakeOutput) SampleRate() int { return audio.OutputSampleRate }

func (f *fakeOutput) SetKeepAlive(on bool) {
	f.mu.Lock()
	f.keepAlive = on
	f.mu.Unlock()
}

func (f *fakeOutput) Resume() error {
	f.mu.Lock()
	f.suspended = false
	f.resumes++
	f.mu.Unlock()
	return nil
}

func (f *fakeOutput) Suspended() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.suspended
}

func (f *fakeOutput) Close() error {
	f.mu.Lock()
	f.closes++
	f.mu.Unlock()
	return nil
}

func (f *fakeOutput) starts() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.scheduled))
	for i, s := range f.scheduled {
		out[i] = s.at
	}
	return out
}

func (f *fakeOutput) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

func (f *fakeOutput) keepAliveOn() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keepAlive
}

// fakeConn records outgoing traffic and replays events pushed by the test
type fakeConn struct {
	events chan live.Event
	mu     sync.Mutex
	frames []media.Frame
	texts  []string
	closed bool
	closes int
}

func newFakeConn() *fakeConn {
	return &fakeConn{events: make(chan live.Event, 32)}
}

func (f *fakeConn) Send(frame media.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return failure.ErrNotConnected
	}
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeConn) SendText(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return failure.ErrNotConnected
	}
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeConn) Events() <-chan live.Event { return f.events }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.closes++
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) sent(kind string) []media.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []media.Frame
	for _, fr := range f.frames {
		if fr.Kind() == kind {
			out = append(out, fr)
		}
	}
	return out
}

func (f *fakeConn) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeTransport hands out conn, or err, or blocks until ctx ends when hold
// is set
type fakeTransport struct {
	conn    *fakeConn
	err     error
	hold    bool
	entered chan struct{}
	setups  []live.Setup
	mu      sync.Mutex
}

func (f *fakeTransport) Open(ctx context.Context, setup live.Setup) (live.Conn, error) {
	f.mu.Lock()
	f.setups = append(f.setups, setup)
	f.mu.Unlock()

	if f.entered != nil {
		close(f.entered)
	}
	if f.hold {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.conn, nil
}

// recorder collects observer notifications
type recorder struct {
	mu          sync.Mutex
	states      []State
	levels      []float64
	errs        []error
	transcripts []live.TranscriptEvent
	screens     []bool
}

func (r *recorder) OnState(s State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *recorder) OnTranscript(t live.TranscriptEvent) {
	r.mu.Lock()
	r.transcripts = append(r.transcripts, t)
	r.mu.Unlock()
}

func (r *recorder) OnLevel(l float64) {
	r.mu.Lock()
	r.levels = append(r.levels, l)
	r.mu.Unlock()
}

func (r *recorder) OnError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *recorder) OnScreenShare(active bool) {
	r.mu.Lock()
	r.screens = append(r.screens, active)
	r.mu.Unlock()
}

func (r *recorder) snapshot() ([]State, []float64, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...), append([]float64(nil), r.levels...), append([]error(nil), r.errs...)
}

type harness struct {
	coord     *Coordinator
	capturer  *fakeCapturer
	output    *fakeOutput
	conn      *fakeConn
	transport *fakeTransport
	rec       *recorder
	outputs   int
}

func newHarness(t *testing.T, tweak func(*Config)) *harness {
	t.Helper()
	h := &harness{
		capturer: newFakeCapturer(),
		output:   &fakeOutput{},
		conn:     newFakeConn(),
		rec:      &recorder{},
	}
	h.transport = &fakeTransport{conn: h.conn}

	cfg := Config{
		Transport: h.transport,
		NewCapturer: func(audio.CaptureConfig) (audio.Capturer, error) {
			return h.capturer, nil
		},
		Capture: audio.CaptureConfig{SampleRate: audio.InputSampleRate, BlockSize: 4},
		NewOutput: func() (Output, error) {
			h.outputs++
			return h.output, nil
		},
		KeepAlive: true,
	}
	if tweak != nil {
		tweak(&cfg)
	}
	h.coord = New(cfg, h.rec)
	t.Cleanup(h.coord.Disconnect)
	return h
}

func (h *harness) connect(t *testing.T) {
	t.Helper()
	h.conn.events <- live.OpenedEvent{}
	require.NoError(t, h.coord.Connect(context.Background(), live.Setup{Voice: "Kore"}))
	require.Equal(t, Connected, h.coord.State())
}

func pcm(samples int) string {
	return base64.StdEncoding.EncodeToString(make([]byte, samples*2))
}

func TestConnect_StreamsSilentBlocks(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)

	for i := 0; i < 3; i++ {
		h.capturer.blocks <- audio.Block{0, 0, 0, 0}
	}

	require.Eventually(t, func() bool { return len(h.conn.sent("audio")) == 3 }, waitFor, tick)
	for _, f := range h.conn.sent("audio") {
		assert.Equal(t, media.MIMETypePCM16k, f.MIMEType)
		raw, err := base64.StdEncoding.DecodeString(f.Data)
		require.NoError(t, err)
		assert.Equal(t, make([]byte, 8), raw)
	}

	states, levels, _ := h.rec.snapshot()
	assert.Equal(t, []State{Connecting, Connected}, states)
	assert.Equal(t, []float64{0, 0, 0}, levels)
	assert.Equal(t, []live.Setup{{Voice: "Kore"}}, h.transport.setups)
}

func TestConnect_MutedSendsSilence(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)
	require.NoError(t, h.coord.SetMuted(true))
	assert.True(t, h.coord.Muted())

	h.capturer.blocks <- audio.Block{0.9, -0.9, 0.9, -0.9}
	h.capturer.blocks <- audio.Block{0.9, -0.9, 0.9, -0.9}

	require.Eventually(t, func() bool { return len(h.conn.sent("audio")) == 2 }, waitFor, tick)
	for _, f := range h.conn.sent("audio") {
		raw, _ := base64.StdEncoding.DecodeString(f.Data)
		assert.Equal(t, make([]byte, 8), raw)
	}
	_, levels, _ := h.rec.snapshot()
	assert.Equal(t, []float64{0, 0}, levels)
}

func TestConnect_SchedulesAudioGaplessly(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)

	chunk := pcm(2400) // 100ms at 24kHz
	h.conn.events <- live.AudioEvent{Seq: 1, MIMEType: media.MIMETypePCM24k, Data: chunk}
	h.conn.events <- live.AudioEvent{Seq: 2, MIMEType: media.MIMETypePCM24k, Data: chunk}

	require.Eventually(t, func() bool { return len(h.output.starts()) == 2 }, waitFor, tick)
	assert.Equal(t, []time.Duration{0, 100 * time.Millisecond}, h.output.starts())

	h.output.set(150 * time.Millisecond)
	h.conn.events <- live.AudioEvent{Seq: 3, MIMEType: media.MIMETypePCM24k, Data: chunk}
	require.Eventually(t, func() bool { return len(h.output.starts()) == 3 }, waitFor, tick)
	assert.Equal(t, 200*time.Millisecond, h.output.starts()[2])

	h.output.set(160 * time.Millisecond)
	h.conn.events <- live.InterruptedEvent{}
	h.conn.events <- live.AudioEvent{Seq: 4, MIMEType: media.MIMETypePCM24k, Data: chunk}
	require.Eventually(t, func() bool { return len(h.output.starts()) == 4 }, waitFor, tick)
	assert.Equal(t, 160*time.Millisecond, h.output.starts()[3])
}

func TestConnect_OddLengthChunkIsDropped(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)

	h.conn.events <- live.AudioEvent{Seq: 1, MIMEType: media.MIMETypePCM24k, Data: base64.StdEncoding.EncodeToString([]byte{1, 2, 3})}
	h.conn.events <- live.AudioEvent{Seq: 2, MIMEType: media.MIMETypePCM24k, Data: pcm(240)}

	require.Eventually(t, func() bool { return len(h.output.starts()) == 1 }, waitFor, tick)
	assert.Equal(t, Connected, h.coord.State())
	_, _, errs := h.rec.snapshot()
	assert.Empty(t, errs)
}

func TestConnect_ResumesSuspendedOutput(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)
	h.output.mu.Lock()
	h.output.suspended = true
	h.output.mu.Unlock()

	h.conn.events <- live.AudioEvent{Seq: 1, MIMEType: media.MIMETypePCM24k, Data: pcm(240)}
	require.Eventually(t, func() bool { return len(h.output.starts()) == 1 }, waitFor, tick)
	assert.False(t, h.output.Suspended())
}

func TestConnect_ForwardsTranscripts(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)

	h.conn.events <- live.TranscriptEvent{Role: live.RoleUser, Text: "oi"}
	h.conn.events <- live.TranscriptEvent{Role: live.RoleModel, Text: "olá"}

	require.Eventually(t, func() bool {
		h.rec.mu.Lock()
		defer h.rec.mu.Unlock()
		return len(h.rec.transcripts) == 2
	}, waitFor, tick)
	assert.Equal(t, "olá", h.rec.transcripts[1].Text)
}

func TestDisconnect_IsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)
	assert.True(t, h.output.keepAliveOn())

	h.coord.Disconnect()
	h.coord.Disconnect()

	assert.Equal(t, Disconnected, h.coord.State())
	assert.Equal(t, 1, h.capturer.stopCount())
	assert.Equal(t, 1, h.output.closeCount())
	assert.True(t, h.conn.isClosed())
	assert.False(t, h.output.keepAliveOn())

	states, _, errs := h.rec.snapshot()
	assert.Equal(t, []State{Connecting, Connected, Disconnected}, states)
	assert.Empty(t, errs)
}

func TestDisconnect_WithoutSession(t *testing.T) {
	h := newHarness(t, nil)
	h.coord.Disconnect()

	assert.Equal(t, Disconnected, h.coord.State())
	states, _, _ := h.rec.snapshot()
	assert.Empty(t, states)
}

func TestDisconnect_DuringDial(t *testing.T) {
	h := newHarness(t, nil)
	h.transport.hold = true
	h.transport.entered = make(chan struct{})

	errCh := make(chan error, 1)
	go func() { errCh <- h.coord.Connect(context.Background(), live.Setup{}) }()

	<-h.transport.entered
	h.coord.Disconnect()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, failure.ErrAborted)
	case <-time.After(waitFor):
		t.Fatal("connect did not return")
	}

	assert.Equal(t, Disconnected, h.coord.State())
	assert.Equal(t, 1, h.capturer.stopCount())
	assert.Equal(t, 1, h.output.closeCount())
	_, _, errs := h.rec.snapshot()
	assert.Empty(t, errs)
}

func TestDisconnect_BeforeOpened(t *testing.T) {
	h := newHarness(t, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- h.coord.Connect(context.Background(), live.Setup{}) }()

	require.Eventually(t, func() bool {
		h.transport.mu.Lock()
		defer h.transport.mu.Unlock()
		return len(h.transport.setups) == 1
	}, waitFor, tick)

	h.coord.Disconnect()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, failure.ErrAborted)
	case <-time.After(waitFor):
		t.Fatal("connect did not return")
	}

	require.Eventually(t, h.conn.isClosed, waitFor, tick)
	assert.Equal(t, Disconnected, h.coord.State())

	// a late open from the torn down connection is ignored
	h.conn.events <- live.OpenedEvent{}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, Disconnected, h.coord.State())
}

func TestConnect_ContextCancelled(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := h.coord.Connect(ctx, live.Setup{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Disconnected, h.coord.State())
	assert.Equal(t, 1, h.capturer.stopCount())
}

func TestConnect_AuthFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.transport.err = &failure.AuthError{Err: errors.New("API key not valid")}

	err := h.coord.Connect(context.Background(), live.Setup{})
	require.Error(t, err)
	assert.True(t, failure.IsAuth(err))
	assert.Equal(t, Error, h.coord.State())

	states, _, errs := h.rec.snapshot()
	assert.Equal(t, []State{Connecting, Error}, states)
	require.Len(t, errs, 1)
	assert.True(t, failure.IsAuth(errs[0]))
	assert.Equal(t, 1, h.capturer.stopCount())
	assert.Equal(t, 1, h.output.closeCount())
}

func TestConnect_MicrophoneDenied(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.NewCapturer = func(audio.CaptureConfig) (audio.Capturer, error) {
			return nil, errors.New("device busy")
		}
	})

	err := h.coord.Connect(context.Background(), live.Setup{})
	assert.True(t, failure.IsPermission(err))
	assert.Equal(t, Error, h.coord.State())
	assert.Equal(t, 0, h.outputs)
	assert.Empty(t, h.transport.setups)
}

func TestConnect_WhileActive(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)

	err := h.coord.Connect(context.Background(), live.Setup{})
	assert.ErrorIs(t, err, failure.ErrSessionActive)
	assert.Equal(t, Connected, h.coord.State())
}

func TestSession_ErrorEventEndsSession(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)

	boom := &failure.TransportError{Op: "read", Err: errors.New("reset")}
	h.conn.events <- live.ErrorEvent{Err: boom}

	require.Eventually(t, func() bool {
		_, _, errs := h.rec.snapshot()
		return len(errs) == 1
	}, waitFor, tick)
	assert.Equal(t, Error, h.coord.State())
	_, _, errs := h.rec.snapshot()
	assert.ErrorIs(t, errs[0], boom)
	require.Eventually(t, h.conn.isClosed, waitFor, tick)

	h.coord.Disconnect()
	assert.Equal(t, Disconnected, h.coord.State())
}

func TestSession_ClosedEventDisconnects(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)

	h.conn.events <- live.ClosedEvent{Code: 1000, Reason: "bye"}
	require.Eventually(t, func() bool { return h.coord.State() == Disconnected }, waitFor, tick)
	assert.Equal(t, 1, h.capturer.stopCount())
}

func TestSession_ClosedBeforeSetupFailsConnect(t *testing.T) {
	h := newHarness(t, nil)
	h.conn.events <- live.ClosedEvent{Code: 1000, Reason: "bye"}

	err := h.coord.Connect(context.Background(), live.Setup{})
	var te *failure.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "setup", te.Op)
	assert.Contains(t, err.Error(), "bye")
	assert.Equal(t, Error, h.coord.State())

	states, _, errs := h.rec.snapshot()
	assert.Equal(t, []State{Connecting, Error}, states)
	require.Len(t, errs, 1)
	assert.ErrorAs(t, errs[0], &te)
	assert.Equal(t, 1, h.capturer.stopCount())
}

func TestSession_EventsClosedBeforeSetupFailsConnect(t *testing.T) {
	h := newHarness(t, nil)
	close(h.conn.events)

	err := h.coord.Connect(context.Background(), live.Setup{})
	var te *failure.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, Error, h.coord.State())
	_, _, errs := h.rec.snapshot()
	assert.Len(t, errs, 1)
}

func TestDisconnect_StopsLevelUpdates(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)

	for i := 0; i < 4; i++ {
		h.capturer.blocks <- audio.Block{0.5, -0.5, 0.5, -0.5}
	}
	require.Eventually(t, func() bool {
		_, levels, _ := h.rec.snapshot()
		return len(levels) > 0
	}, waitFor, tick)

	h.coord.Disconnect()
	_, before, _ := h.rec.snapshot()
	time.Sleep(30 * time.Millisecond)
	_, after, _ := h.rec.snapshot()
	assert.Equal(t, before, after)
}

func TestSetMuted_RequiresSession(t *testing.T) {
	h := newHarness(t, nil)
	assert.ErrorIs(t, h.coord.SetMuted(true), failure.ErrNotConnected)
	assert.ErrorIs(t, h.coord.SendText("oi"), failure.ErrNotConnected)
}

func TestSetMuted_UnmuteResumesOutput(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)
	h.output.mu.Lock()
	h.output.suspended = true
	h.output.mu.Unlock()

	require.NoError(t, h.coord.SetMuted(false))
	assert.False(t, h.output.Suspended())
}

func TestSetMuted_UnmuteResumesCapture(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)
	require.NoError(t, h.coord.SetMuted(true))
	h.capturer.suspend()

	require.NoError(t, h.coord.SetMuted(true))
	assert.True(t, h.capturer.Suspended(), "muting leaves a suspended microphone alone")

	require.NoError(t, h.coord.SetMuted(false))
	assert.False(t, h.capturer.Suspended())
	h.capturer.mu.Lock()
	defer h.capturer.mu.Unlock()
	assert.Equal(t, 1, h.capturer.resumes)
}

func TestSendText(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)

	require.NoError(t, h.coord.SendText("qual a previsão?"))
	assert.Equal(t, []string{"qual a previsão?"}, h.conn.sentTexts())
}

type oneShotScreen struct{}

func (oneShotScreen) Grab(context.Context) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 16, 16)), nil
}
func (oneShotScreen) Close() error { return nil }

func TestScreenShare(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.NewScreenSource = func() (screen.Source, error) { return oneShotScreen{}, nil }
		c.Screen = screen.Config{Interval: 5 * time.Millisecond}
	})

	assert.ErrorIs(t, h.coord.StartScreenShare(context.Background()), failure.ErrNotConnected)

	h.connect(t)
	require.NoError(t, h.coord.StartScreenShare(context.Background()))
	assert.True(t, h.coord.ScreenSharing())

	require.Eventually(t, func() bool { return len(h.conn.sent("image")) > 0 }, waitFor, tick)
	assert.Equal(t, media.MIMETypeJPEG, h.conn.sent("image")[0].MIMEType)

	h.coord.StopScreenShare()
	require.Eventually(t, func() bool { return !h.coord.ScreenSharing() }, waitFor, tick)

	h.rec.mu.Lock()
	defer h.rec.mu.Unlock()
	assert.Equal(t, []bool{true, false}, h.rec.screens)
}

func TestScreenShare_Unavailable(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.NewScreenSource = func() (screen.Source, error) {
			return nil, &failure.PermissionError{Resource: "display", Err: errors.New("denied")}
		}
	})
	h.connect(t)

	err := h.coord.StartScreenShare(context.Background())
	assert.True(t, failure.IsPermission(err))
	assert.Equal(t, Connected, h.coord.State())
}

func TestProactiveNudge(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		vad := audio.DefaultVADConfig()
		c.VAD = &vad
		c.ProactiveAfter = 50 * time.Millisecond
		c.Nudge = "diga algo"
	})
	h.connect(t)

	require.Eventually(t, func() bool { return len(h.conn.sentTexts()) > 0 }, waitFor, tick)
	assert.Equal(t, "diga algo", h.conn.sentTexts()[0])

	time.Sleep(250 * time.Millisecond)
	assert.Len(t, h.conn.sentTexts(), 1, "one nudge per silent stretch")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "connected", Connected.String())
	assert.Equal(t, "error", Error.String())
}
