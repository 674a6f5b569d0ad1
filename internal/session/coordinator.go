package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alexpernaoficial/Alex-Perna/internal/audio"
	"github.com/alexpernaoficial/Alex-Perna/internal/failure"
	"github.com/alexpernaoficial/Alex-Perna/internal/live"
	"github.com/alexpernaoficial/Alex-Perna/internal/logger"
	"github.com/alexpernaoficial/Alex-Perna/internal/metrics"
	"github.com/alexpernaoficial/Alex-Perna/internal/screen"
)

// DefaultNudge is sent to the model after a long user silence
const DefaultNudge = "(O usuário está em silêncio há algum tempo. Puxe assunto de forma breve e natural, sem repetir o que já foi dito.)"

// Config wires the coordinator to its devices and the model
type Config struct {
	Transport live.Transport

	// NewCapturer opens the microphone. Defaults to audio.NewCapturer.
	NewCapturer func(audio.CaptureConfig) (audio.Capturer, error)
	Capture     audio.CaptureConfig

	// NewOutput opens the playback device
	NewOutput func() (Output, error)

	// NewScreenSource opens the display. Nil disables screen sharing.
	NewScreenSource func() (screen.Source, error)
	Screen          screen.Config

	// KeepAlive plays a near-silent tone while connected
	KeepAlive bool

	// VAD enables speech detection on the outgoing audio
	VAD *audio.VADConfig

	// ProactiveAfter sends Nudge once the user has been silent this long.
	// Zero disables it.
	ProactiveAfter time.Duration
	Nudge          string

	Metrics *metrics.Metrics
}

// Coordinator owns at most one live session and drives the state machine
// Disconnected -> Connecting -> Connected -> Disconnected | Error.
type Coordinator struct {
	config   Config
	observer Observer
	log      *slog.Logger

	mu      sync.Mutex
	state   State
	current *session
}

// New creates a coordinator in the Disconnected state
func New(config Config, observer Observer) *Coordinator {
	if config.NewCapturer == nil {
		config.NewCapturer = audio.NewCapturer
	}
	if config.Capture.SampleRate == 0 {
		config.Capture = audio.DefaultConfig()
	}
	if config.Nudge == "" {
		config.Nudge = DefaultNudge
	}
	if observer == nil {
		observer = NopObserver{}
	}

	return &Coordinator{
		config:   config,
		observer: observer,
		log:      logger.With("session"),
	}
}

// State returns the current lifecycle state
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect acquires the microphone and speaker, opens the model connection
// and returns once the model acknowledges the setup. A Disconnect while
// connecting makes Connect return failure.ErrAborted and releases everything
// acquired so far.
func (c *Coordinator) Connect(ctx context.Context, setup live.Setup) error {
	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		return failure.ErrSessionActive
	}
	s := newSession(c)
	c.current = s
	c.state = Connecting
	c.mu.Unlock()

	c.notifyState(Connecting)
	started := time.Now()

	if err := s.start(ctx, setup); err != nil {
		if errors.Is(err, failure.ErrAborted) {
			c.config.Metrics.ConnectResult("aborted", time.Since(started))
			return err
		}
		c.config.Metrics.ConnectResult("error", time.Since(started))
		c.fail(s, err)
		return err
	}

	select {
	case <-s.opened:
		c.config.Metrics.ConnectResult("ok", time.Since(started))
		c.log.Info("session connected", "elapsed", time.Since(started))
		return nil
	case <-s.ended:
		c.config.Metrics.ConnectResult("error", time.Since(started))
		return s.cause()
	case <-ctx.Done():
		c.config.Metrics.ConnectResult("aborted", time.Since(started))
		c.end(s, Disconnected, failure.ErrAborted)
		return ctx.Err()
	}
}

// Disconnect tears down the active session, if any, and always leaves the
// coordinator Disconnected. It is safe to call at any time and repeatedly.
func (c *Coordinator) Disconnect() {
	c.mu.Lock()
	s := c.current
	c.current = nil
	changed := c.state != Disconnected
	c.state = Disconnected
	c.mu.Unlock()

	if changed {
		c.notifyState(Disconnected)
	}
	if s != nil {
		s.setCause(failure.ErrAborted)
		s.teardown()
	}
}

// SetMuted replaces outgoing audio with silence while muted. Unmuting also
// resumes a suspended speaker or microphone.
func (c *Coordinator) SetMuted(muted bool) error {
	s := c.active()
	if s == nil {
		return failure.ErrNotConnected
	}
	s.muted.Store(muted)
	if !muted {
		s.resumeDevices()
	}
	return nil
}

// Muted reports whether the active session is muted
func (c *Coordinator) Muted() bool {
	s := c.active()
	return s != nil && s.muted.Load()
}

// SendText sends a typed user turn over the live connection
func (c *Coordinator) SendText(text string) error {
	s := c.connected()
	if s == nil {
		return failure.ErrNotConnected
	}
	return s.conn.SendText(text)
}

// StartScreenShare begins sending display frames. It requires a connected
// session.
func (c *Coordinator) StartScreenShare(ctx context.Context) error {
	s := c.connected()
	if s == nil {
		return failure.ErrNotConnected
	}
	if c.config.NewScreenSource == nil {
		return &failure.PermissionError{Resource: "display", Err: errors.New("screen sharing unavailable")}
	}
	return s.startScreen(ctx)
}

// StopScreenShare stops sending display frames
func (c *Coordinator) StopScreenShare() {
	if s := c.active(); s != nil {
		s.stopScreen()
	}
}

// ScreenSharing reports whether display frames are being sent
func (c *Coordinator) ScreenSharing() bool {
	s := c.active()
	return s != nil && s.sharing()
}

func (c *Coordinator) active() *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Coordinator) connected() *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Connected {
		return nil
	}
	return c.current
}

// markOpened moves a connecting session to Connected. Stale sessions are
// ignored.
func (c *Coordinator) markOpened(s *session) bool {
	c.mu.Lock()
	ok := c.current == s && c.state == Connecting
	if ok {
		c.state = Connected
	}
	c.mu.Unlock()

	if ok {
		c.notifyState(Connected)
	}
	return ok
}

// fail ends s with an error and reports it
func (c *Coordinator) fail(s *session, err error) {
	if c.end(s, Error, err) {
		c.log.Warn("session failed", "error", err)
		c.observer.OnError(err)
	}
}

// end releases s and moves to state if s is still the active session. It
// reports whether the transition happened.
func (c *Coordinator) end(s *session, state State, cause error) bool {
	s.setCause(cause)

	c.mu.Lock()
	ok := c.current == s
	if ok {
		c.current = nil
		c.state = state
	}
	c.mu.Unlock()

	s.teardown()
	if ok {
		c.notifyState(state)
	}
	return ok
}

func (c *Coordinator) notifyState(state State) {
	c.config.Metrics.State(int(state))
	c.log.Debug("state changed", "state", state)
	c.observer.OnState(state)
}

func (c *Coordinator) openOutput() (Output, error) {
	if c.config.NewOutput == nil {
		return nil, &failure.PermissionError{Resource: "speaker", Err: errors.New("no output configured")}
	}
	out, err := c.config.NewOutput()
	if err != nil {
		return nil, asPermission("speaker", err)
	}
	return out, nil
}

func (c *Coordinator) openCapturer() (audio.Capturer, error) {
	capturer, err := c.config.NewCapturer(c.config.Capture)
	if err != nil {
		return nil, asPermission("microphone", err)
	}
	return capturer, nil
}

func asPermission(resource string, err error) error {
	var pe *failure.PermissionError
	if errors.As(err, &pe) {
		return err
	}
	return &failure.PermissionError{Resource: resource, Err: fmt.Errorf("open %s: %w", resource, err)}
}
