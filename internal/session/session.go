package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alexpernaoficial/Alex-Perna/internal/audio"
	"github.com/alexpernaoficial/Alex-Perna/internal/failure"
	"github.com/alexpernaoficial/Alex-Perna/internal/live"
	"github.com/alexpernaoficial/Alex-Perna/internal/media"
	"github.com/alexpernaoficial/Alex-Perna/internal/playback"
	"github.com/alexpernaoficial/Alex-Perna/internal/screen"
)

// session holds the resources of one connection attempt. Every resource is
// attached under mu and released exactly once by teardown.
type session struct {
	coord *Coordinator
	log   *slog.Logger

	muted    atomic.Bool
	speaking atomic.Bool
	activity atomic.Int64 // unix nanos of the last speech or model output
	nudged   atomic.Bool

	opened     chan struct{}
	openedOnce sync.Once
	ended      chan struct{}

	mu        sync.Mutex
	closed    bool
	err       error
	capturer  audio.Capturer
	output    Output
	conn      live.Conn
	scheduler *playback.Scheduler
	sampler   *screen.Sampler
	abort     context.CancelFunc
	stopWork  context.CancelFunc

	// workers tracks the capture pipeline and silence watcher; teardown
	// waits for them so no callback outlives the session
	workers      sync.WaitGroup
	teardownOnce sync.Once
}

func newSession(c *Coordinator) *session {
	s := &session{
		coord:  c,
		log:    c.log,
		opened: make(chan struct{}),
		ended:  make(chan struct{}),
	}
	s.touch()
	return s
}

// start acquires devices and opens the connection. It returns
// failure.ErrAborted when the session was torn down meanwhile.
func (s *session) start(ctx context.Context, setup live.Setup) error {
	connectCtx, abort := context.WithCancel(ctx)
	defer abort()
	if !s.attach(func() { s.abort = abort }) {
		return failure.ErrAborted
	}

	capturer, err := s.coord.openCapturer()
	if err != nil {
		return s.checkAborted(err)
	}
	if !s.attach(func() { s.capturer = capturer }) {
		_ = capturer.Stop()
		return failure.ErrAborted
	}

	workCtx, stopWork := context.WithCancel(context.Background())
	if !s.attach(func() { s.stopWork = stopWork }) {
		stopWork()
		return failure.ErrAborted
	}

	if err := capturer.Start(workCtx); err != nil {
		return s.checkAborted(asPermission("microphone", err))
	}
	go s.drainCaptureErrors(capturer)

	output, err := s.coord.openOutput()
	if err != nil {
		return s.checkAborted(err)
	}
	scheduler := playback.NewScheduler(output, output)
	if !s.attach(func() { s.output, s.scheduler = output, scheduler }) {
		_ = output.Close()
		return failure.ErrAborted
	}
	if s.coord.config.KeepAlive {
		output.SetKeepAlive(true)
	}

	conn, err := s.coord.config.Transport.Open(connectCtx, setup)
	if err != nil {
		return s.checkAborted(err)
	}
	if !s.attach(func() { s.conn = conn }) {
		_ = conn.Close()
		return failure.ErrAborted
	}

	go s.loop(workCtx, conn, capturer, output, scheduler)
	return nil
}

// attach runs fn under the lock unless the session is already closed
func (s *session) attach(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	fn()
	return true
}

func (s *session) checkAborted(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return failure.ErrAborted
	}
	return err
}

func (s *session) setCause(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

func (s *session) cause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		return failure.ErrAborted
	}
	return s.err
}

// loop consumes connection events in arrival order
func (s *session) loop(ctx context.Context, conn live.Conn, capturer audio.Capturer, output Output, scheduler *playback.Scheduler) {
	var lastSeq uint64
	for {
		select {
		case <-s.ended:
			return
		case ev, ok := <-conn.Events():
			if !ok {
				s.closedByServer(0, "")
				return
			}

			switch e := ev.(type) {
			case live.OpenedEvent:
				s.onOpened(ctx, conn, capturer)

			case live.TranscriptEvent:
				s.coord.config.Metrics.Transcript(string(e.Role))
				s.touch()
				s.coord.observer.OnTranscript(e)

			case live.AudioEvent:
				if e.Seq <= lastSeq {
					s.log.Warn("audio chunk out of order", "seq", e.Seq, "last", lastSeq)
				}
				lastSeq = e.Seq
				s.play(e, output, scheduler)

			case live.TextEvent:
				s.log.Debug("model text", "text", e.Text)

			case live.InterruptedEvent:
				scheduler.Interrupt()
				s.coord.config.Metrics.Interrupted()
				s.log.Debug("model interrupted")

			case live.TurnCompleteEvent:
				s.touch()

			case live.ClosedEvent:
				s.log.Info("connection closed by server", "code", e.Code, "reason", e.Reason)
				s.closedByServer(e.Code, e.Reason)
				return

			case live.ErrorEvent:
				s.coord.fail(s, e.Err)
				return
			}
		}
	}
}

// closedByServer ends the session after the remote side went away. Before
// setupComplete that is a failed connect, afterwards a normal hang-up.
func (s *session) closedByServer(code int, reason string) {
	select {
	case <-s.opened:
		s.coord.end(s, Disconnected, nil)
	default:
		s.coord.fail(s, &failure.TransportError{
			Op:  "setup",
			Err: fmt.Errorf("connection closed before setup completed (code %d: %q)", code, reason),
		})
	}
}

// play decodes one chunk and schedules it after everything already queued.
// A chunk that cannot be decoded is dropped and the session continues.
func (s *session) play(e live.AudioEvent, output Output, scheduler *playback.Scheduler) {
	m := s.coord.config.Metrics
	m.ChunkReceived()

	buf, err := audio.DecodePCM(e.Data, media.SampleRate(e.MIMEType, audio.OutputSampleRate), output.SampleRate())
	if err != nil {
		m.DecodeFailed()
		s.log.Warn("dropping audio chunk", "seq", e.Seq, "error", err)
		return
	}

	if output.Suspended() {
		if err := output.Resume(); err != nil {
			s.log.Warn("resume output", "error", err)
		}
	}

	at := scheduler.Enqueue(buf)
	m.Scheduled(buf.Duration())
	s.touch()
	s.log.Debug("scheduled audio", "seq", e.Seq, "at", at, "duration", buf.Duration())
}

func (s *session) onOpened(ctx context.Context, conn live.Conn, capturer audio.Capturer) {
	if !s.coord.markOpened(s) {
		return
	}

	blocks := capturer.Blocks()
	discardQueued(blocks)

	var vad *audio.VAD
	if cfg := s.coord.config.VAD; cfg != nil {
		vad = audio.NewVAD(*cfg)
	}

	p := &audio.Pipeline{
		Blocks:    blocks,
		Sender:    conn,
		BlockSize: s.coord.config.Capture.BlockSize,
		Muted:     s.muted.Load,
		OnLevel: func(level float64) {
			s.coord.config.Metrics.Level(level)
			s.coord.observer.OnLevel(level)
		},
		VAD:      vad,
		OnSpeech: s.onSpeech,
		Logger:   s.log,
	}
	after := s.coord.config.ProactiveAfter
	watch := after > 0 && vad != nil
	if !s.attach(func() {
		s.workers.Add(1)
		if watch {
			s.workers.Add(1)
		}
	}) {
		return
	}

	go func() {
		defer s.workers.Done()
		_ = p.Run(ctx)
	}()
	if watch {
		go func() {
			defer s.workers.Done()
			s.watchSilence(ctx, conn, after)
		}()
	}

	s.openedOnce.Do(func() { close(s.opened) })
}

// discardQueued drops audio captured before the model was ready
func discardQueued(blocks <-chan audio.Block) {
	for {
		select {
		case _, ok := <-blocks:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (s *session) onSpeech(speaking bool) {
	s.speaking.Store(speaking)
	s.touch()
}

func (s *session) touch() {
	s.activity.Store(time.Now().UnixNano())
	s.nudged.Store(false)
}

func (s *session) idle() time.Duration {
	return time.Since(time.Unix(0, s.activity.Load()))
}

// watchSilence nudges the model once per silent stretch
func (s *session) watchSilence(ctx context.Context, conn live.Conn, after time.Duration) {
	interval := after / 4
	if interval < 100*time.Millisecond {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.speaking.Load() || s.muted.Load() || s.idle() < after {
				continue
			}
			if !s.nudged.CompareAndSwap(false, true) {
				continue
			}
			s.log.Debug("user silent, nudging model", "idle", s.idle())
			if err := conn.SendText(s.coord.config.Nudge); err != nil {
				s.log.Debug("send nudge", "error", err)
			}
		}
	}
}

func (s *session) drainCaptureErrors(capturer audio.Capturer) {
	for err := range capturer.Errors() {
		s.log.Debug("capture", "error", err)
	}
}

// resumeDevices restarts a speaker or microphone the platform stopped
// behind our back
func (s *session) resumeDevices() {
	s.mu.Lock()
	output, capturer := s.output, s.capturer
	s.mu.Unlock()
	if output != nil && output.Suspended() {
		if err := output.Resume(); err != nil {
			s.log.Warn("resume output", "error", err)
		}
	}
	if capturer != nil && capturer.Suspended() {
		if err := capturer.Resume(); err != nil {
			s.log.Warn("resume capture", "error", err)
		}
	}
}

func (s *session) startScreen(ctx context.Context) error {
	s.mu.Lock()
	if s.sampler != nil {
		s.mu.Unlock()
		return nil
	}
	conn := s.conn
	s.mu.Unlock()

	src, err := s.coord.config.NewScreenSource()
	if err != nil {
		return asPermission("display", err)
	}

	sampler := screen.NewSampler(src, conn, s.coord.config.Screen)
	attached := s.attach(func() {
		if s.sampler == nil {
			s.sampler = sampler
		}
	})
	if !attached {
		_ = src.Close()
		return failure.ErrNotConnected
	}
	if s.currentSampler() != sampler {
		_ = src.Close()
		return nil
	}

	sampler.Start(context.WithoutCancel(ctx))
	s.coord.observer.OnScreenShare(true)
	go s.awaitScreenEnd(sampler)
	return nil
}

func (s *session) awaitScreenEnd(sampler *screen.Sampler) {
	<-sampler.Done()
	s.mu.Lock()
	mine := s.sampler == sampler
	if mine {
		s.sampler = nil
	}
	s.mu.Unlock()
	if mine {
		s.log.Info("screen share ended")
		s.coord.observer.OnScreenShare(false)
	}
}

func (s *session) stopScreen() {
	if sampler := s.currentSampler(); sampler != nil {
		sampler.Stop()
	}
}

func (s *session) currentSampler() *screen.Sampler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampler
}

func (s *session) sharing() bool {
	return s.currentSampler() != nil
}

// teardown releases every acquired resource exactly once. Release errors are
// logged and never surface to callers.
func (s *session) teardown() {
	s.teardownOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		abort, stopWork := s.abort, s.stopWork
		capturer, output, conn, sampler := s.capturer, s.output, s.conn, s.sampler
		s.mu.Unlock()

		close(s.ended)
		if abort != nil {
			abort()
		}
		if sampler != nil {
			sampler.Stop()
		}
		if output != nil {
			output.SetKeepAlive(false)
		}
		if capturer != nil {
			if err := capturer.Stop(); err != nil {
				s.log.Debug("stop capture", "error", err)
			}
		}
		if stopWork != nil {
			stopWork()
		}
		s.workers.Wait()
		if output != nil {
			if err := output.Close(); err != nil {
				s.log.Debug("close output", "error", err)
			}
		}
		if conn != nil {
			if err := conn.Close(); err != nil && !errors.Is(err, failure.ErrNotConnected) {
				s.log.Debug("close connection", "error", err)
			}
		}
		s.log.Debug("session released")
	})
}
