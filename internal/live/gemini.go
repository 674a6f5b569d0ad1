package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alexpernaoficial/Alex-Perna/internal/failure"
	"github.com/alexpernaoficial/Alex-Perna/internal/logger"
	"github.com/alexpernaoficial/Alex-Perna/internal/media"
	"github.com/alexpernaoficial/Alex-Perna/internal/metrics"
)

// Gemini Live defaults
const (
	DefaultURL   = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	DefaultModel = "gemini-2.5-flash-native-audio-preview-09-2025"
	DefaultVoice = "Kore"

	defaultDialTimeout  = 15 * time.Second
	defaultSetupTimeout = 20 * time.Second
	writeTimeout        = 10 * time.Second
	defaultQueueSize   = 256
	maxMessageSize     = 16 * 1024 * 1024
	closeGrace         = 2 * time.Second
)

// ErrQueueFull is returned by Send when the outbound queue is saturated.
// The frame is dropped.
var ErrQueueFull = errors.New("outbound queue full")

// GeminiConfig configures the Gemini Live transport
type GeminiConfig struct {
	URL         string
	APIKey      string
	Model       string
	DialTimeout time.Duration
	// SetupTimeout bounds the wait for setupComplete after the handshake
	SetupTimeout time.Duration
	QueueSize    int
	Metrics     *metrics.Metrics
}

// GeminiTransport opens BidiGenerateContent websocket sessions
type GeminiTransport struct {
	config GeminiConfig
	dialer *websocket.Dialer
}

// NewGeminiTransport creates a transport, filling defaults for empty fields
func NewGeminiTransport(config GeminiConfig) *GeminiTransport {
	if config.URL == "" {
		config.URL = DefaultURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = defaultDialTimeout
	}
	if config.SetupTimeout <= 0 {
		config.SetupTimeout = defaultSetupTimeout
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaultQueueSize
	}

	return &GeminiTransport{
		config: config,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: config.DialTimeout,
		},
	}
}

// Open dials the model and sends the setup message. The returned Conn emits
// OpenedEvent once the model acknowledges the setup.
func (t *GeminiTransport) Open(ctx context.Context, setup Setup) (Conn, error) {
	if t.config.APIKey == "" {
		return nil, &failure.AuthError{Err: errors.New("missing API key")}
	}

	dialCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, t.config.DialTimeout)
		defer cancel()
	}

	headers := http.Header{}
	headers.Set("x-goog-api-key", t.config.APIKey)

	ws, resp, err := t.dialer.DialContext(dialCtx, t.config.URL, headers)
	if err != nil {
		if resp != nil {
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				return nil, &failure.AuthError{Err: fmt.Errorf("websocket dial rejected (status %d)", resp.StatusCode)}
			}
			return nil, &failure.TransportError{Op: "dial", URL: t.config.URL, Err: fmt.Errorf("status %d: %w", resp.StatusCode, err)}
		}
		return nil, &failure.TransportError{Op: "dial", URL: t.config.URL, Err: err}
	}
	ws.SetReadLimit(maxMessageSize)

	_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := ws.WriteJSON(newSetupMessage(t.config.Model, setup)); err != nil {
		_ = ws.Close()
		return nil, &failure.TransportError{Op: "setup", URL: t.config.URL, Err: err}
	}
	// cleared by the read loop once setupComplete arrives
	_ = ws.SetReadDeadline(time.Now().Add(t.config.SetupTimeout))

	c := &geminiConn{
		ws:           ws,
		url:          t.config.URL,
		setupTimeout: t.config.SetupTimeout,
		events:  make(chan Event, 64),
		queue:   make(chan []byte, t.config.QueueSize),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
		wdone:   make(chan struct{}),
		metrics: t.config.Metrics,
		log:     logger.With("live"),
	}
	go c.readLoop()
	go c.writeLoop()

	return c, nil
}

type geminiConn struct {
	ws           *websocket.Conn
	url          string
	setupTimeout time.Duration

	events  chan Event
	queue   chan []byte
	closing chan struct{}
	done    chan struct{} // read loop finished
	wdone   chan struct{} // write loop finished

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool
	seq       atomic.Uint64

	metrics *metrics.Metrics
	log     *slog.Logger
}

func (c *geminiConn) Events() <-chan Event {
	return c.events
}

// Send enqueues a media frame. It never blocks: a full queue drops the frame.
func (c *geminiConn) Send(frame media.Frame) error {
	msg := realtimeInputMessage{RealtimeInput: realtimeInput{MediaChunks: []media.Frame{frame}}}
	if err := c.enqueue(msg); err != nil {
		if errors.Is(err, ErrQueueFull) {
			c.metrics.FrameDropped(frame.Kind())
		}
		return err
	}
	c.metrics.FrameSent(frame.Kind())
	return nil
}

// SendText sends a complete user text turn
func (c *geminiConn) SendText(text string) error {
	return c.enqueue(clientContentMessage{ClientContent: clientContent{
		Turns:        []content{{Role: "user", Parts: []part{{Text: text}}}},
		TurnComplete: true,
	}})
}

func (c *geminiConn) enqueue(msg any) error {
	if c.closed.Load() {
		return failure.ErrNotConnected
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	select {
	case c.queue <- data:
		return nil
	default:
		return ErrQueueFull
	}
}

func (c *geminiConn) writeLoop() {
	defer close(c.wdone)
	for {
		select {
		case <-c.closing:
			return
		case data := <-c.queue:
			c.writeMu.Lock()
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := c.ws.WriteMessage(websocket.TextMessage, data)
			c.writeMu.Unlock()
			if err != nil {
				// a failed write leaves the socket unusable; closing it
				// makes the read loop report the failure
				c.log.Warn("write failed", "error", err)
				_ = c.ws.Close()
				return
			}
		}
	}
}

func (c *geminiConn) readLoop() {
	defer close(c.done)
	defer close(c.events)

	opened := false
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			if !opened && isTimeout(err) {
				c.emit(ErrorEvent{Err: &failure.TransportError{Op: "setup", URL: c.url,
					Err: fmt.Errorf("no setupComplete within %s", c.setupTimeout)}})
				return
			}
			c.emit(c.classifyReadError(err))
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Warn("unreadable server message", "error", err, "bytes", len(data))
			continue
		}
		if msg.Error != nil {
			c.emit(ErrorEvent{Err: classifyAPIError(msg.Error, c.url)})
			return
		}
		if !opened && msg.SetupComplete != nil {
			opened = true
			_ = c.ws.SetReadDeadline(time.Time{})
		}
		for _, ev := range msg.eventsFor(func() uint64 { return c.seq.Add(1) }) {
			if !c.emit(ev) {
				return
			}
		}
	}
}

// emit blocks until the event is consumed or the connection is closing, so
// audio chunks are never dropped silently.
func (c *geminiConn) emit(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.closing:
		return false
	}
}

func (c *geminiConn) classifyReadError(err error) Event {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		switch {
		case isAuthClose(ce):
			return ErrorEvent{Err: &failure.AuthError{Err: fmt.Errorf("closed by server (%d): %s", ce.Code, ce.Text)}}
		case ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway:
			return ClosedEvent{Code: ce.Code, Reason: ce.Text}
		}
		return ErrorEvent{Err: &failure.TransportError{Op: "read", URL: c.url, Err: fmt.Errorf("closed by server (%d): %s", ce.Code, ce.Text)}}
	}
	return ErrorEvent{Err: &failure.TransportError{Op: "read", URL: c.url, Err: err}}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isAuthClose(ce *websocket.CloseError) bool {
	reason := strings.ToLower(ce.Text)
	if strings.Contains(reason, "api key") || strings.Contains(reason, "credential") || strings.Contains(reason, "authentication") {
		return true
	}
	return ce.Code == websocket.ClosePolicyViolation && strings.Contains(reason, "permission")
}

func classifyAPIError(e *apiError, url string) error {
	err := fmt.Errorf("api error (code %d, status %s): %s", e.Code, e.Status, e.Message)
	if e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden || e.Status == "UNAUTHENTICATED" ||
		strings.Contains(strings.ToLower(e.Message), "api key") {
		return &failure.AuthError{Err: err}
	}
	return &failure.TransportError{Op: "session", URL: url, Err: err}
}

// Close sends a close frame, closes the socket and waits for the read loop.
// Safe to call more than once and concurrently with Send.
func (c *geminiConn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.closing)
		<-c.wdone

		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(closeGrace))
		c.writeMu.Unlock()
		_ = c.ws.Close()
	})
	<-c.done
	return nil
}
