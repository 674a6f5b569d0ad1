package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the assistant.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Outbound
	FramesSent    *prometheus.CounterVec
	FramesDropped *prometheus.CounterVec
	InputLevel    prometheus.Gauge

	// Inbound
	AudioChunks    prometheus.Counter
	DecodeErrors   prometheus.Counter
	ScheduledAudio prometheus.Counter
	Interruptions  prometheus.Counter
	Transcripts    *prometheus.CounterVec

	// Session
	SessionState  prometheus.Gauge
	Sessions      *prometheus.CounterVec
	ConnectTime   prometheus.Histogram
	ChatRequests  *prometheus.CounterVec
	ChatDurations prometheus.Histogram

	registry *prometheus.Registry
}

// NewMetrics creates and registers all metrics on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		FramesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aria_frames_sent_total",
			Help: "Total number of media frames handed to the live connection",
		}, []string{"kind"}),
		FramesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aria_frames_dropped_total",
			Help: "Total number of media frames dropped because the outbound queue was full",
		}, []string{"kind"}),
		InputLevel: factory.NewGauge(prometheus.GaugeOpts{
			Name: "aria_input_level",
			Help: "RMS level of the last captured block",
		}),

		AudioChunks: factory.NewCounter(prometheus.CounterOpts{
			Name: "aria_audio_chunks_received_total",
			Help: "Total number of audio chunks received from the model",
		}),
		DecodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "aria_audio_decode_errors_total",
			Help: "Total number of audio chunks dropped because they failed to decode",
		}),
		ScheduledAudio: factory.NewCounter(prometheus.CounterOpts{
			Name: "aria_audio_scheduled_seconds_total",
			Help: "Total seconds of response audio scheduled for playback",
		}),
		Interruptions: factory.NewCounter(prometheus.CounterOpts{
			Name: "aria_interruptions_total",
			Help: "Total number of model turns interrupted",
		}),
		Transcripts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aria_transcripts_total",
			Help: "Total number of transcript events by speaker",
		}, []string{"role"}),

		SessionState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "aria_session_state",
			Help: "Current session state (0=disconnected 1=connecting 2=connected 3=error)",
		}),
		Sessions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aria_sessions_total",
			Help: "Total number of connect attempts by outcome",
		}, []string{"result"}),
		ConnectTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "aria_connect_duration_seconds",
			Help:    "Time from connect request to session opened",
			Buckets: prometheus.DefBuckets,
		}),
		ChatRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aria_chat_requests_total",
			Help: "Total number of text completion requests by outcome",
		}, []string{"result"}),
		ChatDurations: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "aria_chat_duration_seconds",
			Help:    "Text completion request latency",
			Buckets: prometheus.DefBuckets,
		}),

		registry: reg,
	}
}

// Registry returns the registry backing m
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// FrameSent counts an outbound frame
func (m *Metrics) FrameSent(kind string) {
	if m == nil {
		return
	}
	m.FramesSent.WithLabelValues(kind).Inc()
}

// FrameDropped counts a frame discarded by a full queue
func (m *Metrics) FrameDropped(kind string) {
	if m == nil {
		return
	}
	m.FramesDropped.WithLabelValues(kind).Inc()
}

// Level records the latest input RMS level
func (m *Metrics) Level(v float64) {
	if m == nil {
		return
	}
	m.InputLevel.Set(v)
}

// ChunkReceived counts an inbound audio chunk
func (m *Metrics) ChunkReceived() {
	if m == nil {
		return
	}
	m.AudioChunks.Inc()
}

// DecodeFailed counts a dropped inbound chunk
func (m *Metrics) DecodeFailed() {
	if m == nil {
		return
	}
	m.DecodeErrors.Inc()
}

// Scheduled adds d of response audio to the playback total
func (m *Metrics) Scheduled(d time.Duration) {
	if m == nil {
		return
	}
	m.ScheduledAudio.Add(d.Seconds())
}

// Interrupted counts a model interruption
func (m *Metrics) Interrupted() {
	if m == nil {
		return
	}
	m.Interruptions.Inc()
}

// Transcript counts a transcript event
func (m *Metrics) Transcript(role string) {
	if m == nil {
		return
	}
	m.Transcripts.WithLabelValues(role).Inc()
}

// State records the numeric session state
func (m *Metrics) State(v int) {
	if m == nil {
		return
	}
	m.SessionState.Set(float64(v))
}

// ConnectResult counts a connect attempt and, on success, its latency
func (m *Metrics) ConnectResult(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Sessions.WithLabelValues(result).Inc()
	if result == "ok" {
		m.ConnectTime.Observe(elapsed.Seconds())
	}
}

// ChatResult counts a text completion request
func (m *Metrics) ChatResult(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ChatRequests.WithLabelValues(result).Inc()
	m.ChatDurations.Observe(elapsed.Seconds())
}

// Serve exposes /metrics on addr until ctx is cancelled
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
