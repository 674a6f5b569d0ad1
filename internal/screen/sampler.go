// Package screen samples a shared display and sends it as JPEG frames.
package screen

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/image/draw"

	"github.com/alexpernaoficial/Alex-Perna/internal/logger"
	"github.com/alexpernaoficial/Alex-Perna/internal/media"
)

// ErrEnded is returned by a Source once the display capture is gone
var ErrEnded = errors.New("display capture ended")

// Source produces the current frame of the shared display
type Source interface {
	Grab(ctx context.Context) (image.Image, error)
	Close() error
}

// Sender accepts encoded frames without blocking
type Sender interface {
	Send(frame media.Frame) error
}

// Config controls sampling cadence and compression
type Config struct {
	Interval    time.Duration
	MaxWidth    int
	MaxHeight   int
	Quality     int
	MaxFailures int // consecutive grab failures before the share ends
}

// DefaultConfig samples once per second at up to 1280x720, JPEG quality 60
func DefaultConfig() Config {
	return Config{
		Interval:    time.Second,
		MaxWidth:    1280,
		MaxHeight:   720,
		Quality:     60,
		MaxFailures: 3,
	}
}

// Sampler periodically grabs, downscales and sends display frames.
// Frames are independent snapshots; a failed grab is skipped.
type Sampler struct {
	source Source
	sender Sender
	config Config
	log    *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	stop      chan struct{}
	done      chan struct{}
}

// NewSampler creates a sampler; zero config fields take defaults
func NewSampler(source Source, sender Sender, config Config) *Sampler {
	def := DefaultConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.MaxWidth <= 0 {
		config.MaxWidth = def.MaxWidth
	}
	if config.MaxHeight <= 0 {
		config.MaxHeight = def.MaxHeight
	}
	if config.Quality <= 0 || config.Quality > 100 {
		config.Quality = def.Quality
	}
	if config.MaxFailures <= 0 {
		config.MaxFailures = def.MaxFailures
	}

	return &Sampler{
		source: source,
		sender: sender,
		config: config,
		log:    logger.With("screen"),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start begins sampling in the background
func (s *Sampler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, s.cancel = context.WithCancel(ctx)
		go s.run(ctx)
	})
}

// Stop ends sampling and waits for the loop to exit. Safe to call repeatedly.
func (s *Sampler) Stop() {
	s.startOnce.Do(func() { close(s.done) })
	s.stopOnce.Do(func() {
		close(s.stop)
		if s.cancel != nil {
			s.cancel()
		}
	})
	<-s.done
}

// Done is closed once sampling has ended for any reason
func (s *Sampler) Done() <-chan struct{} {
	return s.done
}

func (s *Sampler) run(ctx context.Context) {
	defer close(s.done)
	defer func() {
		if err := s.source.Close(); err != nil {
			s.log.Debug("close display source", "error", err)
		}
	}()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
		}

		img, err := s.source.Grab(ctx)
		if errors.Is(err, ErrEnded) {
			s.log.Info("display capture ended")
			return
		}
		if err != nil {
			failures++
			s.log.Warn("grab display frame", "error", err, "failures", failures)
			if failures >= s.config.MaxFailures {
				return
			}
			continue
		}
		failures = 0

		frame, err := EncodeFrame(img, s.config)
		if err != nil {
			s.log.Warn("encode display frame", "error", err)
			continue
		}
		if err := s.sender.Send(frame); err != nil {
			s.log.Debug("send display frame", "error", err)
		}
	}
}

// EncodeFrame downscales img to fit the configured bounds and encodes it as
// a base64 JPEG frame
func EncodeFrame(img image.Image, config Config) (media.Frame, error) {
	b := img.Bounds()
	w, h := fitWithin(b.Dx(), b.Dy(), config.MaxWidth, config.MaxHeight)

	var out image.Image = img
	if w != b.Dx() || h != b.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: config.Quality}); err != nil {
		return media.Frame{}, fmt.Errorf("encode jpeg: %w", err)
	}

	return media.Frame{
		MIMEType: media.MIMETypeJPEG,
		Data:     base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// fitWithin scales (w, h) down to fit (maxW, maxH) keeping the aspect ratio
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if maxW > 0 && w > maxW {
		h = h * maxW / w
		w = maxW
	}
	if maxH > 0 && h > maxH {
		w = w * maxH / h
		h = maxH
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
