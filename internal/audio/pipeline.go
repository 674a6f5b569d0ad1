package audio

import (
	"context"
	"log/slog"

	"github.com/alexpernaoficial/Alex-Perna/internal/logger"
	"github.com/alexpernaoficial/Alex-Perna/internal/media"
)

// FrameSender accepts encoded frames. Send must not block the caller.
type FrameSender interface {
	Send(frame media.Frame) error
}

// Pipeline turns captured blocks into metered, framed sends.
type Pipeline struct {
	// Blocks is the capture source, usually Capturer.Blocks()
	Blocks <-chan Block

	// Sender receives one frame per block
	Sender FrameSender

	// BlockSize pads or truncates frames; 0 keeps the block length
	BlockSize int

	// Muted reports the session's mute flag; nil means never muted
	Muted func() bool

	// OnLevel receives the post-mute RMS of every block
	OnLevel func(level float64)

	// VAD and OnSpeech optionally report speech start (true) and end (false)
	VAD      *VAD
	OnSpeech func(speaking bool)

	Logger *slog.Logger
}

// Run processes blocks in capture order until the source closes or ctx is
// cancelled. A closed source is a silent stop, not an error.
func (p *Pipeline) Run(ctx context.Context) error {
	log := p.Logger
	if log == nil {
		log = logger.With("capture")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case block, ok := <-p.Blocks:
			if !ok {
				log.Debug("capture stream ended")
				return nil
			}
			frame := p.process(block)
			if err := p.Sender.Send(frame); err != nil {
				log.Debug("send audio frame", "error", err)
			}
		}
	}
}

func (p *Pipeline) process(block Block) media.Frame {
	if p.Muted != nil && p.Muted() {
		block.Silence()
	}

	level := RMS(block)
	if p.OnLevel != nil {
		p.OnLevel(level)
	}

	if p.VAD != nil {
		_, started, ended := p.VAD.ProcessLevel(level)
		if p.OnSpeech != nil {
			if started {
				p.OnSpeech(true)
			}
			if ended {
				p.OnSpeech(false)
			}
		}
	}

	return EncodeBlock(block, p.BlockSize)
}
