// Package session coordinates one live voice conversation: microphone
// capture, the model connection, audio playback and screen sharing.
package session

import (
	"github.com/alexpernaoficial/Alex-Perna/internal/live"
	"github.com/alexpernaoficial/Alex-Perna/internal/playback"
)

// State is the lifecycle state of the coordinator
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Error
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Observer receives coordinator notifications. Callbacks run on session
// goroutines and must return quickly.
type Observer interface {
	OnState(state State)
	OnTranscript(t live.TranscriptEvent)
	OnLevel(level float64)
	OnError(err error)
	OnScreenShare(active bool)
}

// NopObserver ignores every notification. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) OnState(State)                     {}
func (NopObserver) OnTranscript(live.TranscriptEvent) {}
func (NopObserver) OnLevel(float64)                   {}
func (NopObserver) OnError(error)                     {}
func (NopObserver) OnScreenShare(bool)                {}

// Output is the playback side of a session
type Output interface {
	playback.Clock
	playback.Sink
	SampleRate() int
	SetKeepAlive(on bool)
	Resume() error
	Suspended() bool
	Close() error
}
