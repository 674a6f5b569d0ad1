// Package live is the duplex connection to the real-time speech model.
package live

import (
	"context"

	"github.com/alexpernaoficial/Alex-Perna/internal/media"
)

// Role identifies who spoke a transcript
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Setup is sent once when the connection opens
type Setup struct {
	SystemInstruction string
	Voice             string
}

// Transport opens duplex connections to the remote model
type Transport interface {
	Open(ctx context.Context, setup Setup) (Conn, error)
}

// Conn is one open duplex connection. Send and SendText never block; Events
// is closed after the connection ends.
type Conn interface {
	Send(frame media.Frame) error
	SendText(text string) error
	Events() <-chan Event
	Close() error
}

// Event is a tagged union of everything a Conn reports
type Event interface {
	liveEvent()
}

// OpenedEvent means the model accepted the setup and is ready for media
type OpenedEvent struct{}

// TranscriptEvent is recognized speech of the user or the model
type TranscriptEvent struct {
	Role Role
	Text string
}

// AudioEvent carries one chunk of base64 response PCM. Seq increases by one
// per chunk in arrival order.
type AudioEvent struct {
	Seq      uint64
	MIMEType string
	Data     string
}

// TextEvent is a text part of a model turn
type TextEvent struct {
	Text string
}

// InterruptedEvent means the model's turn was cut off (barge-in)
type InterruptedEvent struct{}

// TurnCompleteEvent marks the end of a model turn
type TurnCompleteEvent struct{}

// ClosedEvent means the remote side closed the connection normally
type ClosedEvent struct {
	Code   int
	Reason string
}

// ErrorEvent is a fatal connection error. Err is classified with the
// failure package types.
type ErrorEvent struct {
	Err error
}

func (OpenedEvent) liveEvent()       {}
func (TranscriptEvent) liveEvent()   {}
func (AudioEvent) liveEvent()        {}
func (TextEvent) liveEvent()         {}
func (InterruptedEvent) liveEvent()  {}
func (TurnCompleteEvent) liveEvent() {}
func (ClosedEvent) liveEvent()       {}
func (ErrorEvent) liveEvent()        {}
