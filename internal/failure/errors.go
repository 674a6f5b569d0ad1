// Package failure holds the error taxonomy shared by the capture, playback
// and session layers.
package failure

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by operations that need a live session
	ErrNotConnected = errors.New("not connected")

	// ErrSessionActive is returned when a second session is requested
	ErrSessionActive = errors.New("a session is already active")

	// ErrAborted is returned by Connect when Disconnect wins the race
	ErrAborted = errors.New("connection aborted")

	// ErrNoDevice indicates the platform has no usable device of the requested kind
	ErrNoDevice = errors.New("no device available")
)

// PermissionError reports denied or unsupported microphone/display access.
type PermissionError struct {
	Resource string // "microphone", "speaker" or "display"
	Err      error
}

func (e *PermissionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s access denied", e.Resource)
	}
	return fmt.Sprintf("%s access denied: %v", e.Resource, e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// AuthError reports a credential rejected by the remote model. Callers should
// ask for a new key instead of retrying.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "authentication failed"
	}
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// DecodeError reports a malformed audio payload. The chunk is dropped.
type DecodeError struct {
	Length int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode audio payload (%d bytes): %v", e.Length, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// TransportError is a generic open or runtime failure of the live session.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsPermission reports whether err is a PermissionError
func IsPermission(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsAuth reports whether err is an AuthError
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// Describe renders err as the single human-readable line shown to the user.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case IsPermission(err):
		return "Permissão negada ao dispositivo: " + err.Error()
	case IsAuth(err):
		return "Chave de API inválida ou expirada. Configure GEMINI_API_KEY e tente novamente."
	case errors.Is(err, ErrNotConnected):
		return "Conecte-se à Aria primeiro."
	default:
		return err.Error()
	}
}
