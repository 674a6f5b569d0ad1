package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Entry is one conversation line: a transcript fragment or a chat message
type Entry struct {
	Index     int       `json:"index,omitempty"`
	Type      string    `json:"type"` // "transcript" or "chat"
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Event represents a system event
type Event struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Formatter is the interface for conversation writers
type Formatter interface {
	// WriteFragment writes a streamed transcript fragment
	WriteFragment(role, text string) error

	// WriteEntry writes a complete message
	WriteEntry(entry Entry) error

	// WriteEvent writes a system event (e.g. state changes)
	WriteEvent(eventType, message string) error

	// Flush ensures all buffered output is written
	Flush() error

	// Close closes the formatter and releases resources
	Close() error
}

// NewFormatter returns the formatter for format: console, json or text
func NewFormatter(format string, w io.Writer) (Formatter, error) {
	switch strings.ToLower(format) {
	case "console", "":
		return NewConsoleOutput(ConsoleConfig{ShowTimestamp: true, Writer: w}), nil
	case "json":
		return NewJSONFormatter(w), nil
	case "text":
		return NewPlainTextFormatter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s (valid: console, json, text)", format)
	}
}

// Speaker returns the display label for a role
func Speaker(role string) string {
	switch role {
	case "user":
		return "Você"
	case "model":
		return "Aria"
	default:
		return "Sistema"
	}
}

// JSONFormatter writes one JSON object per line
type JSONFormatter struct {
	mu      sync.Mutex
	encoder *json.Encoder
	count   int
	now     func() time.Time
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(writer io.Writer) *JSONFormatter {
	return &JSONFormatter{encoder: json.NewEncoder(writer), now: time.Now}
}

// WriteFragment writes a transcript fragment as its own object
func (j *JSONFormatter) WriteFragment(role, text string) error {
	return j.WriteEntry(Entry{Type: "transcript", Role: role, Text: text})
}

// WriteEntry writes an entry, numbering it
func (j *JSONFormatter) WriteEntry(entry Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.count++
	entry.Index = j.count
	if entry.Timestamp.IsZero() {
		entry.Timestamp = j.now()
	}
	return j.encoder.Encode(entry)
}

// WriteEvent writes a system event
func (j *JSONFormatter) WriteEvent(eventType, message string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.encoder.Encode(Event{Type: eventType, Message: message, Timestamp: j.now()})
}

// Flush is a no-op; the encoder writes immediately
func (j *JSONFormatter) Flush() error { return nil }

// Close closes the formatter
func (j *JSONFormatter) Close() error { return nil }

// PlainTextFormatter writes one line per speaker turn. Fragments of the same
// speaker are joined until the speaker changes.
type PlainTextFormatter struct {
	mu      sync.Mutex
	writer  io.Writer
	role    string
	pending strings.Builder
	started time.Time
	now     func() time.Time
}

// NewPlainTextFormatter creates a new plain text formatter
func NewPlainTextFormatter(writer io.Writer) *PlainTextFormatter {
	return &PlainTextFormatter{writer: writer, now: time.Now}
}

// WriteFragment buffers text for the current speaker
func (p *PlainTextFormatter) WriteFragment(role, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if role != p.role {
		if err := p.flushLocked(); err != nil {
			return err
		}
		p.role = role
		p.started = p.now()
	}
	p.pending.WriteString(text)
	return nil
}

// WriteEntry writes a complete message on its own line
func (p *PlainTextFormatter) WriteEntry(entry Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.flushLocked(); err != nil {
		return err
	}
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = p.now()
	}
	_, err := fmt.Fprintf(p.writer, "[%s] %s: %s\n", ts.Format("15:04:05"), Speaker(entry.Role), entry.Text)
	return err
}

// WriteEvent writes a system event
func (p *PlainTextFormatter) WriteEvent(eventType, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.flushLocked(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(p.writer, "[%s] [%s] %s\n", p.now().Format("15:04:05"), eventType, message)
	return err
}

// Flush writes the buffered turn
func (p *PlainTextFormatter) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushLocked()
}

func (p *PlainTextFormatter) flushLocked() error {
	text := strings.TrimSpace(p.pending.String())
	p.pending.Reset()
	role := p.role
	p.role = ""
	if text == "" {
		return nil
	}
	_, err := fmt.Fprintf(p.writer, "[%s] %s: %s\n", p.started.Format("15:04:05"), Speaker(role), text)
	return err
}

// Close flushes the buffered turn
func (p *PlainTextFormatter) Close() error {
	return p.Flush()
}
