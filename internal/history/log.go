// Package history keeps the conversation log shared by voice and text chat
// and renders it as memory for the next session.
package history

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message
type Role string

const (
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleSystem Role = "system"
)

// MergeWindow is how recent the last message must be for a transcript
// fragment of the same role to be appended to it
const MergeWindow = 60 * time.Second

// DefaultMemoryTurns is how many messages the memory block carries
const DefaultMemoryTurns = 15

// Message is one entry of the conversation log
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Log is an append-only, concurrency-safe conversation log
type Log struct {
	mu       sync.RWMutex
	messages []Message
	now      func() time.Time
}

// NewLog creates a log seeded with msgs
func NewLog(msgs []Message) *Log {
	return &Log{
		messages: append([]Message(nil), msgs...),
		now:      time.Now,
	}
}

// AppendTranscript adds a streamed transcript fragment. Fragments of the
// same role arriving within MergeWindow of the last message extend it.
func (l *Log) AppendTranscript(role Role, text string) Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if n := len(l.messages); n > 0 {
		last := &l.messages[n-1]
		if last.Role == role && now.Sub(last.Timestamp) < MergeWindow {
			last.Text += text
			last.Timestamp = now
			return *last
		}
	}

	msg := Message{ID: uuid.NewString(), Role: role, Text: text, Timestamp: now}
	l.messages = append(l.messages, msg)
	return msg
}

// Add appends a complete message
func (l *Log) Add(role Role, text string) Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := Message{ID: uuid.NewString(), Role: role, Text: text, Timestamp: l.now()}
	l.messages = append(l.messages, msg)
	return msg
}

// Messages returns a copy of the log
func (l *Log) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Message(nil), l.messages...)
}

// Last returns up to n most recent messages
func (l *Log) Last(n int) []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 || n > len(l.messages) {
		n = len(l.messages)
	}
	return append([]Message(nil), l.messages[len(l.messages)-n:]...)
}

// Len returns the number of messages
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Clear removes every message
func (l *Log) Clear() {
	l.mu.Lock()
	l.messages = nil
	l.mu.Unlock()
}

// MemoryContext renders the last n messages as a block appended to the
// system instruction. It returns "" for an empty log.
func (l *Log) MemoryContext(n int) string {
	msgs := l.Last(n)
	if len(msgs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\nCONTEXTO DE CONVERSAS ANTERIORES (MEMÓRIA):\n")
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(speaker(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Text)
	}
	b.WriteString("\n\n[FIM DA MEMÓRIA - Continue a conversa a partir daqui]")
	return b.String()
}

func speaker(r Role) string {
	if r == RoleUser {
		return "Usuário"
	}
	return "Aria"
}
