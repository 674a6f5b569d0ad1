package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const levelBarWidth = 30

// ConsoleOutput renders the conversation and status lines on a terminal
type ConsoleOutput struct {
	mu            sync.Mutex
	writer        io.Writer
	errWriter     io.Writer
	showTimestamp bool
	role          string // speaker of the open transcript line
	levelShown    bool
}

// ConsoleConfig configures console output behavior
type ConsoleConfig struct {
	// ShowTimestamp prefixes each line with a timestamp
	ShowTimestamp bool

	// Writer is the output destination (default: os.Stdout)
	Writer io.Writer

	// ErrWriter receives error messages (default: os.Stderr)
	ErrWriter io.Writer
}

// NewConsoleOutput creates a new console output handler
func NewConsoleOutput(config ConsoleConfig) *ConsoleOutput {
	writer := config.Writer
	if writer == nil {
		writer = os.Stdout
	}
	errWriter := config.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}

	return &ConsoleOutput{
		writer:        writer,
		errWriter:     errWriter,
		showTimestamp: config.ShowTimestamp,
	}
}

// DefaultConsoleOutput creates a console output with default settings
func DefaultConsoleOutput() *ConsoleOutput {
	return NewConsoleOutput(ConsoleConfig{ShowTimestamp: true})
}

func (c *ConsoleOutput) prefix() string {
	if !c.showTimestamp {
		return ""
	}
	return fmt.Sprintf("[%s] ", time.Now().Format("15:04:05"))
}

// clearLevelLocked wipes the level meter so regular lines start clean
func (c *ConsoleOutput) clearLevelLocked() {
	if c.levelShown {
		fmt.Fprintf(c.writer, "\r%s\r", strings.Repeat(" ", levelBarWidth+20))
		c.levelShown = false
	}
}

// closeLineLocked ends an open transcript line
func (c *ConsoleOutput) closeLineLocked() {
	if c.role != "" {
		fmt.Fprintln(c.writer)
		c.role = ""
	}
}

// WriteFragment continues the current speaker's line or starts a new one
func (c *ConsoleOutput) WriteFragment(role, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLevelLocked()
	if role != c.role {
		c.closeLineLocked()
		fmt.Fprintf(c.writer, "%s%s: ", c.prefix(), Speaker(role))
		c.role = role
		text = strings.TrimLeft(text, " ")
	}
	fmt.Fprint(c.writer, text)
	return nil
}

// WriteEntry writes a complete message
func (c *ConsoleOutput) WriteEntry(entry Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLevelLocked()
	c.closeLineLocked()
	fmt.Fprintf(c.writer, "%s%s: %s\n", c.prefix(), Speaker(entry.Role), entry.Text)
	return nil
}

// WriteEvent writes a status event on its own line
func (c *ConsoleOutput) WriteEvent(eventType, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLevelLocked()
	c.closeLineLocked()
	fmt.Fprintf(c.writer, "[*] %s: %s\n", eventType, message)
	return nil
}

// Finalize ends an open transcript line
func (c *ConsoleOutput) Finalize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLineLocked()
	return nil
}

// WriteAudioLevel draws the microphone meter. It stays out of the way while
// a transcript line is open.
func (c *ConsoleOutput) WriteAudioLevel(level float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.role != "" {
		return nil
	}
	fmt.Fprintf(c.writer, "\r%s", LevelBar(level, levelBarWidth))
	c.levelShown = true
	return nil
}

// LevelBar renders an RMS level as a fixed-width meter. Speech RMS rarely
// exceeds 0.3, so the scale is stretched.
func LevelBar(level float64, width int) string {
	scaled := level * 3
	if scaled > 1 {
		scaled = 1
	}
	if scaled < 0 {
		scaled = 0
	}
	filled := int(scaled * float64(width))
	return fmt.Sprintf("Mic: [%s%s] %3.0f%%", strings.Repeat("=", filled), strings.Repeat(" ", width-filled), scaled*100)
}

// Info writes an informational message
func (c *ConsoleOutput) Info(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLevelLocked()
	c.closeLineLocked()
	fmt.Fprintf(c.writer, "[INFO] %s\n", msg)
}

// Error writes an error message to the error writer
func (c *ConsoleOutput) Error(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLevelLocked()
	c.closeLineLocked()
	fmt.Fprintf(c.errWriter, "[ERROR] %s\n", msg)
}

// Flush ends an open transcript line
func (c *ConsoleOutput) Flush() error {
	return c.Finalize()
}

// Close ends an open transcript line
func (c *ConsoleOutput) Close() error {
	return c.Finalize()
}
