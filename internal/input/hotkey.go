// Package input turns keyboard input into assistant commands: a global mute
// hotkey and line commands typed on stdin.
package input

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.design/x/hotkey"
)

// DefaultMuteHotkey toggles the microphone
const DefaultMuteHotkey = "ctrl+shift+m"

// MuteHotkey flips a mute flag each time a global hotkey is pressed
type MuteHotkey struct {
	mu       sync.Mutex
	hk       *hotkey.Hotkey
	muted    bool
	onToggle func(muted bool)
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewMuteHotkey creates a hotkey handler calling onToggle with the new state
func NewMuteHotkey(onToggle func(muted bool)) *MuteHotkey {
	return &MuteHotkey{
		onToggle: onToggle,
		done:     make(chan struct{}),
	}
}

// Start registers the hotkey and begins listening
func (h *MuteHotkey) Start(ctx context.Context, combo string) error {
	mods, key, err := parseHotkey(combo)
	if err != nil {
		return fmt.Errorf("invalid hotkey: %w", err)
	}

	h.hk = hotkey.New(mods, key)
	if err := h.hk.Register(); err != nil {
		return fmt.Errorf("failed to register hotkey: %w", err)
	}

	ctx, h.cancel = context.WithCancel(ctx)

	go func() {
		defer close(h.done)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-h.hk.Keydown():
				if !ok {
					return
				}
				h.onToggle(h.Toggle())
			}
		}
	}()

	return nil
}

// Toggle flips and returns the mute state
func (h *MuteHotkey) Toggle() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.muted = !h.muted
	return h.muted
}

// Set overrides the mute state, e.g. after the session resets it
func (h *MuteHotkey) Set(muted bool) {
	h.mu.Lock()
	h.muted = muted
	h.mu.Unlock()
}

// Muted returns the current state
func (h *MuteHotkey) Muted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.muted
}

// Stop unregisters the hotkey
func (h *MuteHotkey) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
	if h.hk != nil {
		_ = h.hk.Unregister()
		select {
		case <-h.done:
		case <-time.After(100 * time.Millisecond):
		}
	}
}

var namedKeys = map[string]hotkey.Key{
	"space": hotkey.KeySpace, "return": hotkey.KeyReturn, "enter": hotkey.KeyReturn,
	"tab": hotkey.KeyTab, "escape": hotkey.KeyEscape, "esc": hotkey.KeyEscape,
	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD, "e": hotkey.KeyE,
	"f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH, "i": hotkey.KeyI, "j": hotkey.KeyJ,
	"k": hotkey.KeyK, "l": hotkey.KeyL, "m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO,
	"p": hotkey.KeyP, "q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX, "y": hotkey.KeyY,
	"z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3, "4": hotkey.Key4,
	"5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7, "8": hotkey.Key8, "9": hotkey.Key9,
	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
}

// parseHotkey parses a combination like "ctrl+shift+m"
func parseHotkey(s string) ([]hotkey.Modifier, hotkey.Key, error) {
	if strings.TrimSpace(s) == "" {
		return nil, 0, fmt.Errorf("empty hotkey string")
	}

	var mods []hotkey.Modifier
	var key hotkey.Key
	var keyFound bool

	for _, part := range strings.Split(strings.ToLower(s), "+") {
		part = strings.TrimSpace(part)
		if mod, ok := modifiers[part]; ok {
			mods = append(mods, mod)
			continue
		}
		if keyFound {
			return nil, 0, fmt.Errorf("multiple keys specified")
		}
		k, ok := namedKeys[part]
		if !ok {
			return nil, 0, fmt.Errorf("unknown key: %s", part)
		}
		key = k
		keyFound = true
	}

	if !keyFound {
		return nil, 0, fmt.Errorf("no key specified")
	}
	return mods, key, nil
}
