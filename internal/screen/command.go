package screen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/alexpernaoficial/Alex-Perna/internal/failure"
)

// CommandSource grabs frames by running an external screenshot tool that
// writes a PNG or JPEG image to stdout.
type CommandSource struct {
	name   string
	args   []string
	closed atomic.Bool
}

// DefaultCommand returns a screenshot command for the current platform
func DefaultCommand() string {
	switch runtime.GOOS {
	case "darwin":
		return "screencapture -x -t png /dev/stdout"
	case "linux":
		if os.Getenv("WAYLAND_DISPLAY") != "" {
			return "grim -t png -"
		}
		return "import -silent -window root png:-"
	default:
		return ""
	}
}

// NewCommandSource validates that the capture tool exists. A missing tool
// means the platform cannot share its display.
func NewCommandSource(command string) (*CommandSource, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, &failure.PermissionError{Resource: "display", Err: errors.New("no screen capture command configured")}
	}

	path, err := exec.LookPath(fields[0])
	if err != nil {
		return nil, &failure.PermissionError{Resource: "display", Err: err}
	}

	return &CommandSource{name: path, args: fields[1:]}, nil
}

// Grab runs the command once and decodes its output
func (c *CommandSource) Grab(ctx context.Context) (image.Image, error) {
	if c.closed.Load() {
		return nil, ErrEnded
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.name, c.args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrEnded
		}
		return nil, fmt.Errorf("screen capture failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}

// Close makes further grabs report ErrEnded
func (c *CommandSource) Close() error {
	c.closed.Store(true)
	return nil
}
