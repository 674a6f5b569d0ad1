package audio

import (
	"fmt"
	"strings"

	"github.com/gen2brain/malgo"

	"github.com/alexpernaoficial/Alex-Perna/internal/failure"
)

// DeviceType represents the type of audio device
type DeviceType int

const (
	DeviceTypePlayback DeviceType = iota
	DeviceTypeCapture
)

// String returns the ID prefix for the device type
func (t DeviceType) String() string {
	if t == DeviceTypeCapture {
		return "capture"
	}
	return "playback"
}

func (t DeviceType) malgo() malgo.DeviceType {
	if t == DeviceTypeCapture {
		return malgo.Capture
	}
	return malgo.Playback
}

// DeviceInfo contains information about an audio device
type DeviceInfo struct {
	ID        string     // Stable index-based identifier, e.g. "capture-0"
	Name      string     // Human-readable device name
	Type      DeviceType // Capture or playback
	IsDefault bool       // Whether this is the system default
}

// String returns a human-readable representation of the device
func (d DeviceInfo) String() string {
	defaultMarker := ""
	if d.IsDefault {
		defaultMarker = " [DEFAULT]"
	}
	return fmt.Sprintf("%s: %s%s", d.ID, d.Name, defaultMarker)
}

// ListDevices returns the available devices of the given type
func ListDevices(kind DeviceType) ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(kind.malgo())
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for i, info := range infos {
		devices = append(devices, DeviceInfo{
			ID:        fmt.Sprintf("%s-%d", kind, i),
			Name:      info.Name(),
			Type:      kind,
			IsDefault: info.IsDefault > 0,
		})
	}
	return devices, nil
}

// GetDefaultDevice returns the default device of the given type
func GetDefaultDevice(kind DeviceType) (*DeviceInfo, error) {
	devices, err := ListDevices(kind)
	if err != nil {
		return nil, err
	}
	return pickDevice(devices, "")
}

// FindDevice finds a device by ID, exact name or case-insensitive partial name
func FindDevice(kind DeviceType, query string) (*DeviceInfo, error) {
	devices, err := ListDevices(kind)
	if err != nil {
		return nil, err
	}
	return pickDevice(devices, query)
}

// pickDevice applies the selection rules to an enumerated list. An empty
// query selects the default, or the first device when none is flagged.
func pickDevice(devices []DeviceInfo, query string) (*DeviceInfo, error) {
	if len(devices) == 0 {
		return nil, failure.ErrNoDevice
	}

	if query == "" {
		for i := range devices {
			if devices[i].IsDefault {
				return &devices[i], nil
			}
		}
		return &devices[0], nil
	}

	for i := range devices {
		if devices[i].ID == query || devices[i].Name == query {
			return &devices[i], nil
		}
	}

	search := strings.ToLower(query)
	for i := range devices {
		if strings.Contains(strings.ToLower(devices[i].Name), search) {
			return &devices[i], nil
		}
	}

	return nil, fmt.Errorf("no device found matching %q: %w", query, failure.ErrNoDevice)
}

// findMalgoDevice resolves query against an open context. It returns nil
// with no error when query is empty so malgo picks the system default.
func findMalgoDevice(ctx *malgo.AllocatedContext, kind malgo.DeviceType, query string) (*malgo.DeviceInfo, error) {
	infos, err := ctx.Devices(kind)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	dt := DeviceTypePlayback
	if kind == malgo.Capture {
		dt = DeviceTypeCapture
	}

	devices := make([]DeviceInfo, len(infos))
	for i, info := range infos {
		devices[i] = DeviceInfo{
			ID:        fmt.Sprintf("%s-%d", dt, i),
			Name:      info.Name(),
			Type:      dt,
			IsDefault: info.IsDefault > 0,
		}
	}

	picked, err := pickDevice(devices, query)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return nil, nil
	}
	for i := range devices {
		if devices[i].ID == picked.ID {
			return &infos[i], nil
		}
	}
	return nil, nil
}

// FindMalgoDevice is findMalgoDevice for callers outside the package that
// open their own malgo context (playback).
func FindMalgoDevice(ctx *malgo.AllocatedContext, kind DeviceType, query string) (*malgo.DeviceInfo, error) {
	return findMalgoDevice(ctx, kind.malgo(), query)
}
