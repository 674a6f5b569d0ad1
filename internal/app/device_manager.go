package app

import (
	"fmt"
	"io"
	"os"

	"github.com/alexpernaoficial/Alex-Perna/internal/audio"
)

// DeviceManager handles audio device selection and listing
type DeviceManager struct {
	out  io.Writer
	list func(kind audio.DeviceType) ([]audio.DeviceInfo, error)
}

// NewDeviceManager creates a new DeviceManager instance
func NewDeviceManager() *DeviceManager {
	return &DeviceManager{out: os.Stdout, list: audio.ListDevices}
}

// ListDevices prints the capture and playback devices
func (dm *DeviceManager) ListDevices() error {
	fmt.Fprintln(dm.out, "Detecting audio devices...")
	fmt.Fprintln(dm.out)

	var total int
	for _, kind := range []audio.DeviceType{audio.DeviceTypeCapture, audio.DeviceTypePlayback} {
		devices, err := dm.list(kind)
		if err != nil {
			return fmt.Errorf("failed to list %s devices: %w", kind, err)
		}
		total += len(devices)

		fmt.Fprintf(dm.out, "Found %d %s device(s):\n", len(devices), kind)
		for i, device := range devices {
			marker := ""
			if device.IsDefault {
				marker = " [DEFAULT]"
			}
			fmt.Fprintf(dm.out, "  %d. %s%s\n", i+1, device.Name, marker)
			fmt.Fprintf(dm.out, "     ID: %s\n", device.ID)
		}
		fmt.Fprintln(dm.out)
	}

	if total == 0 {
		return fmt.Errorf("no audio devices found")
	}

	fmt.Fprintln(dm.out, "To use specific devices, run:")
	fmt.Fprintln(dm.out, "  aria --device \"<capture-name>\" --output-device \"<playback-name>\"")
	return nil
}

// SelectDevice resolves a device by name or ID. An empty query returns the
// default device.
func (dm *DeviceManager) SelectDevice(kind audio.DeviceType, query string) (*audio.DeviceInfo, error) {
	devices, err := dm.list(kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no %s devices found", kind)
	}

	for i := range devices {
		if query == "" && devices[i].IsDefault {
			return &devices[i], nil
		}
		if query != "" && (devices[i].Name == query || devices[i].ID == query) {
			return &devices[i], nil
		}
	}
	if query == "" {
		return &devices[0], nil
	}
	return nil, fmt.Errorf("%s device %q not found (use --list-devices)", kind, query)
}
