package makemkv

import (
	"context"
	"errors"
	"strings"

	"ripline/internal/disc"
	"ripline/internal/logging"
	"ripline/internal/services"
)

// ErrNoDevices is returned when makemkvcon reports no usable drive.
var ErrNoDevices = errors.New("no devices found")

// enumerationTarget is a device index makemkvcon never assigns; asking for it
// makes the tool list every drive without opening one.
const enumerationTarget = "disc:999"

// Device is one optical drive.
type Device struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Path        string `json:"path"`
}

// Devices lists drives that have a description, a disc name, and a device
// path. An empty result is reported as ErrNoDevices.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	release, err := c.lease.Acquire(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "makemkv", "devices", "acquire lease", err)
	}
	defer release()

	var devices []Device
	err = c.exec.Run(ctx, c.binary, []string{"-r", "--cache=1", "info", enumerationTarget}, func(line string) {
		if device, ok := parseDrive(line); ok {
			devices = append(devices, device)
		}
	})
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "makemkv", "devices", "run makemkvcon", err)
	}
	if len(devices) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "makemkv", "devices", "", ErrNoDevices)
	}
	for _, device := range devices {
		c.logger.Debug("detected optical drive",
			logging.String(logging.FieldDevice, device.Path),
			logging.String("name", device.Name),
			logging.String("description", device.Description),
		)
	}
	return devices, nil
}

func parseDrive(line string) (Device, bool) {
	if !strings.HasPrefix(line, "DRV:") {
		return Device{}, false
	}
	columns := disc.ParseLine(line)
	if len(columns) < 7 {
		return Device{}, false
	}
	device := Device{
		Description: strings.TrimSpace(columns[4]),
		Name:        strings.TrimSpace(columns[5]),
		Path:        strings.TrimSpace(columns[6]),
	}
	if device.Description == "" || device.Name == "" || device.Path == "" {
		return Device{}, false
	}
	return device, true
}
