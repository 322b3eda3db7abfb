package disc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

const ioctlCDROMDriveStatus = 0x5326

// DriveStatus is the result of the CDROM_DRIVE_STATUS ioctl.
type DriveStatus int

const (
	DriveStatusNoInfo   DriveStatus = 0
	DriveStatusNoDisc   DriveStatus = 1
	DriveStatusTrayOpen DriveStatus = 2
	DriveStatusNotReady DriveStatus = 3
	DriveStatusDiscOK   DriveStatus = 4
)

func (s DriveStatus) String() string {
	switch s {
	case DriveStatusNoInfo:
		return "no_info"
	case DriveStatusNoDisc:
		return "no_disc"
	case DriveStatusTrayOpen:
		return "tray_open"
	case DriveStatusNotReady:
		return "not_ready"
	case DriveStatusDiscOK:
		return "disc_ok"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// CheckDriveStatus asks the kernel whether devicePath holds a readable disc.
func CheckDriveStatus(devicePath string) (DriveStatus, error) {
	devicePath = strings.TrimSpace(devicePath)
	if devicePath == "" {
		return DriveStatusNoInfo, fmt.Errorf("empty device path")
	}
	fd, err := unix.Open(devicePath, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return DriveStatusNoInfo, fmt.Errorf("open %s: %w", devicePath, err)
	}
	defer unix.Close(fd) //nolint:errcheck

	status, err := unix.IoctlRetInt(fd, ioctlCDROMDriveStatus)
	if err != nil {
		return DriveStatusNoInfo, fmt.Errorf("ioctl CDROM_DRIVE_STATUS on %s: %w", devicePath, err)
	}
	return DriveStatus(status), nil
}

// statusProbe is swapped in tests.
var statusProbe = CheckDriveStatus

// WaitForReady polls until the drive reports a disc, ctx ends, or maxPolls
// attempts have been made.
func WaitForReady(ctx context.Context, devicePath string, maxPolls int, interval time.Duration) (DriveStatus, error) {
	if maxPolls <= 0 {
		maxPolls = 60
	}
	var last DriveStatus
	for i := 0; i < maxPolls; i++ {
		status, err := statusProbe(devicePath)
		if err != nil {
			return status, err
		}
		last = status
		if status == DriveStatusDiscOK {
			return status, nil
		}
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(interval):
		}
	}
	return last, fmt.Errorf("drive %s not ready after %d polls (last status: %s)", devicePath, maxPolls, last)
}
