package preflight

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DiscProbe reports the current optical-disc detection snapshot.
type DiscProbe struct {
	Detected bool
	Device   string
	Label    string
	Type     string
}

// ProbeDisc reads the label and filesystem of the loaded disc via lsblk. It
// never runs makemkvcon, so it is safe to call while a rip holds the drive.
func ProbeDisc(ctx context.Context, device string) DiscProbe {
	device = strings.TrimSpace(device)
	if device == "" {
		device = "/dev/sr0"
	}
	if _, err := exec.LookPath("lsblk"); err != nil {
		return DiscProbe{Device: device}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, "lsblk", "-no", "LABEL,FSTYPE", device).Output()
	if err != nil {
		return DiscProbe{Device: device}
	}
	return parseLsblk(device, string(output))
}

func parseLsblk(device, output string) DiscProbe {
	fields := strings.Fields(strings.TrimSpace(output))
	if len(fields) == 0 {
		return DiscProbe{Device: device}
	}
	label := fields[0]
	fstype := ""
	if len(fields) > 1 {
		fstype = fields[1]
	}
	return DiscProbe{
		Detected: true,
		Device:   device,
		Label:    label,
		Type:     classifyDiscType(fstype),
	}
}

func classifyDiscType(fstype string) string {
	switch strings.ToLower(strings.TrimSpace(fstype)) {
	case "udf":
		return "Blu-ray"
	case "iso9660":
		return "DVD"
	default:
		return "Unknown"
	}
}

// DiscDetail renders a display-friendly summary for status UIs.
func (p DiscProbe) DiscDetail() string {
	if !p.Detected {
		return "No disc detected"
	}
	return fmt.Sprintf("%s disc '%s' on %s", p.Type, p.Label, p.Device)
}
