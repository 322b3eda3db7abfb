package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"ripline/internal/config"
	"ripline/internal/deps"
	"ripline/internal/services/jellyfin"
	"ripline/internal/services/servarr"
)

const checkTimeout = 5 * time.Second

// CheckJellyfin verifies Jellyfin connectivity and authentication.
func CheckJellyfin(ctx context.Context, baseURL, apiKey string) Result {
	const name = "Jellyfin"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	if strings.TrimSpace(apiKey) == "" {
		return Result{Name: name, Detail: "missing api key"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	svc := jellyfin.NewHTTPService(base, apiKey, &http.Client{Timeout: checkTimeout})
	if err := svc.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckServarr verifies that a Radarr or Sonarr instance answers with the
// configured API key.
func CheckServarr(ctx context.Context, name string, cfg config.Servarr) Result {
	client, err := servarr.NewClient(strings.ToLower(name), cfg.URL, cfg.APIKey,
		servarr.WithHTTPClient(&http.Client{Timeout: checkTimeout}))
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	folders, err := client.RootFolders(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("Reachable (%d root folders)", len(folders))}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries for the given config. Both
// the daemon and the CLI status command use this list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "MakeMKV",
			Command:     cfg.MakeMKV.Binary,
			Description: "Required for disc probing and ripping",
		},
	}
	switch cfg.Encoding.Engine {
	case config.EngineDrapto:
		requirements = append(requirements,
			deps.Requirement{Name: "FFmpeg", Command: "ffmpeg", Description: "Required by Drapto for encoding"},
			deps.Requirement{Name: "FFprobe", Command: "ffprobe", Description: "Required by Drapto for media inspection"},
		)
	default:
		requirements = append(requirements, deps.Requirement{
			Name:        "HandBrakeCLI",
			Command:     cfg.HandBrake.Binary,
			Description: "Required for encoding",
		})
	}
	requirements = append(requirements, deps.Requirement{
		Name:        "lsblk",
		Command:     "lsblk",
		Description: "Reports the loaded disc in status output",
		Optional:    true,
	})
	return deps.CheckBinaries(requirements)
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (service unreachable)"
	}
	return err.Error()
}
