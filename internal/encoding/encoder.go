package encoding

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"ripline/internal/config"
	"ripline/internal/logging"
	"ripline/internal/progress"
	"ripline/internal/services"
	"ripline/internal/services/drapto"
	"ripline/internal/services/handbrake"
)

// Encoder encodes files one at a time. Implementations report progress to
// sink per output line, stop without error once cancelled reports true, and
// only call sink.Done after every file finished.
type Encoder interface {
	Encode(ctx context.Context, files []string, outputDir, profileID string, sink progress.Sink, cancelled func() bool) ([]string, error)
}

// New returns the encoder selected by cfg.Encoding.Engine.
func New(cfg *config.Config, logger *slog.Logger) (Encoder, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "encoding", "init", "config required", nil)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Encoding.Engine)) {
	case "", config.EngineHandBrake:
		return &HandBrake{
			CLI:          handbrake.NewCLI(cfg.HandBrake.Binary, logger),
			ProfilesPath: cfg.HandBrake.ProfilesPath,
		}, nil
	case config.EngineDrapto:
		return &Drapto{Library: drapto.NewLibrary(), Logger: logging.NewComponentLogger(logger, "drapto")}, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "encoding", "init", fmt.Sprintf("unknown engine %q", cfg.Encoding.Engine), nil)
	}
}

// DraptoProfileID is the single profile listed for the drapto engine.
const DraptoProfileID = "drapto"

// Profiles lists the selectable encoding profiles for the configured engine.
func Profiles(cfg *config.Config) ([]handbrake.Profile, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "encoding", "profiles", "config required", nil)
	}
	if strings.EqualFold(strings.TrimSpace(cfg.Encoding.Engine), config.EngineDrapto) {
		return []handbrake.Profile{{ID: DraptoProfileID, Label: "Drapto (SVT-AV1)"}}, nil
	}
	return handbrake.LoadProfiles(cfg.HandBrake.ProfilesPath)
}

// HandBrake resolves profileID against the catalogue on every call so edits
// to index.json apply without a restart.
type HandBrake struct {
	CLI          *handbrake.CLI
	ProfilesPath string
}

func (h *HandBrake) Encode(ctx context.Context, files []string, outputDir, profileID string, sink progress.Sink, cancelled func() bool) ([]string, error) {
	profiles, err := handbrake.LoadProfiles(h.ProfilesPath)
	if err != nil {
		return nil, err
	}
	profile, err := handbrake.FindProfile(profiles, profileID)
	if err != nil {
		return nil, err
	}
	return h.CLI.Encode(ctx, files, outputDir, profile, sink, cancelled)
}

// draptoEncoder is the subset of drapto.Library used here.
type draptoEncoder interface {
	Encode(ctx context.Context, inputPath, outputDir string, progress func(drapto.ProgressUpdate)) (string, error)
}

// Drapto encodes with the drapto library.
type Drapto struct {
	Library draptoEncoder
	Logger  *slog.Logger
}

func (d *Drapto) Encode(ctx context.Context, files []string, outputDir, profileID string, sink progress.Sink, cancelled func() bool) ([]string, error) {
	if sink == nil {
		sink = progress.Discard
	}
	if cancelled == nil {
		cancelled = func() bool { return false }
	}
	if profileID != "" && d.Logger != nil {
		d.Logger.Debug("drapto ignores encoding profile", logging.String("profile", profileID))
	}

	encodingDir := filepath.Join(outputDir, handbrake.EncodingDirName)
	outputs := make([]string, 0, len(files))
	for step, input := range files {
		runCtx, cancel := context.WithCancel(ctx)
		stopped := false
		output, err := d.Library.Encode(runCtx, input, encodingDir, func(update drapto.ProgressUpdate) {
			if stopped {
				return
			}
			if cancelled() {
				stopped = true
				cancel()
				return
			}
			if update.Warning != "" {
				return
			}
			sink.Progress(progress.Update{
				Label:    formatStageLabel(update.Stage),
				Progress: clampFraction(update.Percent / 100),
				Step:     step,
				ETA:      update.ETA,
			})
		})
		cancel()
		if stopped || cancelled() {
			return outputs, nil
		}
		if err != nil {
			return outputs, services.Wrap(services.ErrExternalTool, "drapto", "encode", filepath.Base(input), err)
		}
		outputs = append(outputs, output)
	}
	sink.Done()
	return outputs, nil
}

func clampFraction(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func formatStageLabel(stage string) string {
	parts := strings.FieldsFunc(strings.TrimSpace(stage), func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	if len(parts) == 0 {
		return handbrake.StageLabel
	}
	for i, part := range parts {
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}

// FormatETA renders an ETA the way the CLI prints it.
func FormatETA(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	d = d.Round(time.Second)
	hours := int(d / time.Hour)
	minutes := int(d % time.Hour / time.Minute)
	seconds := int(d % time.Minute / time.Second)
	if hours > 0 {
		return fmt.Sprintf("%dh%02dm", hours, minutes)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm%02ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
