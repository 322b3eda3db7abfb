package handbrake

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ripline/internal/logging"
	"ripline/internal/progress"
	"ripline/internal/services"
)

var commandContext = exec.CommandContext

// EncodingDirName is the subdirectory of the output directory that receives
// encoded files.
const EncodingDirName = "encoding"

// StageLabel is reported as the label of every encoding update.
const StageLabel = "Encoding"

// CLI drives HandBrakeCLI.
type CLI struct {
	binary string
	logger *slog.Logger
}

// NewCLI constructs a client for the given binary.
func NewCLI(binary string, logger *slog.Logger) *CLI {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "HandBrakeCLI"
	}
	return &CLI{binary: binary, logger: logging.NewComponentLogger(logger, "handbrake")}
}

// OutputPath is where Encode writes the encoded copy of input.
func OutputPath(outputDir, input string) string {
	return filepath.Join(outputDir, EncodingDirName, filepath.Base(input))
}

// Encode encodes every file in order with profile. HandBrake's own ETA is
// reported as-is. When cancelled reports true the running encode is killed
// and Encode returns the outputs finished so far with a nil error and
// without calling sink.Done.
func (c *CLI) Encode(ctx context.Context, files []string, outputDir string, profile Profile, sink progress.Sink, cancelled func() bool) ([]string, error) {
	if strings.TrimSpace(outputDir) == "" {
		return nil, services.Wrap(services.ErrValidation, "handbrake", "encode", "output directory required", nil)
	}
	if sink == nil {
		sink = progress.Discard
	}
	if cancelled == nil {
		cancelled = func() bool { return false }
	}
	if err := os.MkdirAll(filepath.Join(outputDir, EncodingDirName), 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "handbrake", "encode", "create encoding directory", err)
	}

	logger := logging.WithContext(ctx, c.logger)
	outputs := make([]string, 0, len(files))
	for step, input := range files {
		output := OutputPath(outputDir, input)
		logger.Info("encoding file",
			logging.String("input", input),
			logging.String("output", output),
			logging.String("preset", profile.PresetName),
		)
		stopped, err := c.encodeFile(ctx, input, output, profile, step, sink, cancelled)
		if err != nil {
			return outputs, err
		}
		if stopped {
			logger.Info("handbrake encode aborted", logging.String("input", input))
			return outputs, nil
		}
		outputs = append(outputs, output)
	}
	sink.Done()
	return outputs, nil
}

func (c *CLI) encodeFile(ctx context.Context, input, output string, profile Profile, step int, sink progress.Sink, cancelled func() bool) (bool, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	args := []string{
		"--json",
		"--input", input,
		"--output", output,
		"--preset-import-file", profile.FileName,
		"-Z", profile.PresetName,
	}
	cmd := commandContext(runCtx, c.binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return false, services.Wrap(services.ErrExternalTool, "handbrake", "encode", "stdout pipe", err)
	}
	stderr := &tailBuffer{limit: 4096}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return false, services.Wrap(services.ErrExternalTool, "handbrake", "encode", "start HandBrakeCLI", err)
	}

	var (
		fraction float64
		eta      float64
		parseErr error
	)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if cancelled() {
			cancel()
			_ = cmd.Wait()
			return true, nil
		}
		line := scanner.Text()
		switch {
		case strings.Contains(line, `"Progress"`):
			fraction, parseErr = lastNumber(line)
		case strings.Contains(line, `"ETASeconds"`):
			eta, parseErr = lastNumber(line)
		}
		if parseErr != nil {
			cancel()
			_ = cmd.Wait()
			return false, services.Wrap(services.ErrMalformed, "handbrake", "encode", fmt.Sprintf("progress line %q", line), parseErr)
		}
		sink.Progress(progress.Update{
			Label:    StageLabel,
			Progress: fraction,
			Step:     step,
			ETA:      time.Duration(eta * float64(time.Second)),
		})
	}
	scanErr := scanner.Err()
	waitErr := cmd.Wait()
	if cancelled() {
		return true, nil
	}
	if scanErr != nil {
		return false, services.Wrap(services.ErrExternalTool, "handbrake", "encode", "read output", scanErr)
	}
	if waitErr != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = "HandBrakeCLI failed"
		}
		return false, services.Wrap(services.ErrExternalTool, "handbrake", "encode", detail, waitErr)
	}
	return false, nil
}

// lastNumber parses the value after the last colon of a JSON line such as
// `"Progress": 0.4512,`.
func lastNumber(line string) (float64, error) {
	idx := strings.LastIndex(line, ":")
	value := line
	if idx >= 0 {
		value = line[idx+1:]
	}
	value = strings.TrimSpace(strings.ReplaceAll(value, ",", ""))
	return strconv.ParseFloat(value, 64)
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string { return string(t.buf) }
