package makemkv

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"ripline/internal/disc"
	"ripline/internal/logging"
	"ripline/internal/progress"
	"ripline/internal/services"
)

const (
	prefixStepTitle  = "PRGT:"
	prefixStepDetail = "PRGC:"
	prefixProgress   = "PRGV:"
	prefixMessage    = "MSG:"
)

// Rip saves each title in titleIDs from device into outputDir, one
// makemkvcon process per title. Progress is reported to sink after every
// output line. cancelled is polled on every line; once it reports true the
// running process is killed and Rip returns nil without calling sink.Done.
func (c *Client) Rip(ctx context.Context, device string, titleIDs []int, outputDir string, sink progress.Sink, cancelled func() bool) error {
	device = strings.TrimSpace(device)
	if device == "" {
		return services.Wrap(services.ErrValidation, "makemkv", "rip", "device required", nil)
	}
	if strings.TrimSpace(outputDir) == "" {
		return services.Wrap(services.ErrValidation, "makemkv", "rip", "output directory required", nil)
	}
	if sink == nil {
		sink = progress.Discard
	}
	if cancelled == nil {
		cancelled = func() bool { return false }
	}

	release, err := c.lease.Acquire(ctx)
	if err != nil {
		return services.Wrap(services.ErrTransient, "makemkv", "rip", "acquire lease", err)
	}
	defer release()

	logger := logging.WithContext(ctx, c.logger)
	for step, id := range titleIDs {
		stopped, err := c.ripTitle(ctx, device, id, step, outputDir, sink, cancelled)
		if err != nil {
			return err
		}
		if stopped {
			logger.Info("makemkv rip aborted", logging.Int("title_id", id))
			return nil
		}
	}
	sink.Done()
	return nil
}

func (c *Client) ripTitle(ctx context.Context, device string, id, step int, outputDir string, sink progress.Sink, cancelled func() bool) (bool, error) {
	ripCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	args := []string{
		"--messages=-stdout",
		"--progress=-same",
		"-r", "mkv",
		"dev:" + device,
		strconv.Itoa(id),
		outputDir,
	}

	var (
		stepTitle  string
		stepDetail string
		stopped    bool
		lineErr    error
	)
	tracker := progress.New()
	handler := &msgHandler{logger: c.logger, cancelRip: cancel}

	runErr := c.exec.Run(ripCtx, c.binary, args, func(line string) {
		if stopped || lineErr != nil {
			return
		}
		if cancelled() {
			stopped = true
			cancel(context.Canceled)
			return
		}
		columns := disc.ParseLine(line)
		switch head := columns[0]; {
		case strings.HasPrefix(head, prefixStepTitle):
			if len(columns) > 2 {
				stepTitle = columns[2]
			}
		case strings.HasPrefix(head, prefixStepDetail):
			if len(columns) > 2 {
				stepDetail = columns[2]
			}
		case strings.HasPrefix(head, prefixProgress):
			current, total, err := parseProgressValues(columns)
			if err != nil {
				lineErr = err
				cancel(err)
				return
			}
			tracker.Update(current, total)
		case strings.HasPrefix(head, prefixMessage):
			handler.handleMSG(line)
		}
		label := stepDetail
		if label == "" {
			label = stepTitle
		}
		sink.Progress(progress.Update{
			Label:    label,
			Progress: tracker.Fraction(),
			Step:     step,
			ETA:      tracker.ETA(),
		})
	})

	if stopped {
		return true, nil
	}
	if lineErr != nil {
		return false, services.Wrap(services.ErrMalformed, "makemkv", "rip", fmt.Sprintf("title %d", id), lineErr)
	}
	if handler.fatalErr != nil {
		return false, services.Wrap(services.ErrExternalTool, "makemkv", "rip", fmt.Sprintf("title %d", id), handler.fatalErr)
	}
	if runErr != nil {
		return false, services.Wrap(services.ErrExternalTool, "makemkv", "rip", fmt.Sprintf("title %d", id), runErr)
	}
	return false, nil
}

func parseProgressValues(columns []string) (float64, float64, error) {
	if len(columns) < 3 {
		return 0, 0, fmt.Errorf("progress record has %d fields", len(columns))
	}
	current, err := strconv.ParseFloat(strings.TrimSpace(columns[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse current progress: %w", err)
	}
	total, err := strconv.ParseFloat(strings.TrimSpace(columns[2]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse total progress: %w", err)
	}
	return current, total, nil
}
