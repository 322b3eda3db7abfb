package makemkv

import (
	"context"
	"fmt"
	"strings"

	"ripline/internal/disc"
	"ripline/internal/services"
)

// Probe reads the disc in device and returns its model. Any malformed record
// aborts the probe with an error wrapping services.ErrMalformed.
func (c *Client) Probe(ctx context.Context, device string) (*disc.Disc, error) {
	device = strings.TrimSpace(device)
	if device == "" {
		return nil, services.Wrap(services.ErrValidation, "makemkv", "probe", "device required", nil)
	}
	release, err := c.lease.Acquire(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "makemkv", "probe", "acquire lease", err)
	}
	defer release()

	probeCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	builder := disc.NewBuilder(c.logger)
	handler := &msgHandler{logger: c.logger, cancelRip: cancel}
	var buildErr error
	runErr := c.exec.Run(probeCtx, c.binary, []string{"-r", "info", "dev:" + device}, func(line string) {
		if buildErr != nil {
			return
		}
		if strings.HasPrefix(line, "MSG:") {
			handler.handleMSG(line)
			return
		}
		if err := builder.Add(line); err != nil {
			buildErr = err
			cancel(err)
		}
	})
	if buildErr != nil {
		return nil, buildErr
	}
	if handler.fatalErr != nil {
		return nil, services.Wrap(services.ErrExternalTool, "makemkv", "probe", fmt.Sprintf("dev:%s", device), handler.fatalErr)
	}
	if runErr != nil {
		return nil, services.Wrap(services.ErrExternalTool, "makemkv", "probe", "run makemkvcon", runErr)
	}
	return builder.Disc(), nil
}
