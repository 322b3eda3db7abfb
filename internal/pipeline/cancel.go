package pipeline

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"ripline/internal/logging"
	"ripline/internal/metrics"
)

// CancelMessage is the client text that cancels a job.
const CancelMessage = "cancel"

// CancelFlag is the job-wide cancellation flag shared by every stage.
type CancelFlag struct {
	v atomic.Bool
}

// Cancel sets the flag and reports whether this call was the one that set it.
func (f *CancelFlag) Cancel() bool {
	return f.v.CompareAndSwap(false, true)
}

// Cancelled reports whether the job was cancelled.
func (f *CancelFlag) Cancelled() bool {
	return f.v.Load()
}

// watchCancel reads the connection until it fails. Only a literal "cancel"
// has any effect; everything else is ignored.
func (r *Runner) watchCancel(conn Conn, job *Job, logger *slog.Logger) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if strings.TrimSpace(string(data)) != CancelMessage {
			logger.Debug("ignoring client message", logging.Int("bytes", len(data)))
			continue
		}
		if !job.Cancel.Cancel() {
			continue
		}
		metrics.CancellationsTotal.Inc()
		logger.Info("job cancelled by client")
		r.removeOutputs(job, logger)
	}
}

// removeOutputs deletes the ripped and encoded file of every selected title.
// Missing files are fine; other failures are logged.
func (r *Runner) removeOutputs(job *Job, logger *slog.Logger) {
	paths := append(job.RippedFiles(r.outputDir), job.EncodedFiles(r.outputDir)...)
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.WarnWithContext(logger, "failed to remove partial output", "cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "partial file left on disk"),
			)
		}
	}
}
