package upload

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path"

	"ripline/internal/logging"
	"ripline/internal/progress"
	"ripline/internal/services"
)

// ChunkSize is the size of each SFTP write.
const ChunkSize = 128 * 1024

// StageLabel is reported as the label of every upload update.
const StageLabel = "Uploading"

// File pairs a local file with its remote destination.
type File struct {
	Local  string
	Remote string
}

// Uploader streams files to the remote target.
type Uploader struct {
	dialer Dialer
	logger *slog.Logger
}

// New returns an Uploader using dialer.
func New(dialer Dialer, logger *slog.Logger) *Uploader {
	return &Uploader{dialer: dialer, logger: logging.NewComponentLogger(logger, "upload")}
}

// Upload copies files in order over a single session. When cancelled
// reports true the partially written remote file is removed and Upload
// returns nil without calling sink.Done. If ctx ends instead, the partial
// file is removed too but the context error is returned.
func (u *Uploader) Upload(ctx context.Context, files []File, sink progress.Sink, cancelled func() bool) error {
	if u.dialer == nil {
		return services.Wrap(services.ErrConfiguration, "upload", "upload", "no upload target configured", nil)
	}
	if sink == nil {
		sink = progress.Discard
	}
	if cancelled == nil {
		cancelled = func() bool { return false }
	}

	session, err := u.dialer.Dial(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			u.logger.Debug("close upload session", logging.Error(err))
		}
	}()

	logger := logging.WithContext(ctx, u.logger)
	for step, file := range files {
		logger.Info("uploading file",
			logging.String("local", file.Local),
			logging.String("remote", file.Remote),
		)
		stopped, err := u.uploadFile(ctx, session, file, step, sink, cancelled)
		if err != nil {
			return err
		}
		if stopped {
			logger.Info("upload aborted", logging.String("remote", file.Remote))
			return nil
		}
	}
	sink.Done()
	return nil
}

func (u *Uploader) uploadFile(ctx context.Context, session Session, file File, step int, sink progress.Sink, cancelled func() bool) (bool, error) {
	local, err := os.Open(file.Local)
	if err != nil {
		return false, services.Wrap(services.ErrNotFound, "upload", "open local file", file.Local, err)
	}
	defer local.Close()

	info, err := local.Stat()
	if err != nil {
		return false, services.Wrap(services.ErrNotFound, "upload", "stat local file", file.Local, err)
	}
	size := info.Size()

	if err := session.MkdirAll(path.Dir(file.Remote)); err != nil {
		return false, services.Wrap(services.ErrExternalService, "upload", "create remote directory", path.Dir(file.Remote), err)
	}
	remote, err := session.Create(file.Remote)
	if err != nil {
		return false, services.Wrap(services.ErrExternalService, "upload", "create remote file", file.Remote, err)
	}

	tracker := progress.New()
	buf := make([]byte, ChunkSize)
	var sent int64
	for {
		if cancelled() {
			_ = remote.Close()
			u.removePartial(ctx, session, file.Remote)
			return true, nil
		}
		if err := ctx.Err(); err != nil {
			_ = remote.Close()
			u.removePartial(ctx, session, file.Remote)
			return false, services.Wrap(services.ErrTransient, "upload", "write remote file", "interrupted: "+file.Remote, err)
		}
		n, readErr := local.Read(buf)
		if n > 0 {
			if _, err := remote.Write(buf[:n]); err != nil {
				_ = remote.Close()
				return false, services.Wrap(services.ErrExternalService, "upload", "write remote file", file.Remote, err)
			}
			sent += int64(n)
			tracker.Update(float64(sent), float64(size))
			sink.Progress(progress.Update{
				Label:    StageLabel,
				Progress: fraction(sent, size),
				Step:     step,
				ETA:      tracker.ETA(),
			})
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			_ = remote.Close()
			return false, services.Wrap(services.ErrTransient, "upload", "read local file", file.Local, readErr)
		}
	}
	if err := remote.Close(); err != nil {
		return false, services.Wrap(services.ErrExternalService, "upload", "close remote file", file.Remote, err)
	}
	logging.WithContext(ctx, u.logger).Info("file uploaded",
		logging.String("remote", file.Remote),
		logging.Int64("bytes", sent),
		logging.Duration("elapsed", tracker.Elapsed()),
	)
	return false, nil
}

func (u *Uploader) removePartial(ctx context.Context, session Session, remotePath string) {
	logger := logging.WithContext(ctx, u.logger)
	if err := session.Remove(remotePath); err != nil {
		logging.WarnWithContext(logger, "failed to delete partial remote file", "upload_cleanup_failed",
			logging.String("remote", remotePath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the file on the media server manually"),
			logging.String(logging.FieldImpact, "a truncated file may be imported"),
		)
		return
	}
	logger.Info("removed partial remote file", logging.String("remote", remotePath))
}

func fraction(sent, size int64) float64 {
	if size <= 0 {
		return 1
	}
	return float64(sent) / float64(size)
}
