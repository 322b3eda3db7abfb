package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ripline/internal/disc"
	"ripline/internal/encoding"
	"ripline/internal/history"
	"ripline/internal/logging"
	"ripline/internal/metrics"
	"ripline/internal/notifications"
	"ripline/internal/progress"
	"ripline/internal/services"
	"ripline/internal/services/handbrake"
	"ripline/internal/services/servarr"
	"ripline/internal/upload"
)

const (
	encodingDirName = handbrake.EncodingDirName
	refreshTimeout  = 30 * time.Second
)

// Prober reads the disc in a drive.
type Prober interface {
	Probe(ctx context.Context, device string) (*disc.Disc, error)
}

// Ripper saves titles from a drive.
type Ripper interface {
	Rip(ctx context.Context, device string, titleIDs []int, outputDir string, sink progress.Sink, cancelled func() bool) error
}

// Uploader copies encoded files to the remote library.
type Uploader interface {
	Upload(ctx context.Context, files []upload.File, sink progress.Sink, cancelled func() bool) error
}

// MovieLibrary is the Radarr surface used by the pipeline.
type MovieLibrary interface {
	CreateMovie(ctx context.Context, tmdbID int64, title string, qualityProfileID int, rootFolder string) (servarr.Movie, error)
	ScanRename(ctx context.Context, movieID int) error
}

// SeriesLibrary is the Sonarr surface used by the pipeline.
type SeriesLibrary interface {
	CreateSeries(ctx context.Context, tvdbID int64, title, seriesType string, qualityProfileID int, rootFolder string) (servarr.Series, error)
	ScanRename(ctx context.Context, seriesID int) error
}

// Refresher triggers a media server rescan.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// History records job outcomes.
type History interface {
	Start(ctx context.Context, rec history.Record) error
	Finish(ctx context.Context, id, status, stage string, cause error) error
}

// Dependencies wires a Runner. Profiles, Movies, Series, Refresher, History
// and Notifier may be nil; without Profiles the encoder alone judges the
// profile id.
type Dependencies struct {
	Prober    Prober
	Ripper    Ripper
	Encoder   encoding.Encoder
	Profiles  func() ([]handbrake.Profile, error)
	Uploader  Uploader
	Movies    MovieLibrary
	Series    SeriesLibrary
	Refresher Refresher
	History   History
	Notifier  notifications.Service
}

// Runner executes jobs. One Runner serves every connection; each Run call
// owns its own Job.
type Runner struct {
	outputDir string
	deps      Dependencies
	logger    *slog.Logger
	newID     func() string
	// refreshed is closed after each fire-and-forget refresh; tests only.
	refreshed chan struct{}
}

// NewRunner builds a Runner writing rip and encode outputs under outputDir.
func NewRunner(outputDir string, deps Dependencies, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		outputDir: outputDir,
		deps:      deps,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
		newID:     uuid.NewString,
	}
}

// Run executes one job over conn and returns the first stage error.
// Cancellation is not an error. The caller owns conn and must close it after
// Run returns so the cancellation watcher exits.
func (r *Runner) Run(ctx context.Context, conn Conn, params Params) error {
	jobID := r.newID()
	ctx = services.WithJobID(ctx, jobID)
	ctx = services.WithDevice(ctx, params.Device)
	logger := logging.WithContext(ctx, r.logger)
	events := newEventWriter(conn, logger)
	defer events.close()

	job, err := r.buildJob(ctx, jobID, params)
	if err != nil {
		r.reportError(ctx, events, stageJob, err)
		r.notifyFailure(ctx, nil, stageJob, err)
		return err
	}

	metrics.JobsInFlight.Inc()
	defer metrics.JobsInFlight.Dec()
	r.recordStart(ctx, job)
	go r.watchCancel(conn, job, logger)

	logger.Info("job started",
		logging.String("title", job.DisplayTitle()),
		logging.String("media_kind", string(job.Kind)),
		logging.Any("titles", job.TitleIDs()),
		logging.String("profile", job.Profile),
	)
	status, failedStage, err := r.execute(ctx, job, events)
	metrics.JobsTotal.WithLabelValues(string(job.Kind), status).Inc()
	r.recordFinish(ctx, job, status, failedStage, err)
	switch status {
	case history.StatusCompleted:
		logger.Info("job completed", logging.String("title", job.DisplayTitle()))
		r.notify(ctx, notifications.EventJobCompleted, notifications.Payload{
			"title":     job.DisplayTitle(),
			"mediaType": string(job.Kind),
		})
	case history.StatusCancelled:
		logger.Info("job stopped after cancellation")
	case history.StatusFailed:
		r.notifyFailure(ctx, job, failedStage, err)
	}
	return err
}

func (r *Runner) buildJob(ctx context.Context, jobID string, params Params) (*Job, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if r.deps.Profiles != nil {
		profiles, err := r.deps.Profiles()
		if err != nil {
			return nil, err
		}
		if _, err := handbrake.FindProfile(profiles, params.EncodingProfile); err != nil {
			return nil, err
		}
	}
	d, err := r.deps.Prober.Probe(ctx, params.Device)
	if err != nil {
		return nil, err
	}
	return NewJob(jobID, params, d)
}

// registration is the library item a job uploads into.
type registration struct {
	remote     func(index int, local string) string
	scanRename func(ctx context.Context) error
}

func (r *Runner) execute(ctx context.Context, job *Job, events *eventWriter) (string, stage, error) {
	reg, err := r.register(ctx, job)
	if err != nil {
		r.reportError(ctx, events, stageRegistration, err)
		return history.StatusFailed, stageRegistration, err
	}
	if job.Cancel.Cancelled() {
		return history.StatusCancelled, stage{}, nil
	}

	cancelled := job.Cancel.Cancelled
	err = r.runStage(ctx, stageRipping, events, cancelled, func(ctx context.Context, sink progress.Sink) error {
		return r.deps.Ripper.Rip(ctx, job.Device, job.TitleIDs(), r.outputDir, sink, cancelled)
	})
	if err != nil {
		r.discardAfterShutdown(ctx, job)
		return history.StatusFailed, stageRipping, err
	}
	if r.stoppedAfterStage(ctx, job) {
		return history.StatusCancelled, stage{}, nil
	}

	err = r.runStage(ctx, stageEncoding, events, cancelled, func(ctx context.Context, sink progress.Sink) error {
		_, err := r.deps.Encoder.Encode(ctx, job.RippedFiles(r.outputDir), r.outputDir, job.Profile, sink, cancelled)
		return err
	})
	if err != nil {
		r.discardAfterShutdown(ctx, job)
		return history.StatusFailed, stageEncoding, err
	}
	if r.stoppedAfterStage(ctx, job) {
		return history.StatusCancelled, stage{}, nil
	}

	locals := job.EncodedFiles(r.outputDir)
	files := make([]upload.File, len(locals))
	for i, local := range locals {
		files[i] = upload.File{Local: local, Remote: reg.remote(i, local)}
	}
	err = r.runStage(ctx, stageUploading, events, cancelled, func(ctx context.Context, sink progress.Sink) error {
		return r.deps.Uploader.Upload(ctx, files, sink, cancelled)
	})
	if err != nil {
		return history.StatusFailed, stageUploading, err
	}
	if r.stoppedAfterStage(ctx, job) {
		return history.StatusCancelled, stage{}, nil
	}

	if err := reg.scanRename(services.WithStage(ctx, stageRegistration.name)); err != nil {
		r.reportError(ctx, events, stageRegistration, err)
		return history.StatusFailed, stageRegistration, err
	}
	r.refreshLibrary(ctx)
	return history.StatusCompleted, stage{}, nil
}

// stoppedAfterStage reports whether the job was cancelled. Outputs are
// removed again because a stage may have written after the watcher's
// cleanup ran.
func (r *Runner) stoppedAfterStage(ctx context.Context, job *Job) bool {
	if !job.Cancel.Cancelled() {
		return false
	}
	r.removeOutputs(job, logging.WithContext(ctx, r.logger))
	return true
}

// discardAfterShutdown removes rip and encode outputs when a stage failed
// because the daemon context ended; the killed tool leaves them truncated.
func (r *Runner) discardAfterShutdown(ctx context.Context, job *Job) {
	if ctx.Err() == nil {
		return
	}
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("removing partial outputs after shutdown", logging.String("title", job.DisplayTitle()))
	r.removeOutputs(job, logger)
}

func (r *Runner) runStage(ctx context.Context, st stage, events *eventWriter, cancelled func() bool, run func(context.Context, progress.Sink) error) error {
	ctx = services.WithStage(ctx, st.name)
	logger := logging.WithContext(ctx, r.logger)
	sink := newStageSink(st, events, logger)

	started := time.Now()
	err := run(ctx, sink)
	elapsed := time.Since(started)

	outcome := "completed"
	switch {
	case err != nil:
		outcome = "failed"
		r.reportError(ctx, events, st, err)
	case cancelled():
		outcome = "cancelled"
	}
	metrics.ObserveStage(st.name, outcome, elapsed)
	logger.Info("stage finished", logging.String("outcome", outcome), logging.Duration("elapsed", elapsed))
	return err
}

func (r *Runner) register(ctx context.Context, job *Job) (registration, error) {
	ctx = services.WithStage(ctx, stageRegistration.name)
	switch job.Kind {
	case MediaMovie:
		if r.deps.Movies == nil {
			return registration{}, services.Wrap(services.ErrConfiguration, "pipeline", "register", "radarr is not configured", nil)
		}
		movie, err := r.deps.Movies.CreateMovie(ctx, job.Movie.TMDBID, job.Movie.Title, job.QualityProfile, job.RootFolder)
		if err != nil {
			return registration{}, err
		}
		return registration{
			remote: func(_ int, local string) string { return upload.MoviePath(movie.Path, local) },
			scanRename: func(ctx context.Context) error {
				return r.deps.Movies.ScanRename(ctx, movie.ID)
			},
		}, nil
	case MediaTVShow:
		if r.deps.Series == nil {
			return registration{}, services.Wrap(services.ErrConfiguration, "pipeline", "register", "sonarr is not configured", nil)
		}
		meta := job.TV
		series, err := r.deps.Series.CreateSeries(ctx, meta.TVDBID, meta.Title, meta.SeriesType, job.QualityProfile, job.RootFolder)
		if err != nil {
			return registration{}, err
		}
		return registration{
			remote: func(i int, local string) string {
				return upload.EpisodePath(series.Path, meta.Season, meta.Episodes[i], local)
			},
			scanRename: func(ctx context.Context) error {
				return r.deps.Series.ScanRename(ctx, series.ID)
			},
		}, nil
	default:
		return registration{}, services.Wrap(services.ErrValidation, "pipeline", "register", "unknown media kind "+string(job.Kind), nil)
	}
}

// refreshLibrary asks the media server to rescan without waiting for it.
func (r *Runner) refreshLibrary(ctx context.Context) {
	if r.deps.Refresher == nil {
		return
	}
	logger := logging.WithContext(ctx, r.logger)
	ctx = context.WithoutCancel(ctx)
	done := r.refreshed
	go func() {
		if done != nil {
			defer close(done)
		}
		ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
		defer cancel()
		if err := r.deps.Refresher.Refresh(ctx); err != nil {
			logging.WarnWithContext(logger, "library refresh failed", "library_refresh_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "new media appears after the next scheduled scan"),
			)
			return
		}
		logger.Debug("library refresh requested")
	}()
}

func (r *Runner) reportError(ctx context.Context, events *eventWriter, st stage, err error) {
	metrics.StageErrorsTotal.WithLabelValues(st.name, services.Kind(err)).Inc()
	logger := logging.WithContext(services.WithStage(ctx, st.name), r.logger)
	logging.ErrorWithContext(logger, "stage failed", st.name+"_failed",
		logging.String("error_kind", services.Kind(err)),
		logging.Error(err),
	)
	events.send(errorEvent(st, err))
}

func (r *Runner) recordStart(ctx context.Context, job *Job) {
	if r.deps.History == nil {
		return
	}
	err := r.deps.History.Start(ctx, history.Record{
		ID:        job.ID,
		Device:    job.Device,
		MediaKind: string(job.Kind),
		Title:     job.DisplayTitle(),
		Titles:    job.TitleIDs(),
		Profile:   job.Profile,
	})
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "failed to record job start", "history_write_failed",
			logging.Error(err))
	}
}

func (r *Runner) recordFinish(ctx context.Context, job *Job, status string, st stage, cause error) {
	if r.deps.History == nil {
		return
	}
	if err := r.deps.History.Finish(context.WithoutCancel(ctx), job.ID, status, st.name, cause); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "failed to record job outcome", "history_write_failed",
			logging.Error(err))
	}
}

func (r *Runner) notifyFailure(ctx context.Context, job *Job, st stage, err error) {
	payload := notifications.Payload{"stage": st.name, "error": err.Error()}
	if job != nil {
		payload["title"] = job.DisplayTitle()
	}
	r.notify(ctx, notifications.EventJobFailed, payload)
}

func (r *Runner) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if r.deps.Notifier == nil {
		return
	}
	if err := r.deps.Notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		logging.WithContext(ctx, r.logger).Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}
