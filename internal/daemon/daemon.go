package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"ripline/internal/config"
	"ripline/internal/deps"
	"ripline/internal/disc"
	"ripline/internal/logging"
	"ripline/internal/notifications"
	"ripline/internal/preflight"
)

// Daemon owns the HTTP server, the disc monitor and the single-instance lock.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	notifier notifications.Service
	api      *apiServer
	monitor  *netlinkMonitor
	probe    func(ctx context.Context, device string) preflight.DiscProbe
	ready    func(ctx context.Context, device string) (disc.DriveStatus, error)

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt time.Time
	cancel    context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	StartedAt      time.Time
	APIAddress     string
	LockFilePath   string
	MonitorRunning bool
}

// New constructs a daemon serving handler on the configured bind address.
func New(cfg *config.Config, handler http.Handler, notifier notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || handler == nil {
		return nil, errors.New("daemon requires config and handler")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		notifier: notifier,
		api:      newAPIServer(cfg.Paths.APIBind, handler, logger),
		probe:    preflight.ProbeDisc,
		ready:    waitForDrive,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	if cfg.Workflow.DiscMonitor {
		d.monitor = newNetlinkMonitor(cfg.MakeMKV.OpticalDrive, logger, d.discInserted)
	}
	return d, nil
}

// Start acquires the lock, logs preflight results and starts serving.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another riplined instance is already running")
	}

	d.logPreflight(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	if err := d.monitor.Start(runCtx); err != nil {
		cancel()
		d.api.stop()
		_ = d.lock.Unlock()
		return fmt.Errorf("start disc monitor: %w", err)
	}

	d.cancel = cancel
	d.startedAt = time.Now()
	d.running.Store(true)
	d.logger.Info("ripline daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()),
	)
	return nil
}

// Stop stops serving and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.monitor.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("ripline daemon stopped")
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:        d.running.Load(),
		StartedAt:      d.startedAt,
		APIAddress:     d.api.address(),
		LockFilePath:   d.lockPath,
		MonitorRunning: d.monitor.Running(),
	}
}

func (d *Daemon) logPreflight(ctx context.Context) {
	statuses := preflight.CheckSystemDeps(d.cfg)
	for _, status := range statuses {
		if status.Available {
			d.logger.Debug("dependency available", logging.String("name", status.Name), logging.String("path", status.Path))
		}
	}
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		logging.WarnWithContext(d.logger, "required binaries missing", "dependency_missing",
			logging.Any("missing", missing),
			logging.String(logging.FieldErrorHint, "install the listed tools or fix their paths in the config"),
			logging.String(logging.FieldImpact, "jobs will fail at the affected stage"),
		)
	}
	for _, result := range preflight.RunAll(ctx, d.cfg) {
		if result.Passed {
			d.logger.Info("preflight check passed", logging.String("check", result.Name), logging.String("detail", result.Detail))
			continue
		}
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "dependent features may fail"),
		)
	}
}

const (
	drivePolls        = 30
	drivePollInterval = 2 * time.Second
)

func waitForDrive(ctx context.Context, device string) (disc.DriveStatus, error) {
	return disc.WaitForReady(ctx, device, drivePolls, drivePollInterval)
}

// discInserted announces a new disc once the drive reports it readable.
// Probing titles is left to the client.
func (d *Daemon) discInserted(ctx context.Context, device string) error {
	status, err := d.ready(ctx, device)
	if err != nil {
		logging.WarnWithContext(d.logger, "drive not ready after insertion", "drive_not_ready",
			logging.String(logging.FieldDevice, device),
			logging.String("drive_status", status.String()),
			logging.Error(err),
		)
		return err
	}
	probe := d.probe(ctx, device)
	d.logger.Info("disc inserted",
		logging.String(logging.FieldDevice, device),
		logging.String("label", probe.Label),
		logging.String("disc_type", probe.Type),
	)
	return d.notifier.Publish(ctx, notifications.EventDiscDetected, notifications.Payload{
		"discTitle": probe.Label,
		"discType":  probe.Type,
	})
}
