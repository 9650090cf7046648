package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"clipforge/internal/archive"
	"clipforge/internal/assets"
	"clipforge/internal/config"
	"clipforge/internal/jobs"
	"clipforge/internal/logging"
	"clipforge/internal/media/ffprobe"
	"clipforge/internal/presets"
	"clipforge/internal/server"
	"clipforge/internal/storage"
	"clipforge/internal/transform"
)

// Daemon wires every component together and enforces single-instance
// execution via a lock file.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	store   *jobs.Store
	tracker *jobs.Tracker
	server  *server.Server
	sweeper *storage.Sweeper

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool                `json:"running"`
	PID          int                 `json:"pid"`
	Address      string              `json:"address"`
	JobDBPath    string              `json:"jobDbPath"`
	LockFilePath string              `json:"lockFilePath"`
	JobCounts    map[jobs.Status]int `json:"jobCounts"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	store, err := jobs.OpenStore(filepath.Join(cfg.Paths.LogDir, "jobs.db"))
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}

	tracker := jobs.NewTracker(store, logger)
	runner := transform.NewRunner(transform.RunnerConfig{
		Binary:       cfg.FFmpegBinary(),
		PreviewCRF:   cfg.Transform.PreviewCRF,
		ExportCRF:    cfg.Transform.ExportCRF,
		ExportPreset: cfg.Transform.ExportPreset,
		Timeout:      cfg.JobTimeout(),
	}, logger)

	probeBinary := cfg.FFprobeBinary()
	probe := func(ctx context.Context, path string) error {
		result, err := ffprobe.Inspect(ctx, probeBinary, path)
		if err != nil {
			return err
		}
		return result.ValidateUpload()
	}
	inspect := func(ctx context.Context, path string) (float64, error) {
		result, err := ffprobe.Inspect(ctx, probeBinary, path)
		if err != nil {
			return 0, err
		}
		return result.DurationSeconds(), nil
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		tracker:  tracker,
		lockPath: filepath.Join(cfg.Paths.LogDir, "clipforged.lock"),
	}
	d.lock = flock.New(d.lockPath)

	d.server = server.New(server.Options{
		Bind:            cfg.Paths.APIBind,
		Logger:          logger,
		Uploads:         storage.NewUploadStore(cfg.Paths.UploadDir, probe),
		Outputs:         storage.NewOutputStore(cfg.Paths.OutputDir),
		Runner:          runner,
		Tracker:         tracker,
		Pipeline:        archive.NewPipeline(archive.RunnerExtractor{Runner: runner}, cfg.Paths.WorkDir, logger),
		Picker:          assets.NewPicker(cfg.Paths.BgmDir),
		Presets:         presets.NewStore(filepath.Join(cfg.Paths.LogDir, "presets.json")),
		Inspect:         inspect,
		Status:          func(ctx context.Context) any { return d.Status(ctx) },
		PreviewDuration: float64(cfg.Transform.PreviewDuration),
	})

	if cfg.Retention.Enabled {
		d.sweeper = storage.NewSweeper(
			[]string{cfg.Paths.OutputDir, cfg.Paths.WorkDir},
			cfg.Retention.MaxAge(),
			cfg.Retention.SweepInterval(),
			logger,
		)
	}
	return d, nil
}

// Start acquires the daemon lock, opens the API listener, and launches the
// retention sweeper.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another clipforge daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.server.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start api server: %w", err)
	}
	if d.sweeper != nil {
		go d.sweeper.Run(d.ctx)
	}

	d.running.Store(true)
	d.logger.Info("clipforge daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.server.Addr()))
	return nil
}

// Stop shuts down background work and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("clipforge daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the bound API address after Start.
func (d *Daemon) Addr() string {
	return d.server.Addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Address:      d.server.Addr(),
		JobDBPath:    filepath.Join(d.cfg.Paths.LogDir, "jobs.db"),
		LockFilePath: d.lockPath,
		JobCounts:    make(map[jobs.Status]int),
	}
	if list, err := d.tracker.List(ctx); err == nil {
		for _, job := range list {
			status.JobCounts[job.Status]++
		}
	}
	return status
}
