package jobs

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"clipforge/internal/logging"
)

// Tracker combines the persistent store with the live broadcaster. All state
// transitions for a job flow through its single owning goroutine, so store
// writes and published snapshots never race per job.
type Tracker struct {
	store       *Store
	broadcaster *Broadcaster
	logger      *slog.Logger
}

// NewTracker builds a Tracker. A nil logger is replaced by a no-op logger.
func NewTracker(store *Store, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Tracker{
		store:       store,
		broadcaster: NewBroadcaster(),
		logger:      logging.NewComponentLogger(logger, "jobs"),
	}
}

// Create registers a new queued job and returns its identifier.
func (t *Tracker) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	job, err := t.store.Create(ctx, id)
	if err != nil {
		return "", err
	}
	t.broadcaster.Publish(id, job.Snapshot())
	t.logger.Info("job created", logging.String("job_id", id))
	return id, nil
}

// Start transitions the job to running.
func (t *Tracker) Start(ctx context.Context, id string) {
	if err := t.store.SetRunning(ctx, id); err != nil {
		t.logger.Error("persist running state", logging.String("job_id", id), logging.Error(err))
	}
	t.publishCurrent(ctx, id)
}

// Progress records a progress percentage.
func (t *Tracker) Progress(ctx context.Context, id string, percent int) {
	if err := t.store.SetProgress(ctx, id, percent); err != nil {
		t.logger.Error("persist progress", logging.String("job_id", id), logging.Error(err))
	}
	t.publishCurrent(ctx, id)
}

// Complete marks the job finished with its result file.
func (t *Tracker) Complete(ctx context.Context, id, resultFile string) {
	if err := t.store.SetCompleted(ctx, id, resultFile); err != nil {
		t.logger.Error("persist completion", logging.String("job_id", id), logging.Error(err))
	}
	t.publishCurrent(ctx, id)
	t.logger.Info("job completed", logging.String("job_id", id), logging.String("result", resultFile))
}

// Fail marks the job failed.
func (t *Tracker) Fail(ctx context.Context, id, message string) {
	if err := t.store.SetFailed(ctx, id, message); err != nil {
		t.logger.Error("persist failure", logging.String("job_id", id), logging.Error(err))
	}
	t.publishCurrent(ctx, id)
	t.logger.Warn("job failed", logging.String("job_id", id), logging.String("reason", message))
}

// Snapshot returns the job's current observer view.
func (t *Tracker) Snapshot(ctx context.Context, id string) (Snapshot, error) {
	job, err := t.store.Get(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	return job.Snapshot(), nil
}

// Subscribe attaches an observer to the job's snapshot stream.
func (t *Tracker) Subscribe(ctx context.Context, id string) (<-chan Snapshot, func(), error) {
	snap, err := t.Snapshot(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := t.broadcaster.Subscribe(id, snap)
	return ch, cancel, nil
}

// List returns all persisted jobs, newest first.
func (t *Tracker) List(ctx context.Context) ([]Job, error) {
	return t.store.List(ctx)
}

func (t *Tracker) publishCurrent(ctx context.Context, id string) {
	job, err := t.store.Get(ctx, id)
	if err != nil {
		t.logger.Error("read job for publish", logging.String("job_id", id), logging.Error(err))
		return
	}
	t.broadcaster.Publish(id, job.Snapshot())
}
