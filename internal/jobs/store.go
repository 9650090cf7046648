package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    percent INTEGER NOT NULL DEFAULT 0,
    result_file TEXT,
    error_message TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
`

// Store persists job rows in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore initializes or connects to the job database.
func OpenStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Create inserts a new queued job row.
func (s *Store) Create(ctx context.Context, id string) (Job, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (id, status, percent, result_file, error_message, created_at, updated_at)
         VALUES (?, ?, 0, NULL, NULL, ?, ?)`,
		id,
		StatusQueued,
		timestamp,
		timestamp,
	)
	if err != nil {
		return Job{}, fmt.Errorf("insert job: %w", err)
	}
	return Job{ID: id, Status: StatusQueued, CreatedAt: now, UpdatedAt: now}, nil
}

// SetRunning transitions a queued job to running.
func (s *Store) SetRunning(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusRunning,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusQueued,
	)
	if err != nil {
		return fmt.Errorf("set running: %w", err)
	}
	return nil
}

// SetProgress records a progress percentage. Updates are monotonic and capped
// at 99; only a completion can write 100.
func (s *Store) SetProgress(ctx context.Context, id string, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 99 {
		percent = 99
	}
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET percent = ?, updated_at = ?
         WHERE id = ? AND status = ? AND percent < ?`,
		percent,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusRunning,
		percent,
	)
	if err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}

// SetCompleted marks the job done, writing percent 100 and the result file in
// the same statement.
func (s *Store) SetCompleted(ctx context.Context, id, resultFile string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, percent = 100, result_file = ?, updated_at = ?
         WHERE id = ? AND status != ?`,
		StatusCompleted,
		resultFile,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusCompleted,
	)
	if err != nil {
		return fmt.Errorf("set completed: %w", err)
	}
	return nil
}

// SetFailed marks the job failed with a message; the percent freezes at its
// last reported value.
func (s *Store) SetFailed(ctx context.Context, id, message string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		StatusError,
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

// Get fetches a job by identifier. An unknown id yields a default queued row
// rather than an error so observers of not-yet-persisted jobs see a coherent
// starting state.
func (s *Store) Get(ctx context.Context, id string) (Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{ID: id, Status: StatusQueued}, nil
	}
	if err != nil {
		return Job{}, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns all jobs ordered by creation time, newest first.
func (s *Store) List(ctx context.Context) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var list []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, job)
	}
	return list, rows.Err()
}

const jobColumns = "id, status, percent, result_file, error_message, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (Job, error) {
	var (
		id           string
		statusStr    string
		percent      int
		resultFile   sql.NullString
		errorMessage sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(&id, &statusStr, &percent, &resultFile, &errorMessage, &createdRaw, &updatedRaw); err != nil {
		return Job{}, err
	}

	job := Job{
		ID:           id,
		Status:       Status(statusStr),
		Percent:      percent,
		ResultFile:   resultFile.String,
		ErrorMessage: errorMessage.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
