package jobs

import (
	"path/filepath"
	"time"
)

// Status is the lifecycle state of an export job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Terminal reports whether the status can never change again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Job is one persisted export job row.
type Job struct {
	ID           string
	Status       Status
	Percent      int
	ResultFile   string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Snapshot is the observer-facing view of a job, pushed over websockets and
// returned from polling endpoints.
type Snapshot struct {
	JobID       string `json:"jobId"`
	Percent     int    `json:"percent"`
	Status      Status `json:"status"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Snapshot projects the row into its wire form. The download URL appears only
// once the job completed and names the output by basename, never by path.
func (j Job) Snapshot() Snapshot {
	snap := Snapshot{
		JobID:   j.ID,
		Percent: j.Percent,
		Status:  j.Status,
		Error:   j.ErrorMessage,
	}
	if j.Status == StatusCompleted && j.ResultFile != "" {
		snap.DownloadURL = "/api/download/" + filepath.Base(j.ResultFile)
	}
	return snap
}
