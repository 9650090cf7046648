// Package jobs tracks export jobs from creation to completion.
//
// Three collaborators:
//   - Store: SQLite-backed persistence of job rows with monotonic progress
//     updates.
//   - Broadcaster: in-memory fanout of job snapshots to live observers.
//   - Tracker: the write path that keeps both in sync; each job has exactly
//     one writing goroutine.
//
// Jobs are never deleted here; output retention is handled by file age
// elsewhere, so a completed job's download link can outlive the file itself.
package jobs
