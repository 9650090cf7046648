package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"clipforge/internal/logging"
)

// Sweeper removes aged files from the output and work directories so
// completed exports and orphaned intermediates do not accumulate forever.
// Job rows are kept; only the files expire.
type Sweeper struct {
	dirs     []string
	maxAge   time.Duration
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper builds a Sweeper over the given directories.
func NewSweeper(dirs []string, maxAge, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Sweeper{
		dirs:     dirs,
		maxAge:   maxAge,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "sweeper"),
	}
}

// Run sweeps on the configured interval until the context is cancelled. One
// sweep happens immediately on start.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.SweepOnce(time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(time.Now())
		}
	}
}

// SweepOnce removes every regular file older than the retention age and
// returns the number removed. Unreadable entries are skipped.
func (s *Sweeper) SweepOnce(now time.Time) int {
	cutoff := now.Add(-s.maxAge)
	removed := 0

	for _, dir := range s.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(cutoff) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				s.logger.Warn("remove expired file", logging.String("path", path), logging.Error(err))
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		s.logger.Info("retention sweep removed files", logging.Int("count", removed))
	}
	return removed
}
