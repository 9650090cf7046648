package transform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"clipforge/internal/logging"
	"clipforge/internal/services"
)

// RunnerConfig carries the engine settings a Runner needs.
type RunnerConfig struct {
	Binary       string
	PreviewCRF   int
	ExportCRF    int
	ExportPreset string
	// Timeout bounds a single invocation; zero disables the bound.
	Timeout time.Duration
}

// Runner invokes the transcoding engine. One Runner serves concurrent
// invocations; each call owns its own process.
type Runner struct {
	cfg    RunnerConfig
	logger *slog.Logger
}

// NewRunner builds a Runner. A nil logger is replaced by a no-op logger.
func NewRunner(cfg RunnerConfig, logger *slog.Logger) *Runner {
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = "ffmpeg"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{cfg: cfg, logger: logging.NewComponentLogger(logger, "transform")}
}

// Stream encodes a preview fragment and writes the mp4 bytes to w as they are
// produced. Failures before the first byte surface as a structured error;
// once bytes have flowed the caller sees a short write instead.
func (r *Runner) Stream(ctx context.Context, spec Spec, w io.Writer) error {
	if spec.Mode != ModePreview {
		return services.Wrap(services.ErrValidation, "transform", "stream", "stream requires preview mode", nil)
	}
	ctx, cancel := r.boundedContext(ctx)
	defer cancel()

	args := BuildArgs(spec, PreviewProfile(r.cfg.PreviewCRF))
	r.logger.Debug("starting preview stream", logging.String("source", spec.Source))

	cmd := exec.CommandContext(ctx, r.cfg.Binary, args...)
	cmd.Stdout = w
	tail := newTailBuffer(4 * 1024)
	cmd.Stderr = tail

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return services.Wrap(services.ErrExternalTool, "transform", "stream",
			fmt.Sprintf("engine exited: %s", tail.String()), err)
	}
	return nil
}

// Run executes an export or extract invocation asynchronously. The returned
// channel delivers progress events followed by exactly one terminal event and
// is then closed. The invocation is not tied to the subscriber; draining the
// channel is the caller's job.
func (r *Runner) Run(ctx context.Context, spec Spec) <-chan Event {
	events := make(chan Event, 16)

	go func() {
		defer close(events)
		events <- r.execute(ctx, spec, events)
	}()

	return events
}

// execute runs the process to completion and returns the terminal event.
func (r *Runner) execute(ctx context.Context, spec Spec, events chan<- Event) Event {
	ctx, cancel := r.boundedContext(ctx)
	defer cancel()

	var profile EncoderProfile
	switch spec.Mode {
	case ModeExport:
		profile = ExportProfile(r.cfg.ExportPreset, r.cfg.ExportCRF)
	case ModeExtract:
		// Stream-copy; profile unused.
	default:
		return Event{Kind: EventFailed, Err: services.Wrap(services.ErrValidation, "transform", "run",
			fmt.Sprintf("mode %q is not runnable", spec.Mode), nil)}
	}

	args := BuildArgs(spec, profile)
	r.logger.Info("starting engine invocation",
		logging.String("mode", string(spec.Mode)),
		logging.String("source", spec.Source),
		logging.String("output", spec.OutputPath))

	cmd := exec.CommandContext(ctx, r.cfg.Binary, args...)
	tail := newTailBuffer(4 * 1024)
	cmd.Stderr = tail

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Event{Kind: EventFailed, Err: services.Wrap(services.ErrExternalTool, "transform", "run", "attach progress pipe", err)}
	}
	if err := cmd.Start(); err != nil {
		return Event{Kind: EventFailed, Err: services.Wrap(services.ErrExternalTool, "transform", "run", "start engine", err)}
	}

	lastPercent := 0
	parseErr := parseProgress(stdout, func(update progressUpdate) {
		percent := percentOf(update.OutTimeSeconds, spec.SourceDuration)
		if percent <= lastPercent {
			return
		}
		lastPercent = percent
		select {
		case events <- Event{Kind: EventProgress, Percent: percent}:
		default:
			// A stalled subscriber must not stall the encode.
		}
	})

	waitErr := cmd.Wait()
	if waitErr != nil {
		if ctx.Err() != nil {
			waitErr = ctx.Err()
		}
		r.logger.Error("engine invocation failed",
			logging.String("mode", string(spec.Mode)),
			logging.Error(waitErr))
		return Event{Kind: EventFailed, Err: services.Wrap(services.ErrExternalTool, "transform", "run",
			fmt.Sprintf("engine exited: %s", tail.String()), waitErr)}
	}
	if parseErr != nil {
		r.logger.Warn("progress stream ended early", logging.Error(parseErr))
	}

	r.logger.Info("engine invocation completed", logging.String("output", spec.OutputPath))
	return Event{Kind: EventCompleted, Percent: 100, OutputPath: spec.OutputPath}
}

func (r *Runner) boundedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.cfg.Timeout)
}

// tailBuffer retains the last capacity bytes written to it. Engine stderr can
// be arbitrarily long; only the end explains a failure.
type tailBuffer struct {
	mu       sync.Mutex
	capacity int
	data     []byte
}

func newTailBuffer(capacity int) *tailBuffer {
	return &tailBuffer{capacity: capacity}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = append(b.data, p...)
	if overflow := len(b.data) - b.capacity; overflow > 0 {
		b.data = b.data[overflow:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(string(b.data))
}
