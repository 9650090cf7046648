package archive

import (
	"context"
	"errors"

	"clipforge/internal/transform"
)

// RunnerExtractor adapts the engine runner to the Extractor interface.
type RunnerExtractor struct {
	Runner *transform.Runner
}

// Extract stream-copies one range to outputPath, blocking until the engine
// finishes.
func (e RunnerExtractor) Extract(ctx context.Context, source string, r Range, outputPath string) error {
	spec := transform.Spec{
		Mode:       transform.ModeExtract,
		Source:     source,
		Start:      r.Start,
		End:        r.End,
		OutputPath: outputPath,
	}
	for event := range e.Runner.Run(ctx, spec) {
		switch event.Kind {
		case transform.EventCompleted:
			return nil
		case transform.EventFailed:
			return event.Err
		}
	}
	return errors.New("extract ended without a terminal event")
}
