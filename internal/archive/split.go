package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"clipforge/internal/logging"
	"clipforge/internal/services"
)

// Range is one requested clip window on the source timeline, in seconds.
type Range struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Extractor produces a stream-copied clip of the source. The production
// implementation shells out to the transcoding engine; tests substitute a
// fake.
type Extractor interface {
	Extract(ctx context.Context, source string, r Range, outputPath string) error
}

// Pipeline cuts a source into clips and bundles them into a zip archive.
// Extraction is sequential; each source read is cheap stream copy, and a
// single failing range must abort the whole request.
type Pipeline struct {
	extractor Extractor
	workDir   string
	logger    *slog.Logger
}

// NewPipeline builds a Pipeline writing intermediate clips under workDir.
func NewPipeline(extractor Extractor, workDir string, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		extractor: extractor,
		workDir:   workDir,
		logger:    logging.NewComponentLogger(logger, "archive"),
	}
}

// Run extracts every range in order and writes the finished archive to
// zipPath. Clips are named clip_1.mp4 onward in request order. On any failure
// the partial archive is removed and an error naming the failing clip is
// returned; intermediate clip files are left for the retention sweeper.
func (p *Pipeline) Run(ctx context.Context, source string, ranges []Range, zipPath string) error {
	if len(ranges) == 0 {
		return services.Wrap(services.ErrValidation, "archive", "split", "no ranges requested", nil)
	}
	for i, r := range ranges {
		if r.Start < 0 || r.End <= r.Start {
			return services.Wrap(services.ErrValidation, "archive", "split",
				fmt.Sprintf("range %d is invalid (%g..%g)", i+1, r.Start, r.End), nil)
		}
	}

	clipDir, err := os.MkdirTemp(p.workDir, "split-")
	if err != nil {
		return services.Wrap(nil, "archive", "split", "create clip dir", err)
	}

	zipFile, err := os.Create(zipPath)
	if err != nil {
		return services.Wrap(nil, "archive", "split", "create archive", err)
	}
	writer := zip.NewWriter(zipFile)

	abort := func(cause error) error {
		_ = writer.Close()
		_ = zipFile.Close()
		_ = os.Remove(zipPath)
		return cause
	}

	for i, r := range ranges {
		name := fmt.Sprintf("clip_%d.mp4", i+1)
		clipPath := filepath.Join(clipDir, name)

		p.logger.Info("extracting clip",
			logging.String("clip", name),
			logging.Float64("start", r.Start),
			logging.Float64("end", r.End))

		if err := p.extractor.Extract(ctx, source, r, clipPath); err != nil {
			return abort(services.Wrap(services.ErrExternalTool, "archive", "split",
				fmt.Sprintf("extract %s", name), err))
		}
		if err := p.addClip(writer, clipPath, name); err != nil {
			return abort(services.Wrap(nil, "archive", "split",
				fmt.Sprintf("archive %s", name), err))
		}
		_ = os.Remove(clipPath)
	}

	if err := writer.Close(); err != nil {
		return abort(services.Wrap(nil, "archive", "split", "finalize archive", err))
	}
	if err := zipFile.Close(); err != nil {
		_ = os.Remove(zipPath)
		return services.Wrap(nil, "archive", "split", "close archive", err)
	}
	_ = os.RemoveAll(clipDir)

	p.logger.Info("archive completed",
		logging.String("path", zipPath),
		logging.Int("clips", len(ranges)))
	return nil
}

// addClip streams one finished clip into the archive.
func (p *Pipeline) addClip(writer *zip.Writer, clipPath, name string) error {
	clip, err := os.Open(clipPath)
	if err != nil {
		return err
	}
	defer clip.Close()

	entry, err := writer.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(entry, clip)
	return err
}
