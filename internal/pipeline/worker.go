package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/mathdocx/internal/analysis"
	"github.com/dgallion1/mathdocx/internal/docbuild"
	"github.com/dgallion1/mathdocx/internal/imageprep"
	"github.com/dgallion1/mathdocx/internal/importer"
)

// ErrNoAnalyzer is returned for image jobs when no vision client is set.
var ErrNoAnalyzer = errors.New("image analysis is not configured")

// Analyzer turns one page image into a structured analysis.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, mediaType, filename string) (*analysis.Result, error)
}

// WorkerOptions configures how jobs are converted.
type WorkerOptions struct {
	Image       imageprep.Options
	Import      importer.Options
	MaxAttempts int
}

// Worker converts a single file into a document.
type Worker struct {
	analyzer Analyzer
	builder  *docbuild.Builder
	log      *slog.Logger
	opts     WorkerOptions

	// retryDelay is swapped out in tests.
	retryDelay func(err error, attempt int) (time.Duration, bool)
}

func NewWorker(analyzer Analyzer, builder *docbuild.Builder, log *slog.Logger, opts WorkerOptions) *Worker {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	return &Worker{
		analyzer:   analyzer,
		builder:    builder,
		log:        log,
		opts:       opts,
		retryDelay: RetryDelay,
	}
}

// Process runs the full conversion for a job. Failures are recorded on the
// job; nothing is returned.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)
	start := time.Now()

	res, phase, err := w.analyze(ctx, job, log)
	if err != nil {
		log.Error("analysis failed", "phase", phase, "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, phase)
		return
	}
	job.SetResult(res)

	job.SetStatus(StatusRendering, "rendering")
	var buf bytes.Buffer
	rep, err := w.builder.Render(res, &buf)
	if err != nil {
		log.Error("render failed", "error", err)
		job.AddError(fmt.Sprintf("render: %s", err))
		job.SetStatus(StatusFailed, "rendering")
		return
	}
	job.SetOutput(docbuild.OutputName(job.Filename), buf.Bytes(), rep)

	log.Info("conversion complete",
		"segments", rep.Segments,
		"formulas", rep.Formulas,
		"inline_math", rep.InlineMath,
		"fallbacks", rep.Fallbacks,
		"bytes", buf.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	job.SetStatus(StatusCompleted, "done")
}

// analyze produces the analysis for a job's file. The returned phase names
// the step that failed.
func (w *Worker) analyze(ctx context.Context, job *Job, log *slog.Logger) (*analysis.Result, string, error) {
	data := job.FileData()
	switch {
	case imageprep.IsImage(job.Filename):
		return w.analyzeImage(ctx, job, data, log)

	case strings.EqualFold(filepath.Ext(job.Filename), ".json"):
		job.SetStatus(StatusPreparing, "decoding")
		res, err := analysis.Decode(data)
		if err != nil {
			return nil, "decoding", fmt.Errorf("decode analysis: %w", err)
		}
		return res, "", nil

	default:
		job.SetStatus(StatusPreparing, "importing")
		imp, err := importer.ForFile(job.Filename, w.opts.Import)
		if err != nil {
			return nil, "importing", err
		}
		res, err := imp.Import(bytes.NewReader(data), job.Filename)
		if err != nil {
			return nil, "importing", fmt.Errorf("import: %w", err)
		}
		log.Info("imported document", "segments", len(res.Segments))
		return res, "", nil
	}
}

func (w *Worker) analyzeImage(ctx context.Context, job *Job, data []byte, log *slog.Logger) (*analysis.Result, string, error) {
	if w.analyzer == nil {
		return nil, "analyzing", ErrNoAnalyzer
	}

	job.SetStatus(StatusPreparing, "preparing image")
	img, err := imageprep.Prepare(data, w.opts.Image)
	if err != nil {
		return nil, "preparing image", fmt.Errorf("prepare image: %w", err)
	}
	log.Info("prepared image",
		"source_format", img.SourceFormat,
		"width", img.Width,
		"height", img.Height,
		"resized", img.Resized,
		"bytes", len(img.Data),
	)

	job.SetStatus(StatusAnalyzing, "analyzing")
	var lastErr error
	for attempt := range w.opts.MaxAttempts {
		job.IncrAttempts()
		res, err := w.analyzer.Analyze(ctx, img.Data, img.MediaType, job.Filename)
		if err == nil {
			return res, "", nil
		}
		lastErr = err

		delay, retry := w.retryDelay(err, attempt)
		if !retry || attempt == w.opts.MaxAttempts-1 {
			break
		}
		log.Warn("analysis attempt failed, retrying", "attempt", attempt+1, "delay", delay, "error", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, "analyzing", ctx.Err()
		}
	}
	return nil, "analyzing", fmt.Errorf("analysis failed after %d attempts: %w", job.Snapshot().Progress.Attempts, lastErr)
}
