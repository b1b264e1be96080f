package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/mathdocx/internal/analysis"
	"github.com/dgallion1/mathdocx/internal/config"
	"github.com/dgallion1/mathdocx/internal/docbuild"
	"github.com/dgallion1/mathdocx/internal/latex"
	"github.com/dgallion1/mathdocx/internal/omml"
	"github.com/dgallion1/mathdocx/internal/pipeline"
)

const (
	dirPermissions  = 0o750
	filePermissions = 0o644
)

var (
	ErrReadInput   = errors.New("failed to read input file")
	ErrWriteOutput = errors.New("failed to write output file")
)

// conversionResult holds the outcome of one file.
type conversionResult struct {
	InputPath  string
	OutputPath string
	Snapshot   pipeline.JobSnapshot
	Err        error
	Duration   time.Duration
}

// converter carries what every worker goroutine shares.
type converter struct {
	analyzer pipeline.Analyzer
	builder  *docbuild.Builder
	log      *slog.Logger
	opts     pipeline.WorkerOptions
	outDir   string
	tables   bool
	keepJSON bool
}

func convertFiles(ctx context.Context, flags *cliFlags, files []string, stdout, stderr io.Writer) error {
	level := slog.LevelWarn
	if flags.verbose {
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg := config.Load()
	if flags.model != "" {
		cfg.AnthropicModel = flags.model
	}
	if flags.maxDepth > 0 {
		cfg.MaxMathDepth = flags.maxDepth
	}
	if flags.style != "" {
		cfg.StyleFile = flags.style
	}

	style := docbuild.DefaultStyle()
	if cfg.StyleFile != "" {
		s, err := docbuild.LoadStyle(cfg.StyleFile)
		if err != nil {
			return fmt.Errorf("style %s: %w", cfg.StyleFile, err)
		}
		style = s
	}

	c := &converter{
		builder:  docbuild.NewBuilder(style, cfg.MaxMathDepth, log),
		log:      log,
		opts:     pipeline.OptionsFromConfig(cfg),
		outDir:   flags.outDir,
		tables:   flags.tables,
		keepJSON: flags.keepJSON,
	}
	// A nil *analysis.Client must not end up inside the interface.
	if cfg.AnthropicAPIKey != "" {
		claude := analysis.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicBaseURL, cfg.AnalysisTimeout)
		defer claude.Close()
		c.analyzer = claude
	}

	results := c.convertBatch(ctx, files, resolveWorkers(flags.workers, len(files)))

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(stderr, "FAIL %s: %v\n", r.InputPath, r.Err)
			continue
		}
		p := r.Snapshot.Progress
		fmt.Fprintf(stdout, "%s -> %s (%d segments, %d formulas, %d inline, %d tables, %s)\n",
			r.InputPath, r.OutputPath, p.Segments, p.Formulas, p.InlineMath, p.Tables,
			r.Duration.Round(time.Millisecond))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d conversions failed", failed, len(results))
	}
	return nil
}

// convertBatch processes files concurrently, one pipeline worker per goroutine.
func (c *converter) convertBatch(ctx context.Context, files []string, concurrency int) []conversionResult {
	if len(files) == 0 {
		return nil
	}

	results := make([]conversionResult, len(files))
	var wg sync.WaitGroup
	jobs := make(chan int, len(files))

	for range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := pipeline.NewWorker(c.analyzer, c.builder, c.log, c.opts)
			for idx := range jobs {
				if ctx.Err() != nil {
					results[idx] = conversionResult{InputPath: files[idx], Err: ctx.Err()}
					continue
				}
				results[idx] = c.convertFile(ctx, w, files[idx])
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

func (c *converter) convertFile(ctx context.Context, w *pipeline.Worker, path string) (result conversionResult) {
	start := time.Now()
	result = conversionResult{InputPath: path}
	defer func() { result.Duration = time.Since(start) }()

	data, err := os.ReadFile(path) // #nosec G304 -- operand supplied by the user
	if err != nil {
		result.Err = fmt.Errorf("%w: %v", ErrReadInput, err)
		return result
	}

	job := pipeline.NewJob(filepath.Base(path), data)
	w.Process(ctx, job)
	result.Snapshot = job.Snapshot()
	if result.Snapshot.Status != pipeline.StatusCompleted {
		result.Err = errors.New(strings.Join(result.Snapshot.Progress.Errors, "; "))
		return result
	}

	dir := c.outDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		result.Err = fmt.Errorf("creating output directory: %w", err)
		return result
	}

	doc, name := job.Output()
	result.OutputPath = filepath.Join(dir, name)
	if err := os.WriteFile(result.OutputPath, doc, filePermissions); err != nil {
		result.Err = fmt.Errorf("%w: %v", ErrWriteOutput, err)
		return result
	}

	base := strings.TrimSuffix(result.OutputPath, ".docx")
	if c.keepJSON {
		raw, err := json.MarshalIndent(job.Result(), "", "  ")
		if err == nil {
			err = os.WriteFile(base+".json", raw, filePermissions)
		}
		if err != nil {
			result.Err = fmt.Errorf("%w: %v", ErrWriteOutput, err)
			return result
		}
	}
	if c.tables {
		var buf bytes.Buffer
		err := docbuild.ExportTables(job.Result(), &buf)
		switch {
		case errors.Is(err, docbuild.ErrNoTables):
			// Nothing to export.
		case err != nil:
			result.Err = fmt.Errorf("export tables: %w", err)
			return result
		default:
			if err := os.WriteFile(base+"_Tables.xlsx", buf.Bytes(), filePermissions); err != nil {
				result.Err = fmt.Errorf("%w: %v", ErrWriteOutput, err)
				return result
			}
		}
	}
	return result
}

type latexDump struct {
	Sanitized string       `json:"sanitized"`
	Nodes     []latex.Node `json:"nodes"`
	Plain     string       `json:"plain"`
	OMML      string       `json:"omml,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// dumpLatex prints how an expression is sanitized, parsed and rendered.
func dumpLatex(w io.Writer, expr string, maxDepth int) error {
	if maxDepth <= 0 {
		maxDepth = config.Load().MaxMathDepth
	}
	d := latexDump{Sanitized: latex.Sanitize(expr)}
	d.Nodes = latex.Parse(d.Sanitized)
	if d.Nodes == nil {
		d.Nodes = []latex.Node{}
	}
	d.Plain = latex.PlainText(d.Nodes)

	m, err := omml.Build(d.Nodes, maxDepth)
	if err != nil {
		d.Error = err.Error()
	} else if d.OMML, err = m.XML(); err != nil {
		return fmt.Errorf("encode omml: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}
