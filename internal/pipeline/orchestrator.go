package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgallion1/mathdocx/internal/config"
	"github.com/dgallion1/mathdocx/internal/docbuild"
	"github.com/dgallion1/mathdocx/internal/imageprep"
	"github.com/dgallion1/mathdocx/internal/importer"
)

// ErrQueueFull is returned by Submit when the queue has no room.
var ErrQueueFull = errors.New("job queue is full")

// ErrStopped is returned by Submit once Stop has been called.
var ErrStopped = errors.New("pipeline is stopped")

// Orchestrator manages the conversion pipeline.
type Orchestrator struct {
	jobs     *JobStore
	queue    chan *Job
	analyzer Analyzer
	builder  *docbuild.Builder
	log      *slog.Logger
	cfg      config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu guards stopped and the close of queue against concurrent sends.
	mu      sync.RWMutex
	stopped bool
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, analyzer Analyzer, builder *docbuild.Builder, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:     NewJobStore(cfg.JobTTL),
		queue:    make(chan *Job, cfg.MaxQueueSize),
		analyzer: analyzer,
		builder:  builder,
		log:      log,
		cfg:      cfg,
	}
}

// WorkerOptions derives worker settings from the configuration.
func (o *Orchestrator) WorkerOptions() WorkerOptions {
	return OptionsFromConfig(o.cfg)
}

// OptionsFromConfig maps the environment configuration onto worker options.
func OptionsFromConfig(cfg config.Config) WorkerOptions {
	return WorkerOptions{
		Image: imageprep.Options{
			MaxDimension: cfg.MaxImageDimension,
			Quality:      cfg.JPEGQuality,
		},
		Import:      importer.Options{FallbackPdftotext: cfg.PDFFallbackPdftotext},
		MaxAttempts: cfg.AnalysisMaxAttempts,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.analyzer, o.builder, o.log, o.WorkerOptions())
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				if n := o.jobs.Cleanup(); n > 0 {
					o.log.Info("evicted finished jobs", "count", n, "remaining", o.jobs.Len())
				}
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.mu.Unlock()
	o.wg.Wait()
}

// Submit queues a new job for processing. An upload identical to one that
// already completed is answered from that job without queueing.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.stopped {
		return ErrStopped
	}

	if prev := o.jobs.FindCompleted(job.ContentHash, filepath.Ext(job.Filename)); prev != nil {
		job.reuse(prev)
		o.jobs.Put(job)
		o.log.Info("reused completed conversion", "job_id", job.ID, "source_job_id", prev.ID, "filename", job.Filename)
		return nil
	}

	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.AddError("queue full")
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("%w (%d)", ErrQueueFull, o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Builder returns the document builder for synchronous rendering.
func (o *Orchestrator) Builder() *docbuild.Builder {
	return o.builder
}
