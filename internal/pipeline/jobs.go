package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/mathdocx/internal/analysis"
	"github.com/dgallion1/mathdocx/internal/docbuild"
)

// JobStatus represents the state of a conversion job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusPreparing JobStatus = "preparing"
	StatusAnalyzing JobStatus = "analyzing"
	StatusRendering JobStatus = "rendering"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Job tracks the state of a single file conversion.
type Job struct {
	mu sync.Mutex

	ID string `json:"job_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`
	Language string    `json:"language"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData   []byte
	output     []byte
	outputName string
	result     *analysis.Result
	errors     []string
}

// Progress tracks what the conversion produced.
type Progress struct {
	Attempts   int      `json:"attempts"`
	Segments   int      `json:"segments"`
	Formulas   int      `json:"formulas"`
	InlineMath int      `json:"inline_math"`
	Tables     int      `json:"tables"`
	Fallbacks  int      `json:"fallbacks"`
	Errors     []string `json:"errors"`
}

// NewJob creates a queued job for filename.
func NewJob(filename string, data []byte) *Job {
	now := time.Now()
	return &Job{
		ID:          uuid.NewString(),
		Status:      StatusQueued,
		Phase:       "queued",
		Filename:    filename,
		ContentHash: ContentHashHex(data),
		CreatedAt:   now,
		UpdatedAt:   now,
		fileData:    data,
	}
}

// Done reports whether the status is terminal.
func (st JobStatus) Done() bool {
	return st == StatusCompleted || st == StatusFailed
}

// JobStore is a thread-safe in-memory job registry. Finished jobs are
// evicted once they have been idle for ttl; running jobs are never evicted.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{jobs: make(map[string]*Job), ttl: ttl}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup evicts expired finished jobs and returns how many were removed.
func (s *JobStore) Cleanup() int {
	cutoff := time.Now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, job := range s.jobs {
		status, updated := job.state()
		if status.Done() && updated.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// FindCompleted returns the most recent completed job whose upload had the
// given content hash and extension, or nil.
func (s *JobStore) FindCompleted(hash, ext string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *Job
	var bestAt time.Time
	for _, job := range s.jobs {
		if job.ContentHash != hash || !strings.EqualFold(filepath.Ext(job.Filename), ext) {
			continue
		}
		status, updated := job.state()
		if status == StatusCompleted && updated.After(bestAt) {
			best, bestAt = job, updated
		}
	}
	return best
}

func (j *Job) state() (JobStatus, time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Status, j.UpdatedAt
}

// reuse completes j with the analysis and document of prev, which converted
// identical bytes. The two locks are never held together.
func (j *Job) reuse(prev *Job) {
	prev.mu.Lock()
	res, out, progress := prev.result, prev.output, prev.Progress
	prev.mu.Unlock()

	progress.Attempts = 0
	progress.Errors = nil

	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = res
	j.Title = res.Title
	j.Language = res.Language
	j.output = out
	j.outputName = docbuild.OutputName(j.Filename)
	j.fileData = nil
	j.Progress = progress
	j.Status = StatusCompleted
	j.Phase = "reused " + prev.ID
	j.UpdatedAt = time.Now()
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// IncrAttempts counts one analysis request.
func (j *Job) IncrAttempts() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Attempts++
	j.UpdatedAt = time.Now()
}

// SetResult stores the analysis the document will be built from.
func (j *Job) SetResult(res *analysis.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = res
	j.Title = res.Title
	j.Language = res.Language
	j.UpdatedAt = time.Now()
}

// Result returns the analysis, or nil before it exists.
func (j *Job) Result() *analysis.Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// SetOutput stores the rendered document and its build report. The upload
// is released once output exists.
func (j *Job) SetOutput(name string, data []byte, rep docbuild.Report) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.output = data
	j.outputName = name
	j.fileData = nil
	j.Progress.Segments = rep.Segments
	j.Progress.Formulas = rep.Formulas
	j.Progress.InlineMath = rep.InlineMath
	j.Progress.Tables = rep.Tables
	j.Progress.Fallbacks = rep.Fallbacks
	j.UpdatedAt = time.Now()
}

// Output returns the rendered document and its download name.
func (j *Job) Output() ([]byte, string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.output, j.outputName
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	Language    string    `json:"language"`
	ContentHash string    `json:"content_hash"`
	Progress    Progress  `json:"progress"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	p := j.Progress
	p.Errors = append([]string{}, j.Progress.Errors...)
	return JobSnapshot{
		ID:          j.ID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		Title:       j.Title,
		Language:    j.Language,
		ContentHash: j.ContentHash,
		Progress:    p,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// ContentHashHex is the hex SHA-256 of an upload.
func ContentHashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
