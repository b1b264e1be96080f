package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/mathdocx/internal/analysis"
	"github.com/dgallion1/mathdocx/internal/config"
	"github.com/dgallion1/mathdocx/internal/docbuild"
)

var errTest = errors.New("claude api status 400: bad request")

// fakeAnalyzer returns errs in order, then result.
type fakeAnalyzer struct {
	mu        sync.Mutex
	errs      []error
	result    *analysis.Result
	calls     int
	mediaType string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, image []byte, mediaType, _ string) (*analysis.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.mediaType = mediaType
	if len(image) == 0 {
		return nil, errors.New("empty image")
	}
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.result, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := range 40 {
		img.Set(x, 10, color.Black)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestWorker(a Analyzer) *Worker {
	w := NewWorker(a, docbuild.NewBuilder(docbuild.DefaultStyle(), 0, nil), testLogger(), WorkerOptions{MaxAttempts: 3})
	w.retryDelay = func(err error, attempt int) (time.Duration, bool) {
		_, retry := RetryDelay(err, attempt)
		return 0, retry
	}
	return w
}

var pageResult = &analysis.Result{
	Title:    "Energy",
	Language: "English",
	Segments: []analysis.Segment{
		{Type: analysis.SegmentText, Content: "Kinetic energy is $E_k$.", Confidence: 95},
		{Type: analysis.SegmentFormula, Content: `E_k = \frac{1}{2} m v^2`, Confidence: 99},
	},
}

func TestWorker_ImageJob(t *testing.T) {
	fa := &fakeAnalyzer{result: pageResult}
	job := NewJob("page.png", pngBytes(t))
	newTestWorker(fa).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q (errors %v)", snap.Status, snap.Progress.Errors)
	}
	if fa.mediaType != "image/jpeg" {
		t.Errorf("expected jpeg upload, got %q", fa.mediaType)
	}
	if snap.Progress.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", snap.Progress.Attempts)
	}
	if snap.Progress.Formulas != 1 || snap.Progress.InlineMath != 1 {
		t.Errorf("progress = %+v", snap.Progress)
	}
	if snap.Title != "Energy" {
		t.Errorf("title = %q", snap.Title)
	}
	data, name := job.Output()
	if len(data) == 0 {
		t.Error("expected document bytes")
	}
	if name != "page_Analysis.docx" {
		t.Errorf("output name = %q", name)
	}
}

func TestWorker_RetriesTransientFailures(t *testing.T) {
	fa := &fakeAnalyzer{
		errs: []error{
			&analysis.RetryableError{StatusCode: 529, Message: "overloaded"},
			analysis.ErrEmptyResponse,
		},
		result: pageResult,
	}
	job := NewJob("page.jpg", pngBytes(t))
	newTestWorker(fa).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q", snap.Status)
	}
	if snap.Progress.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", snap.Progress.Attempts)
	}
}

func TestWorker_GivesUpAfterMaxAttempts(t *testing.T) {
	retryable := &analysis.RetryableError{StatusCode: 503}
	fa := &fakeAnalyzer{errs: []error{retryable, retryable, retryable, retryable}, result: pageResult}
	job := NewJob("page.png", pngBytes(t))
	newTestWorker(fa).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Fatalf("expected failed, got %q", snap.Status)
	}
	if fa.calls != 3 {
		t.Errorf("expected 3 calls, got %d", fa.calls)
	}
	if len(snap.Progress.Errors) != 1 || !strings.Contains(snap.Progress.Errors[0], "after 3 attempts") {
		t.Errorf("errors = %v", snap.Progress.Errors)
	}
}

func TestWorker_NonRetryableFailsFast(t *testing.T) {
	fa := &fakeAnalyzer{errs: []error{errTest}, result: pageResult}
	job := NewJob("page.png", pngBytes(t))
	newTestWorker(fa).Process(context.Background(), job)

	if job.Snapshot().Status != StatusFailed {
		t.Fatal("expected failure")
	}
	if fa.calls != 1 {
		t.Errorf("expected 1 call, got %d", fa.calls)
	}
}

func TestWorker_ImageWithoutAnalyzer(t *testing.T) {
	job := NewJob("page.png", pngBytes(t))
	newTestWorker(nil).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "analyzing" {
		t.Fatalf("expected failed/analyzing, got %q/%q", snap.Status, snap.Phase)
	}
}

func TestWorker_CorruptImage(t *testing.T) {
	job := NewJob("page.png", []byte("not a png"))
	newTestWorker(&fakeAnalyzer{result: pageResult}).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "preparing image" {
		t.Fatalf("expected failed/preparing image, got %q/%q", snap.Status, snap.Phase)
	}
}

func TestWorker_DocumentJobs(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     string
		formulas int
	}{
		{"markdown", "notes.md", "# Notes\n\nArea $A = \\pi r^2$.\n\n$$\\int_0^1 x\\,dx$$\n", 1},
		{"text", "notes.txt", "First paragraph.\n\n\\[ a^2 + b^2 = c^2 \\]\n", 1},
		{"analysis json", "page.json", `{"title": "t", "segments": [{"type": "formula", "content": "x^2"}]}`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewJob(tt.filename, []byte(tt.data))
			newTestWorker(nil).Process(context.Background(), job)

			snap := job.Snapshot()
			if snap.Status != StatusCompleted {
				t.Fatalf("expected completed, got %q (errors %v)", snap.Status, snap.Progress.Errors)
			}
			if snap.Progress.Formulas != tt.formulas {
				t.Errorf("formulas = %d, want %d", snap.Progress.Formulas, tt.formulas)
			}
		})
	}
}

func TestWorker_UnsupportedFile(t *testing.T) {
	job := NewJob("archive.zip", []byte("PK"))
	newTestWorker(nil).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "importing" {
		t.Fatalf("expected failed/importing, got %q/%q", snap.Status, snap.Phase)
	}
}

func TestOrchestrator_SubmitAndComplete(t *testing.T) {
	cfg := config.Config{WorkerCount: 2, MaxQueueSize: 4, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, nil, docbuild.NewBuilder(docbuild.DefaultStyle(), 0, nil), testLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("notes.txt", []byte("hello $x$"))
	if err := o.Submit(job); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if o.GetJob(job.ID) != job {
		t.Fatal("expected job to be tracked")
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if s := job.Snapshot().Status; s == StatusCompleted || s == StatusFailed {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if s := job.Snapshot().Status; s != StatusCompleted {
		t.Fatalf("expected completed, got %q", s)
	}

	dup := NewJob("copy.txt", []byte("hello $x$"))
	if err := o.Submit(dup); err != nil {
		t.Fatalf("Submit duplicate: %v", err)
	}
	snap := dup.Snapshot()
	if snap.Status != StatusCompleted || !strings.HasPrefix(snap.Phase, "reused") {
		t.Errorf("expected duplicate upload to reuse the first result, got %s/%s", snap.Status, snap.Phase)
	}
	if _, name := dup.Output(); name != "copy_Analysis.docx" {
		t.Errorf("duplicate output name = %q", name)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 1, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, nil, docbuild.NewBuilder(docbuild.DefaultStyle(), 0, nil), testLogger())

	if err := o.Submit(NewJob("a.txt", []byte("a"))); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second := NewJob("b.txt", []byte("b"))
	err := o.Submit(second)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if second.Snapshot().Status != StatusFailed {
		t.Error("expected rejected job to be marked failed")
	}
	if o.QueueDepth() != 1 {
		t.Errorf("queue depth = %d", o.QueueDepth())
	}
}

func TestOrchestrator_SubmitAfterStop(t *testing.T) {
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 1000, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, nil, docbuild.NewBuilder(docbuild.DefaultStyle(), 0, nil), testLogger())

	// Submits racing with Stop must either queue or see ErrStopped.
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 50 {
				err := o.Submit(NewJob(fmt.Sprintf("f%d-%d.txt", i, j), []byte(fmt.Sprintf("%d-%d", i, j))))
				if err != nil && !errors.Is(err, ErrStopped) {
					t.Errorf("submit: %v", err)
					return
				}
			}
		}()
	}
	o.Stop()
	wg.Wait()

	if err := o.Submit(NewJob("late.txt", []byte("late"))); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	o.Stop()
}
