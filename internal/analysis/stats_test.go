package analysis

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

// fakeClock lets tests move the window without sleeping.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStats(window time.Duration) (*LLMStats, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := NewLLMStats(window)
	s.now = clock.now
	return s, clock
}

func TestLLMStats_Latency(t *testing.T) {
	stats, _ := newTestStats(time.Hour)
	for _, ms := range []int{300, 100, 500, 200, 400} {
		stats.Observe(Call{Duration: time.Duration(ms) * time.Millisecond, Segments: 4})
	}

	snap := stats.Snapshot()
	want := LatencySummary{Min: 100, Max: 500, Avg: 300, P50: 300, P95: 480, P99: 496}
	if snap.LatencyMs != want {
		t.Errorf("latency = %+v, want %+v", snap.LatencyMs, want)
	}
	if snap.Calls != 5 || snap.Succeeded != 5 || snap.Failures() != 0 {
		t.Errorf("counts = %+v", snap)
	}
	if snap.SegmentsPerPage != 4 {
		t.Errorf("segments per page = %v", snap.SegmentsPerPage)
	}
	if snap.Window != "1h0m0s" {
		t.Errorf("window = %q", snap.Window)
	}
}

func TestLLMStats_ClassifiesFailures(t *testing.T) {
	stats, _ := newTestStats(time.Hour)
	stats.Observe(Call{Duration: 80 * time.Millisecond, InputTokens: 1500, OutputTokens: 300, Segments: 2})
	stats.Observe(Call{Err: &RetryableError{StatusCode: 529}})
	stats.Observe(Call{Err: fmt.Errorf("attempt: %w", &RetryableError{Message: "connection reset"})})
	stats.Observe(Call{Err: ErrEmptyResponse, InputTokens: 1400})
	stats.Observe(Call{Err: fmt.Errorf("%w: missing segments", ErrSchema)})
	stats.Observe(Call{Err: errors.New("claude api status 400")})

	snap := stats.Snapshot()
	if snap.Transient != 2 || snap.Malformed != 2 || snap.Rejected != 1 {
		t.Errorf("failures = transient %d, malformed %d, rejected %d", snap.Transient, snap.Malformed, snap.Rejected)
	}
	if snap.Failures() != 5 || snap.Succeeded != 1 || snap.Calls != 6 {
		t.Errorf("counts = %+v", snap)
	}
	if snap.InputTokens != 2900 || snap.OutputTokens != 300 {
		t.Errorf("tokens = %d in, %d out", snap.InputTokens, snap.OutputTokens)
	}
	if snap.LatencyMs.Avg != 80 || snap.SegmentsPerPage != 2 {
		t.Errorf("failed calls must not count toward latency or segments: %+v", snap)
	}
}

func TestLLMStats_WindowExpires(t *testing.T) {
	stats, clock := newTestStats(10 * time.Minute)
	stats.Observe(Call{Duration: 100 * time.Millisecond})
	clock.advance(5 * time.Minute)
	stats.Observe(Call{Duration: 200 * time.Millisecond})

	if snap := stats.Snapshot(); snap.Calls != 2 {
		t.Fatalf("expected 2 calls inside window, got %d", snap.Calls)
	}

	clock.advance(6 * time.Minute)
	snap := stats.Snapshot()
	if snap.Calls != 1 {
		t.Fatalf("expected the first call to expire, got %d calls", snap.Calls)
	}
	if snap.LatencyMs.Min != 200 || snap.LatencyMs.Max != 200 {
		t.Errorf("latency = %+v", snap.LatencyMs)
	}

	clock.advance(time.Hour)
	if snap := stats.Snapshot(); snap.Calls != 0 || snap.LatencyMs != (LatencySummary{}) {
		t.Errorf("expected empty snapshot, got %+v", snap)
	}
}

func TestLLMStats_NegativeDurationClamped(t *testing.T) {
	stats, _ := newTestStats(time.Hour)
	stats.Observe(Call{Duration: -time.Second})
	if snap := stats.Snapshot(); snap.LatencyMs.Min != 0 || snap.LatencyMs.Max != 0 {
		t.Errorf("latency = %+v", snap.LatencyMs)
	}
}
