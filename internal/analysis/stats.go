package analysis

import (
	"errors"
	"slices"
	"sync"
	"time"
)

// Call describes one finished analysis request.
type Call struct {
	Duration     time.Duration
	InputTokens  int
	OutputTokens int
	Segments     int
	Err          error
}

type call struct {
	at  time.Time
	ms  int64
	in  int
	out int
	seg int
	// outcome is "" for success, otherwise one of the failure classes.
	outcome string
}

const (
	outcomeTransient = "transient"
	outcomeMalformed = "malformed"
	outcomeRejected  = "rejected"
)

// LatencySummary covers successful calls only.
type LatencySummary struct {
	Min int64   `json:"min"`
	Max int64   `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// StatsSnapshot aggregates the analysis calls inside the window.
type StatsSnapshot struct {
	Window    string `json:"window"`
	Calls     int    `json:"calls"`
	Succeeded int    `json:"succeeded"`

	// Failures split by what the pipeline does about them: transient ones
	// back off, malformed ones get a short pause, rejected ones are final.
	Transient int `json:"transient_failures"`
	Malformed int `json:"malformed_failures"`
	Rejected  int `json:"rejected_failures"`

	InputTokens     int     `json:"input_tokens"`
	OutputTokens    int     `json:"output_tokens"`
	SegmentsPerPage float64 `json:"segments_per_page"`

	LatencyMs LatencySummary `json:"latency_ms"`
}

// Failures is the number of calls that returned an error.
func (s StatsSnapshot) Failures() int {
	return s.Transient + s.Malformed + s.Rejected
}

// LLMStats keeps a rolling window of analysis calls.
type LLMStats struct {
	mu     sync.Mutex
	calls  []call
	window time.Duration
	now    func() time.Time
}

func NewLLMStats(window time.Duration) *LLMStats {
	if window <= 0 {
		window = time.Hour
	}
	return &LLMStats{window: window, now: time.Now}
}

// Observe records a finished call.
func (s *LLMStats) Observe(c Call) {
	entry := call{
		ms:  max(c.Duration.Milliseconds(), 0),
		in:  c.InputTokens,
		out: c.OutputTokens,
		seg: c.Segments,
	}
	if c.Err != nil {
		entry.outcome = classify(c.Err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry.at = s.now()
	s.expireLocked(entry.at)
	s.calls = append(s.calls, entry)
}

func classify(err error) string {
	var re *RetryableError
	switch {
	case errors.As(err, &re):
		return outcomeTransient
	case errors.Is(err, ErrEmptyResponse), errors.Is(err, ErrSchema):
		return outcomeMalformed
	default:
		return outcomeRejected
	}
}

func (s *LLMStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(s.now())

	snap := StatsSnapshot{Window: s.window.String(), Calls: len(s.calls)}
	var latencies []int64
	segments := 0
	for _, c := range s.calls {
		snap.InputTokens += c.in
		snap.OutputTokens += c.out
		switch c.outcome {
		case outcomeTransient:
			snap.Transient++
		case outcomeMalformed:
			snap.Malformed++
		case outcomeRejected:
			snap.Rejected++
		default:
			snap.Succeeded++
			segments += c.seg
			latencies = append(latencies, c.ms)
		}
	}
	if len(latencies) == 0 {
		return snap
	}

	slices.Sort(latencies)
	var total int64
	for _, v := range latencies {
		total += v
	}
	snap.SegmentsPerPage = float64(segments) / float64(len(latencies))
	snap.LatencyMs = LatencySummary{
		Min: latencies[0],
		Max: latencies[len(latencies)-1],
		Avg: float64(total) / float64(len(latencies)),
		P50: quantile(latencies, 0.50),
		P95: quantile(latencies, 0.95),
		P99: quantile(latencies, 0.99),
	}
	return snap
}

// expireLocked drops calls older than the window. Calls are appended in
// time order, so the expired ones form a prefix.
func (s *LLMStats) expireLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.calls) && s.calls[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.calls = slices.Delete(s.calls, 0, i)
	}
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []int64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return float64(sorted[len(sorted)-1])
	}
	frac := pos - float64(lo)
	return float64(sorted[lo]) + frac*float64(sorted[lo+1]-sorted[lo])
}
