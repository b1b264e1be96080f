package pipeline

import (
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/mathdocx/internal/analysis"
)

const (
	baseBackoff = 2 * time.Second
	maxBackoff  = 30 * time.Second
	// malformedDelay is the pause before re-asking after an unusable reply.
	malformedDelay = time.Second
)

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *analysis.RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed): 2s growing by half
// each attempt, plus up to a second of jitter, capped at 30s.
func Backoff(attempt int) time.Duration {
	base := time.Duration(float64(baseBackoff) * math.Pow(1.5, float64(attempt)))
	if base <= 0 || base > maxBackoff {
		base = maxBackoff
	}
	jitter := time.Duration(rand.Int64N(int64(time.Second)))
	if base+jitter > maxBackoff {
		return maxBackoff
	}
	return base + jitter
}

// RetryDelay decides whether a failed analysis attempt should be repeated
// and how long to wait first. Transient API failures back off; replies that
// were empty or failed the schema are re-requested after a short pause.
func RetryDelay(err error, attempt int) (time.Duration, bool) {
	switch {
	case IsRetryable(err):
		return Backoff(attempt), true
	case errors.Is(err, analysis.ErrEmptyResponse), errors.Is(err, analysis.ErrSchema):
		return malformedDelay, true
	}
	return 0, false
}
