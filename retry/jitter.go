package retry

import (
	"math/rand/v2"
	"time"
)

// Jitter randomizes a backoff delay so that many clients failing at the same
// moment don't retry in lockstep.
type Jitter interface {
	Apply(d time.Duration) time.Duration
}

// Proportional jitter replaces part of the delay with randomness:
//   - 0.0 or negative: the delay is used unchanged
//   - 0.5: delay/2 + random(0, delay/2)
//   - 1.0: random(0, delay)
type Proportional float64

// EqualJitter keeps half the delay fixed and randomizes the other half.
const EqualJitter Proportional = 0.5

// FullJitter picks a uniformly random delay between 0 and the backoff delay.
const FullJitter Proportional = 1.0

// WithoutJitter disables jitter entirely. Useful in tests.
const WithoutJitter Proportional = -1.0

// Apply implements Jitter.
func (j Proportional) Apply(d time.Duration) time.Duration {
	if j <= 0.0 || d <= 0 {
		return d
	}

	//nolint:gosec // G404: math/rand is sufficient for jitter
	r := rand.Float64() * float64(d)

	// Formula: jitter * random + (1 - jitter) * delay
	if j < 1.0 {
		r = float64(j)*r + float64(1.0-j)*float64(d)
	}

	return time.Duration(r)
}

// AdditiveJitter adds a uniformly random duration in [0, spread) on top of
// the backoff delay, so the result is never shorter than the backoff itself.
type AdditiveJitter time.Duration

// Apply implements Jitter.
func (j AdditiveJitter) Apply(d time.Duration) time.Duration {
	if j <= 0 {
		return d
	}

	//nolint:gosec // G404: math/rand is sufficient for jitter
	return d + time.Duration(rand.Int64N(int64(j)))
}
