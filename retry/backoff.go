package retry

import (
	"math"
	"time"
)

// Backoff calculates the delay between attempts.
type Backoff interface {
	// Delay calculates the duration to wait before the next retry attempt.
	// The attempt parameter is zero-indexed (0 for first retry).
	Delay(attempt uint) time.Duration
}

// ExpBackoff implements exponential backoff: Base * Factor^attempt.
// Max caps the delay; a zero Max leaves it uncapped.
//
//	backoff := retry.ExpBackoff{Base: time.Second, Factor: 2.0}
//	// Delays: 1s, 2s, 4s, 8s, ...
type ExpBackoff struct {
	// Base is the initial delay duration.
	Base time.Duration
	// Max is the maximum delay duration (cap). Zero means no cap.
	Max time.Duration
	// Factor is the multiplier applied to each successive delay (e.g., 2.0 for doubling).
	Factor float64
}

// Delay never returns less than Base.
func (b ExpBackoff) Delay(attempt uint) time.Duration {
	f := float64(b.Base) * math.Pow(b.Factor, float64(attempt))

	if f >= math.MaxInt64 {
		if b.Max > 0 {
			return b.Max
		}

		return time.Duration(math.MaxInt64)
	}

	d := time.Duration(f)
	if d < b.Base {
		return b.Base
	} else if b.Max > 0 && d > b.Max {
		return b.Max
	}

	return d
}
