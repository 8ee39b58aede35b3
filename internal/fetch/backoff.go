package fetch

import (
	"math"
	"time"
)

// Backoff returns base * 2^retry, capped at max. A negative retry returns base.
// A max of zero means no cap beyond the largest representable duration.
func Backoff(base, max time.Duration, retry int) time.Duration {
	if base <= 0 {
		return 0
	}
	if retry < 0 {
		return base
	}
	if max <= 0 {
		max = time.Duration(math.MaxInt64)
	}
	// Clamp before shifting so the product cannot overflow.
	if retry >= 62 || base > max>>uint(retry) {
		return max
	}
	d := base << uint(retry)
	if d > max {
		return max
	}
	return d
}
