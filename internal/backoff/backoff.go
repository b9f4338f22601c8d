// Package backoff computes retry delays from the attempt number.
package backoff

import (
	"math"
	"time"
)

const (
	maxAttempt = 1 << 16
	maxPower   = 10
)

// Delay returns the pause before retry attempt number attempt (1-based):
// base * attempt^power. Power 1 yields linear growth, power 2 and above
// super-linear growth, power 0 a constant delay. The float intermediate is
// truncated to a duration; inputs are clamped so the result never overflows.
func Delay(attempt int, base time.Duration, power int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > maxAttempt {
		attempt = maxAttempt
	}
	if power < 0 {
		power = 0
	}
	if power > maxPower {
		power = maxPower
	}
	if base < 0 {
		base = 0
	}

	d := float64(base) * math.Pow(float64(attempt), float64(power))
	if d > float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}
