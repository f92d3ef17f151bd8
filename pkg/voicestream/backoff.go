package voicestream

import (
	"math"
	"math/rand"
	"time"
)

// Fraction of the capped exponential delay added as random jitter, so
// clients that dropped together do not reconnect in lockstep.
const backoffJitterFactor = 0.3

// backoffDelay computes the jittered exponential reconnect delay for a
// 0-indexed attempt. The result is never negative and never exceeds
// max * (1 + backoffJitterFactor).
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	if base < 0 {
		base = 0
	}
	exponential := float64(base) * math.Pow(2, float64(attempt))
	capped := math.Min(float64(max), exponential)
	jitter := capped * backoffJitterFactor * rand.Float64()
	return time.Duration(math.Floor(capped + jitter))
}
