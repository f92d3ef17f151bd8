package voicestream

import (
	"math"
	"testing"
	"time"
)

func TestBackoffDelayBounds(t *testing.T) {
	base := time.Second
	max := 30 * time.Second

	for attempt := 0; attempt < 12; attempt++ {
		capped := math.Min(float64(max), float64(base)*math.Pow(2, float64(attempt)))
		lower := time.Duration(math.Floor(capped))
		upper := time.Duration(math.Ceil(capped * (1 + backoffJitterFactor)))

		for i := 0; i < 50; i++ {
			d := backoffDelay(attempt, base, max)
			if d < lower || d > upper {
				t.Fatalf("attempt %d: delay %v outside [%v, %v]", attempt, d, lower, upper)
			}
		}
	}
}

func TestBackoffDelayGrowsUntilCap(t *testing.T) {
	base := 100 * time.Millisecond
	max := time.Second

	// Even with maximal jitter on the earlier attempt, a later attempt's
	// minimum (the capped exponential itself) overtakes it once the
	// exponential more than covers the jitter factor.
	min3 := float64(base) * 8 // attempt 3, below the cap
	max1 := float64(base) * 2 * (1 + backoffJitterFactor)
	if min3 <= max1 {
		t.Fatalf("test premise broken: %v <= %v", min3, max1)
	}
	for i := 0; i < 50; i++ {
		d1 := backoffDelay(1, base, max)
		d3 := backoffDelay(3, base, max)
		if d3 <= d1 {
			t.Fatalf("attempt 3 delay %v not greater than attempt 1 delay %v", d3, d1)
		}
	}
}

func TestBackoffDelayCapped(t *testing.T) {
	base := time.Second
	max := 2 * time.Second
	limit := time.Duration(float64(max) * (1 + backoffJitterFactor))

	for i := 0; i < 100; i++ {
		if d := backoffDelay(20, base, max); d > limit {
			t.Fatalf("delay %v exceeds cap %v", d, limit)
		}
	}
}

func TestBackoffDelayNegativeBase(t *testing.T) {
	if d := backoffDelay(5, -time.Second, 30*time.Second); d != 0 {
		t.Fatalf("expected 0 for negative base, got %v", d)
	}
}
