package worker

import (
	"math/rand/v2"
	"time"
)

const (
	backoffBase = 2 * time.Second
	backoffCap  = 5 * time.Minute
)

// ExponentialBackoff is the delay before retry number attempt+1:
// 2s, 4s, 8s ... capped at 5m, plus up to 250ms of jitter so workers do not retry in lockstep.
func ExponentialBackoff(attempt int) time.Duration {
	delay := backoffCap
	if attempt >= 0 && attempt < 20 {
		if d := backoffBase << attempt; d < backoffCap {
			delay = d
		}
	}

	return delay + rand.N(250*time.Millisecond)
}
