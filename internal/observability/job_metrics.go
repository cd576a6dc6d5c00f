package observability

import (
	"sync"
	"time"
)

// Job outcomes, shared by the Prometheus labels and the worker /stats payload.
const (
	OutcomeDone      = "done"
	OutcomeRetry     = "retry"
	OutcomeFailed    = "failed"
	OutcomeExhausted = "exhausted"
)

// DeliveryStats is the in-process tally a single worker serves on /stats.
// Prometheus carries the same numbers across replicas.
type DeliveryStats struct {
	mu       sync.Mutex
	claimed  uint64
	requeued uint64
	outcomes map[string]uint64

	runs    uint64
	total   time.Duration
	longest time.Duration
}

type DeliverySnapshot struct {
	Claimed       uint64 `json:"claimed"`
	Done          uint64 `json:"done"`
	Retried       uint64 `json:"retried"`
	Failed        uint64 `json:"failed"`
	Exhausted     uint64 `json:"exhausted"`
	Requeued      uint64 `json:"requeued"`
	AvgDurationMs int64  `json:"avgDurationMs"`
	MaxDurationMs int64  `json:"maxDurationMs"`
}

func NewDeliveryStats() *DeliveryStats {
	return &DeliveryStats{outcomes: make(map[string]uint64, 4)}
}

func (s *DeliveryStats) Claimed() {
	s.mu.Lock()
	s.claimed++
	s.mu.Unlock()
}

// Finished records one execution. An exhausted job also counts as failed.
func (s *DeliveryStats) Finished(outcome string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outcomes[outcome]++
	if outcome == OutcomeExhausted {
		s.outcomes[OutcomeFailed]++
	}

	s.runs++
	s.total += d
	if d > s.longest {
		s.longest = d
	}
}

// Requeued counts jobs the janitor handed back to the queue.
func (s *DeliveryStats) Requeued(n int64) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.requeued += uint64(n)
	s.mu.Unlock()
}

func (s *DeliveryStats) Snapshot() DeliverySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var avg time.Duration
	if s.runs > 0 {
		avg = s.total / time.Duration(s.runs)
	}

	return DeliverySnapshot{
		Claimed:       s.claimed,
		Done:          s.outcomes[OutcomeDone],
		Retried:       s.outcomes[OutcomeRetry],
		Failed:        s.outcomes[OutcomeFailed],
		Exhausted:     s.outcomes[OutcomeExhausted],
		Requeued:      s.requeued,
		AvgDurationMs: avg.Milliseconds(),
		MaxDurationMs: s.longest.Milliseconds(),
	}
}
