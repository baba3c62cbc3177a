package labeler

import (
	"time"

	"github.com/google/uuid"
)

type Summary struct {
	RunID uuid.UUID

	Features int
	Labeled  int
	Skipped  int
	Failed   int
	// Deduped counts labels taken from an identical polygon reduced earlier.
	Deduped int

	Rounds       int
	MaxRounds    int
	Terminations map[string]int
	Duration     time.Duration
}

func newSummary() Summary {
	return Summary{
		RunID:        uuid.New(),
		Terminations: map[string]int{},
	}
}

func (s *Summary) add(o outcome) {
	s.Labeled++
	if o.deduped {
		s.Deduped++
	}
	s.Rounds += o.res.Rounds
	s.MaxRounds = max(s.MaxRounds, o.res.Rounds)
	s.Terminations[o.res.Termination.String()]++
}

func (s Summary) MeanRounds() float64 {
	if s.Labeled == 0 {
		return 0
	}
	return float64(s.Rounds) / float64(s.Labeled)
}

// Merge adds the counters of other, used when several inputs are labeled in
// separate runs.
func (s *Summary) Merge(other Summary) {
	s.Features += other.Features
	s.Labeled += other.Labeled
	s.Skipped += other.Skipped
	s.Failed += other.Failed
	s.Deduped += other.Deduped
	s.Rounds += other.Rounds
	s.MaxRounds = max(s.MaxRounds, other.MaxRounds)
	s.Duration += other.Duration
	if s.Terminations == nil {
		s.Terminations = map[string]int{}
	}
	for k, v := range other.Terminations {
		s.Terminations[k] += v
	}
}
