package model

import "time"

// RunSummary aggregates the statistics of one crawl run.
type RunSummary struct {
	// ID uniquely identifies the run.
	ID string `json:"id"`

	// SeedURL is the URL the crawl started from.
	SeedURL string `json:"seed_url"`

	// MaxDepth is the effective depth bound after clamping.
	MaxDepth int `json:"max_depth"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Generations is the number of generations that fetched at least one URL.
	Generations int `json:"generations"`

	// Visited is the size of the visited set when the run ended.
	Visited int `json:"visited"`

	// Discovered is the number of distinct in-scope links seen.
	Discovered int `json:"discovered"`

	// Outcomes counts resources by outcome.
	Outcomes map[Outcome]int `json:"outcomes"`

	// Kinds counts saved resources by kind.
	Kinds map[Kind]int `json:"kinds"`

	// Archive is the path of the packaged output, empty when not packaged.
	Archive string `json:"archive,omitempty"`
}

// NewRunSummary creates an empty summary for a run.
func NewRunSummary(id, seedURL string, maxDepth int) *RunSummary {
	return &RunSummary{
		ID:        id,
		SeedURL:   seedURL,
		MaxDepth:  maxDepth,
		StartedAt: time.Now(),
		Outcomes:  make(map[Outcome]int),
		Kinds:     make(map[Kind]int),
	}
}

// Record adds one processed resource to the summary.
// It is not safe for concurrent use.
func (s *RunSummary) Record(r *Resource) {
	s.Outcomes[r.Outcome]++
	if r.Outcome == OutcomeSaved {
		s.Kinds[r.Kind]++
	}
}

// Saved returns the number of resources whose artifacts were written.
func (s *RunSummary) Saved() int {
	return s.Outcomes[OutcomeSaved]
}

// Total returns the number of resources recorded.
func (s *RunSummary) Total() int {
	total := 0
	for _, n := range s.Outcomes {
		total += n
	}
	return total
}

// Duration returns how long the run took. It is zero until FinishedAt is set.
func (s *RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
