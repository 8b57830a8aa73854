// Package ranking orders venue summaries and truncates them to a shortlist.
package ranking

import (
	"sort"

	"github.com/okian/vor/internal/domain/model"
)

// DefaultTopN is the shortlist length used when none is configured.
const DefaultTopN = 4

// Option applies a configuration option to the Ranker.
type Option func(*Ranker)

// WithTopN sets the maximum number of results. Values below 1 are ignored.
func WithTopN(n int) Option {
	return func(r *Ranker) {
		if n >= 1 {
			r.topN = n
		}
	}
}

// Ranker sorts by mean score descending with venue name ascending as the
// tie-break.
type Ranker struct {
	topN int
}

// New creates a Ranker.
func New(opts ...Option) *Ranker {
	r := &Ranker{topN: DefaultTopN}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TopN returns the configured shortlist length.
func (r *Ranker) TopN() int { return r.topN }

// Rank returns a sorted copy of summaries holding at most TopN entries.
func (r *Ranker) Rank(summaries []model.VenueSummary) []model.VenueSummary {
	out := make([]model.VenueSummary, len(summaries))
	copy(out, summaries)
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
	if len(out) > r.topN {
		out = out[:r.topN]
	}
	return out
}

// Less reports whether a ranks before b.
func Less(a, b model.VenueSummary) bool {
	if a.MeanScore != b.MeanScore {
		return a.MeanScore > b.MeanScore
	}
	return a.Venue < b.Venue
}
