// Package scoring combines derived metrics and recency into one per-event score.
package scoring

import (
	"time"

	"github.com/okian/vor/internal/domain/derive"
	"github.com/okian/vor/internal/domain/model"
	"github.com/okian/vor/internal/domain/recency"
)

// Default scoring configuration constants.
const (
	// DefaultScale is the 40-point output scale: raw/2.5*100 == raw*40.
	DefaultScale = 40.0

	defaultCostWeight        = 0.5
	defaultFulfillmentWeight = 0.3
	defaultAttendanceWeight  = 0.2
)

// Option applies a configuration option to the WeightedScorer.
type Option func(*WeightedScorer)

// WithScale sets the output scale. Ranking is invariant under any positive scale.
func WithScale(scale float64) Option {
	return func(s *WeightedScorer) {
		if scale > 0 {
			s.scale = scale
		}
	}
}

// Input abstracts the metrics needed for scoring one event.
type Input struct {
	CostPerVerifiedHousehold float64
	FulfillmentRatio         float64
	AttendanceRate           float64
	RecencyWeight            float64
}

// Scorer computes a score from an input.
type Scorer interface {
	Score(in Input) (float64, error)
}

// WeightedScorer implements Scorer with the fixed weighted formula
//
//	raw   = (1/cost)*0.5 + fulfillment*0.3 + attendance*0.2
//	score = raw * recency * scale
type WeightedScorer struct {
	costWeight        float64
	fulfillmentWeight float64
	attendanceWeight  float64
	scale             float64
}

// NewWeightedScorer creates a scorer with the default weights and scale.
func NewWeightedScorer(opts ...Option) *WeightedScorer {
	s := &WeightedScorer{
		costWeight:        defaultCostWeight,
		fulfillmentWeight: defaultFulfillmentWeight,
		attendanceWeight:  defaultAttendanceWeight,
		scale:             DefaultScale,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scale returns the configured output scale.
func (s *WeightedScorer) Scale() float64 { return s.scale }

// Score computes the score for the given input. A non-positive cost per
// verified household is undefined, never zero.
func (s *WeightedScorer) Score(in Input) (float64, error) {
	if in.CostPerVerifiedHousehold <= 0 {
		return 0, derive.Undefined(derive.MetricScore, "cost_per_verified_household is not positive")
	}
	raw := (1/in.CostPerVerifiedHousehold)*s.costWeight +
		in.FulfillmentRatio*s.fulfillmentWeight +
		in.AttendanceRate*s.attendanceWeight
	score := raw * in.RecencyWeight * s.scale
	if m := model.Some(score); !m.Valid {
		return 0, derive.Undefined(derive.MetricScore, "result is not finite")
	}
	return score, nil
}

// ScoreRecord runs the per-row chain: derive metrics, weight by recency, and
// score. Any undefined step returns an *derive.UndefinedMetricError.
func (s *WeightedScorer) ScoreRecord(r *model.EventRecord, now time.Time) (model.ScoredEvent, error) {
	d, err := derive.Derive(r)
	if err != nil {
		return model.ScoredEvent{}, err
	}
	w, age, err := recency.Weight(r.EventDate, now)
	if err != nil {
		return model.ScoredEvent{}, err
	}
	score, err := s.Score(Input{
		CostPerVerifiedHousehold: d.CostPerVerifiedHousehold,
		FulfillmentRatio:         d.FulfillmentRatio,
		AttendanceRate:           d.AttendanceRate,
		RecencyWeight:            w,
	})
	if err != nil {
		return model.ScoredEvent{}, err
	}
	return model.ScoredEvent{
		Record: *r,
		Metrics: model.DerivedMetrics{
			AttendanceRate:           d.AttendanceRate,
			FulfillmentRatio:         d.FulfillmentRatio,
			CostPerVerifiedHousehold: d.CostPerVerifiedHousehold,
			RecencyWeight:            w,
			AgeDays:                  age,
			Score:                    score,
		},
	}, nil
}

// Batch is the outcome of scoring a candidate set.
type Batch struct {
	Events []model.ScoredEvent
	// Excluded counts dropped rows by undefined metric name.
	Excluded map[string]int
}

// ScoreAll scores every record, dropping rows with undefined metrics.
func (s *WeightedScorer) ScoreAll(records []model.EventRecord, now time.Time) Batch {
	b := Batch{Events: make([]model.ScoredEvent, 0, len(records)), Excluded: map[string]int{}}
	for i := range records {
		ev, err := s.ScoreRecord(&records[i], now)
		if err != nil {
			b.Excluded[derive.MetricOf(err)]++
			continue
		}
		b.Events = append(b.Events, ev)
	}
	return b
}
