// Package service orchestrates the recommendation pipeline against the
// current dataset snapshot and implements the dependencies required by the
// HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/vor/internal/domain/aggregate"
	"github.com/okian/vor/internal/domain/dataset"
	"github.com/okian/vor/internal/domain/derive"
	"github.com/okian/vor/internal/domain/geo"
	"github.com/okian/vor/internal/domain/market"
	"github.com/okian/vor/internal/domain/model"
	"github.com/okian/vor/internal/domain/ranking"
	"github.com/okian/vor/internal/domain/recency"
	"github.com/okian/vor/internal/domain/scoring"
	"github.com/okian/vor/internal/domain/slots"
	"github.com/okian/vor/internal/domain/topic"
	"github.com/okian/vor/internal/domain/types"
	"github.com/okian/vor/pkg/logger"
	"github.com/okian/vor/pkg/metrics"
)

// Query kinds reported to metrics.
const (
	KindRecommend = "recommend"
	KindMarket    = "market"
	KindManual    = "manual"
)

// Service implements the API dependencies for the venue recommender.
type Service struct {
	holder *dataset.Holder
	scorer *scoring.WeightedScorer
	ranker *ranking.Ranker

	// Radius filtering is disabled while geocoder is nil.
	geocoder           geo.Geocoder
	geocodeConcurrency int
	geocodeTimeout     time.Duration
	geocodeVenues      bool

	now    func() time.Time
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithTopN caps the number of ranked venues.
func WithTopN(n int) Option {
	return func(s *Service) {
		s.ranker = ranking.New(ranking.WithTopN(n))
	}
}

// WithScorer replaces the default scorer.
func WithScorer(sc *scoring.WeightedScorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithGeocoder enables radius queries.
func WithGeocoder(g geo.Geocoder) Option {
	return func(s *Service) {
		s.geocoder = g
	}
}

// WithGeocodeConcurrency bounds parallel lookups within one request.
func WithGeocodeConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.geocodeConcurrency = n
		}
	}
}

// WithGeocodeTimeout bounds one lookup.
func WithGeocodeTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.geocodeTimeout = d
		}
	}
}

// WithVenueGeocoding controls whether venues without coordinates are
// geocoded during radius queries. When off they pass the radius filter
// as long as they match the exact location.
func WithVenueGeocoding(on bool) Option {
	return func(s *Service) {
		s.geocodeVenues = on
	}
}

// WithClock overrides the time source used when a query carries no Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service reading snapshots from holder.
func New(holder *dataset.Holder, opts ...Option) *Service {
	s := &Service{
		holder:             holder,
		scorer:             scoring.NewWeightedScorer(),
		ranker:             ranking.New(),
		geocodeConcurrency: 8,
		geocodeTimeout:     3 * time.Second,
		geocodeVenues:      true,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	return s
}

// TopN returns the configured ranking cap.
func (s *Service) TopN() int { return s.ranker.TopN() }

// RadiusEnabled reports whether radius queries can be served.
func (s *Service) RadiusEnabled() bool { return s.geocoder != nil }

// Recommend runs the full pipeline for q and returns at most TopN ranked
// venue summaries. Empty candidate sets yield a *model.NoMatchError naming
// the stage that emptied them.
func (s *Service) Recommend(ctx context.Context, q model.Query) (_ []model.VenueSummary, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordQuery(KindRecommend, outcomeOf(err), msSince(start))
	}()

	if !q.Topic.Valid() {
		return nil, &topic.InvalidTopicError{Value: q.Topic.String()}
	}
	snap, err := s.holder.Load()
	if err != nil {
		return nil, err
	}
	if q.Now.IsZero() {
		q.Now = s.now()
	}

	byTopic := snap.ByTopic(q.Topic)
	if len(byTopic) == 0 {
		return nil, &model.NoMatchError{Stage: model.StageTopic, Query: q}
	}

	radius := q.Miles > 0 && s.geocoder != nil
	if q.Miles > 0 && !radius {
		s.logger.Debug(ctx, "radius ignored without a geocoder", logger.Float64("miles", q.Miles))
	}

	candidates := s.candidates(byTopic, q, radius)
	if len(candidates) == 0 {
		return nil, &model.NoMatchError{Stage: model.StageLocation, Query: q}
	}

	batch := s.scorer.ScoreAll(candidates, q.Now)
	metrics.RecordEventsScored(len(batch.Events))
	for reason, n := range batch.Excluded {
		metrics.RecordEventsExcluded(reason, n)
	}
	if len(batch.Events) == 0 {
		return nil, &model.NoMatchError{Stage: model.StageScoring, Query: q}
	}

	events := batch.Events
	if radius {
		events, err = s.withinRadius(ctx, q, events)
		if err != nil {
			return nil, err
		}
		if len(events) == 0 {
			return nil, &model.NoMatchError{Stage: model.StageRadius, Query: q}
		}
	}

	ranked := s.ranker.Rank(aggregate.Aggregate(events))
	metrics.RecordVenuesReturned(len(ranked))
	s.logger.Debug(ctx, "recommendation computed",
		logger.String("topic", q.Topic.Code()),
		logger.String("snapshot", snap.ID()),
		logger.Int("candidates", len(candidates)),
		logger.Int("scored", len(batch.Events)),
		logger.Int("venues", len(ranked)),
	)
	return ranked, nil
}

// candidates applies the location stage. Without a radius only the exact
// city/state or postal match survives. With one, records carrying their own
// coordinates are kept too, and so are same-state records when venues are
// geocoded.
func (s *Service) candidates(records []model.EventRecord, q model.Query, radius bool) []model.EventRecord {
	out := make([]model.EventRecord, 0, len(records))
	for i := range records {
		r := &records[i]
		switch {
		case q.MatchesLocation(r):
		case !radius:
			continue
		case r.HasCoordinates():
		case s.geocodeVenues && q.State != "" && strings.EqualFold(strings.TrimSpace(r.State), strings.TrimSpace(q.State)):
		default:
			continue
		}
		out = append(out, *r)
	}
	return out
}

// withinRadius resolves the target and any venue lacking coordinates, then
// applies the distance filter. A venue whose lookup fails is dropped; a
// target that cannot be resolved fails the request.
func (s *Service) withinRadius(ctx context.Context, q model.Query, events []model.ScoredEvent) ([]model.ScoredEvent, error) {
	resolver := geo.NewResolver(s.geocoder,
		geo.WithConcurrency(s.geocodeConcurrency),
		geo.WithLookupTimeout(s.geocodeTimeout),
		geo.WithObserver(func(_ string, outcome string, took time.Duration) {
			metrics.RecordGeocodeLookup(outcome, float64(took.Milliseconds()))
		}),
	)

	target, err := resolver.Resolve(ctx, q.Place())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %w", geo.ErrLocationUnresolved, q.Place(), err)
	}

	var places []string
	if s.geocodeVenues {
		for i := range events {
			if !events[i].Record.HasCoordinates() {
				places = append(places, venuePlace(&events[i].Record))
			}
		}
	}
	resolved, err := resolver.ResolveAll(ctx, places)
	if err != nil {
		return nil, err
	}

	cands := make([]geo.Candidate, 0, len(events))
	dropped := 0
	for _, ev := range events {
		c := geo.Candidate{Event: ev}
		if p, ok := geo.RecordPoint(&ev.Record); ok {
			c.Point, c.HasPoint = p, true
		} else if s.geocodeVenues {
			o := resolved[venuePlace(&ev.Record)]
			if o.Err != nil {
				dropped++
				continue
			}
			c.Point, c.HasPoint = o.Point, true
		}
		cands = append(cands, c)
	}
	if dropped > 0 {
		s.logger.Debug(ctx, "venues dropped after failed lookups", logger.Int("events", dropped))
	}
	return geo.Filter(cands, target, q.Miles), nil
}

func venuePlace(r *model.EventRecord) string {
	return strings.TrimSpace(r.Venue) + ", " + strings.TrimSpace(r.City) + ", " + strings.TrimSpace(r.State)
}

// Market builds the market analysis report for req.
func (s *Service) Market(_ context.Context, req market.Request) (_ market.Report, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordQuery(KindMarket, outcomeOf(err), msSince(start))
	}()

	if !req.Topic.Valid() {
		return market.Report{}, &topic.InvalidTopicError{Value: req.Topic.String()}
	}
	snap, err := s.holder.Load()
	if err != nil {
		return market.Report{}, err
	}
	if req.Now.IsZero() {
		req.Now = s.now()
	}
	return market.Generate(snap.ByTopic(req.Topic), req)
}

// ScoreManual scores a single hand-entered event at full recency weight
// through the same scorer as Recommend.
func (s *Service) ScoreManual(_ context.Context, in types.ManualInput) (_ types.ManualScore, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordQuery(KindManual, outcomeOf(err), msSince(start))
	}()

	score, err := s.scorer.Score(scoring.Input{
		CostPerVerifiedHousehold: in.CPA,
		FulfillmentRatio:         in.FulfillmentRatio,
		AttendanceRate:           in.AttendanceRate,
		RecencyWeight:            recency.NormalWeight,
	})
	if err != nil {
		return types.ManualScore{}, err
	}

	venue := strings.TrimSpace(in.Venue)
	if venue == "" {
		venue = "Unknown"
	}
	return types.ManualScore{
		Venue:            venue,
		Score:            types.Round(score, 2),
		RecommendedTime1: slots.Format(slots.Morning, slots.Morning.Fallback),
		RecommendedTime2: slots.Format(slots.Evening, slots.Evening.Fallback),
	}, nil
}

// Stats describes the current snapshot.
func (s *Service) Stats(_ context.Context) (dataset.Stats, error) {
	snap, err := s.holder.Load()
	if err != nil {
		return dataset.Stats{}, err
	}
	return snap.Stats(), nil
}

func outcomeOf(err error) string {
	var nm *model.NoMatchError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &nm):
		return "no_match_" + string(nm.Stage)
	case errors.Is(err, topic.ErrInvalidTopic):
		return "invalid_topic"
	case errors.Is(err, derive.ErrUndefinedMetric):
		return "undefined_metric"
	case errors.Is(err, geo.ErrLocationUnresolved):
		return "location_unresolved"
	case errors.Is(err, dataset.ErrNoSnapshot):
		return "no_snapshot"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
