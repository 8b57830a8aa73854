package geo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Default resolver configuration constants.
const (
	defaultConcurrency = 8
	defaultTimeout     = 3 * time.Second
)

// Lookup outcomes reported to the observer.
const (
	OutcomeResolved    = "resolved"
	OutcomeNotFound    = "not_found"
	OutcomeUnavailable = "unavailable"
	OutcomeCached      = "cached"
)

// ResolverOption applies a configuration option to the Resolver.
type ResolverOption func(*Resolver)

// WithConcurrency bounds the number of in-flight lookups.
func WithConcurrency(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLookupTimeout bounds every individual lookup.
func WithLookupTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithObserver registers a callback invoked after each lookup.
func WithObserver(fn func(place, outcome string, took time.Duration)) ResolverOption {
	return func(r *Resolver) {
		if fn != nil {
			r.observe = fn
		}
	}
}

// Outcome is the result of resolving one place.
type Outcome struct {
	Point Point
	Err   error
}

// Resolver fans geocoding lookups out with bounded parallelism and caches
// results by place string. A Resolver belongs to one request; it must not be
// shared across requests.
type Resolver struct {
	geocoder    Geocoder
	concurrency int
	timeout     time.Duration
	observe     func(place, outcome string, took time.Duration)

	mu    sync.Mutex
	cache map[string]Outcome
}

// NewResolver creates a request-scoped resolver.
func NewResolver(g Geocoder, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		geocoder:    g,
		concurrency: defaultConcurrency,
		timeout:     defaultTimeout,
		observe:     func(string, string, time.Duration) {},
		cache:       make(map[string]Outcome),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func cacheKey(place string) string {
	return strings.ToLower(strings.Join(strings.Fields(place), " "))
}

// Resolve geocodes one place. Errors are normalized to wrap either
// ErrNotFound or ErrUnavailable.
func (r *Resolver) Resolve(ctx context.Context, place string) (Point, error) {
	key := cacheKey(place)
	r.mu.Lock()
	if o, ok := r.cache[key]; ok {
		r.mu.Unlock()
		r.observe(place, OutcomeCached, 0)
		return o.Point, o.Err
	}
	r.mu.Unlock()

	start := time.Now()
	p, err := r.lookup(ctx, place)
	took := time.Since(start)

	outcome := OutcomeResolved
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		outcome = OutcomeNotFound
	case errors.Is(err, ErrUnavailable):
		outcome = OutcomeUnavailable
	default:
		outcome = OutcomeUnavailable
		err = fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	r.observe(place, outcome, took)

	// A cancelled parent is not a fact about the place; do not cache it.
	if ctx.Err() == nil {
		r.mu.Lock()
		r.cache[key] = Outcome{Point: p, Err: err}
		r.mu.Unlock()
	}
	return p, err
}

// lookup waits for the geocoder's pacing, if any, and only then applies the
// per-lookup timeout.
func (r *Resolver) lookup(ctx context.Context, place string) (Point, error) {
	if pacer, ok := r.geocoder.(Pacer); ok {
		if err := pacer.Wait(ctx); err != nil {
			return Point{}, fmt.Errorf("%w: wait for rate limit: %w", ErrUnavailable, err)
		}
		ctx = Paced(ctx)
	}
	lctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.geocoder.Geocode(lctx, place)
}

// ResolveAll geocodes every distinct place concurrently. Individual failures
// are reported per place; the returned error is non-nil only when ctx ends.
func (r *Resolver) ResolveAll(ctx context.Context, places []string) (map[string]Outcome, error) {
	var (
		mu  sync.Mutex
		out = make(map[string]Outcome, len(places))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	seen := make(map[string]struct{}, len(places))
	for _, place := range places {
		if _, dup := seen[place]; dup {
			continue
		}
		seen[place] = struct{}{}
		g.Go(func() error {
			p, err := r.Resolve(gctx, place)
			mu.Lock()
			out[place] = Outcome{Point: p, Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return out, fmt.Errorf("resolve places: %w", err)
	}
	return out, nil
}
