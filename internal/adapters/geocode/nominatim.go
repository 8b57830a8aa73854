// Package geocode resolves free-text places through a Nominatim-compatible
// search API, guarded by a rate limiter and a circuit breaker.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/okian/vor/internal/domain/geo"
	"github.com/okian/vor/pkg/logger"
	"github.com/okian/vor/pkg/metrics"
)

// Default client configuration constants.
const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "vor-venue-recommender/1.0"

	defaultTimeout     = 5 * time.Second
	defaultRPS         = 1.0
	defaultBurst       = 1
	breakerName        = "geocoder"
	breakerMinRequests = 5
	breakerFailRatio   = 0.6
)

var (
	_ geo.Geocoder = (*Client)(nil)
	_ geo.Pacer    = (*Client)(nil)
)

// errCallerDone marks a lookup abandoned because the caller's context ended.
var errCallerDone = errors.New("caller gave up")

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL sets the service root, e.g. an internal Nominatim mirror.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			c.baseURL = u
		}
	}
}

// WithUserAgent sets the User-Agent header the usage policy requires.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRateLimit caps outbound requests per second. Zero or less disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithBreakerTimeout sets how long the circuit stays open before probing.
func WithBreakerTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.breakerTimeout = d
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// Client implements geo.Geocoder.
type Client struct {
	http           *http.Client
	baseURL        string
	userAgent      string
	limiter        *rate.Limiter
	breakerTimeout time.Duration
	cb             *gobreaker.CircuitBreaker[geo.Point]
	log            logger.Logger
}

// New creates a geocoding client.
func New(opts ...Option) *Client {
	c := &Client{
		http:           &http.Client{Timeout: defaultTimeout},
		baseURL:        DefaultBaseURL,
		userAgent:      DefaultUserAgent,
		limiter:        rate.NewLimiter(rate.Limit(defaultRPS), defaultBurst),
		breakerTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Named("geocode")
	}

	metrics.UpdateGeocodeCircuitState(stateValue(gobreaker.StateClosed))
	c.cb = gobreaker.NewCircuitBreaker[geo.Point](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     c.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < breakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= breakerFailRatio
		},
		// Unknown places are answers, not failures. A caller that gave up
		// says nothing about the service either.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, geo.ErrNotFound) || errors.Is(err, errCallerDone)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn(context.Background(), "geocoder circuit state changed",
				logger.String("from", from.String()),
				logger.String("to", to.String()))
			metrics.UpdateGeocodeCircuitState(stateValue(to))
		},
	})
	return c
}

// Wait blocks until the rate limiter admits one request or ctx ends.
func (c *Client) Wait(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

// State reports the circuit breaker state.
func (c *Client) State() gobreaker.State { return c.cb.State() }

// Geocode resolves place to coordinates. It returns geo.ErrNotFound when the
// service has no match and geo.ErrUnavailable for every other failure.
func (c *Client) Geocode(ctx context.Context, place string) (geo.Point, error) {
	place = strings.TrimSpace(place)
	if place == "" {
		return geo.Point{}, geo.ErrNotFound
	}

	if !geo.IsPaced(ctx) {
		if err := c.Wait(ctx); err != nil {
			return geo.Point{}, fmt.Errorf("%w: wait for rate limit: %w", geo.ErrUnavailable, err)
		}
	}

	p, err := c.cb.Execute(func() (geo.Point, error) {
		p, err := c.search(ctx, place)
		if err != nil && ctx.Err() != nil {
			return geo.Point{}, fmt.Errorf("%w: %w", errCallerDone, ctx.Err())
		}
		return p, err
	})
	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, geo.ErrNotFound):
		return geo.Point{}, err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return geo.Point{}, fmt.Errorf("%w: circuit %s", geo.ErrUnavailable, c.cb.State())
	default:
		return geo.Point{}, fmt.Errorf("%w: %w", geo.ErrUnavailable, err)
	}
}

// searchResult is one entry of the search response. Coordinates arrive as
// strings.
type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (c *Client) search(ctx context.Context, place string) (geo.Point, error) {
	q := url.Values{}
	q.Set("q", place)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return geo.Point{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return geo.Point{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return geo.Point{}, fmt.Errorf("geocode returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return geo.Point{}, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(results) == 0 {
		return geo.Point{}, geo.ErrNotFound
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("parse latitude %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("parse longitude %q: %w", results[0].Lon, err)
	}
	return geo.Point{Lat: lat, Lon: lon}, nil
}

func stateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
