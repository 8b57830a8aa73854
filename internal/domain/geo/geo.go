// Package geo restricts candidate events to a radius around a target point.
//
// The filter itself performs no I/O; coordinates come from the records or
// from a Geocoder collaborator through a request-scoped Resolver.
package geo

import (
	"context"
	"math"

	"github.com/okian/vor/internal/domain/model"
)

// EarthRadiusMiles is the mean Earth radius used by the haversine formula.
const EarthRadiusMiles = 3958.8

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Geocoder resolves a free-text place to coordinates. Implementations return
// ErrNotFound when the place is unknown and ErrUnavailable for service
// failures, so the two stay distinguishable.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (Point, error)
}

// Pacer is implemented by geocoders that throttle outbound calls. The
// Resolver waits on it with the caller's context before a lookup's own
// timeout starts, then marks the lookup context with Paced.
type Pacer interface {
	Wait(ctx context.Context) error
}

type pacedKey struct{}

// Paced marks ctx as having already waited on the geocoder's Pacer.
func Paced(ctx context.Context) context.Context {
	return context.WithValue(ctx, pacedKey{}, true)
}

// IsPaced reports whether ctx was marked by Paced.
func IsPaced(ctx context.Context) bool {
	v, _ := ctx.Value(pacedKey{}).(bool)
	return v
}

// DistanceMiles returns the great-circle distance between a and b.
func DistanceMiles(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMiles * c
}

// RecordPoint returns the record's own coordinates, if it carries them.
func RecordPoint(r *model.EventRecord) (Point, bool) {
	if !r.HasCoordinates() {
		return Point{}, false
	}
	return Point{Lat: r.Latitude.Value, Lon: r.Longitude.Value}, true
}

// Candidate is a scored event plus whatever coordinates are known for it.
type Candidate struct {
	Event    model.ScoredEvent
	Point    Point
	HasPoint bool
}

// Filter keeps candidates within miles of target. Candidates without
// coordinates pass through unchanged; callers must already have restricted
// those to the exact location match.
func Filter(cands []Candidate, target Point, miles float64) []model.ScoredEvent {
	out := make([]model.ScoredEvent, 0, len(cands))
	for _, c := range cands {
		if c.HasPoint && DistanceMiles(target, c.Point) > miles {
			continue
		}
		out = append(out, c.Event)
	}
	return out
}
