package model

import (
	"errors"
	"fmt"
)

// ErrNoMatch is the sentinel kind for an empty candidate set.
var ErrNoMatch = errors.New("no matching events")

// Stage identifies where the candidate set became empty.
type Stage string

// Filtering stages, in pipeline order.
const (
	StageTopic    Stage = "topic"
	StageLocation Stage = "location"
	StageRadius   Stage = "radius"
	StageScoring  Stage = "scoring"
)

// NoMatchError reports which filter emptied the candidate set.
type NoMatchError struct {
	Stage Stage
	Query Query
}

func (e *NoMatchError) Error() string {
	switch e.Stage {
	case StageTopic:
		return fmt.Sprintf("no data for topic %s", e.Query.Topic)
	case StageLocation:
		return fmt.Sprintf("no data for topic %s in %s", e.Query.Topic, e.location())
	case StageRadius:
		return fmt.Sprintf("no venues within %.1f miles of %s", e.Query.Miles, e.location())
	default:
		return fmt.Sprintf("no scorable events for topic %s in %s", e.Query.Topic, e.location())
	}
}

func (e *NoMatchError) location() string {
	if e.Query.ByPostalCode() {
		return e.Query.PostalCode
	}
	return e.Query.City + ", " + e.Query.State
}

// Unwrap lets callers match with errors.Is(err, ErrNoMatch).
func (e *NoMatchError) Unwrap() error { return ErrNoMatch }
