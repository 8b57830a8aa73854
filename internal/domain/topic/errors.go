package topic

import (
	"errors"
	"fmt"
)

// ErrInvalidTopic is the sentinel kind for unrecognized topics.
var ErrInvalidTopic = errors.New("invalid topic")

// InvalidTopicError reports the rejected topic value.
type InvalidTopicError struct {
	Value string
}

func (e *InvalidTopicError) Error() string {
	return fmt.Sprintf("invalid topic %q", e.Value)
}

// Unwrap lets callers match with errors.Is(err, ErrInvalidTopic).
func (e *InvalidTopicError) Unwrap() error { return ErrInvalidTopic }
