package normalize

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSchema is the sentinel kind for tables missing required columns.
var ErrSchema = errors.New("dataset schema error")

// SchemaError names the first missing required column; Missing lists all.
type SchemaError struct {
	Column  string
	Missing []string
}

func (e *SchemaError) Error() string {
	if len(e.Missing) > 1 {
		return fmt.Sprintf("missing required column %q (also missing: %s)", e.Column, strings.Join(e.Missing[1:], ", "))
	}
	return fmt.Sprintf("missing required column %q", e.Column)
}

// Unwrap lets callers match with errors.Is(err, ErrSchema).
func (e *SchemaError) Unwrap() error { return ErrSchema }
