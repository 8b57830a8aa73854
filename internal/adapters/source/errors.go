package source

import "errors"

// Sentinel errors for dataset sources.
var (
	ErrNoLocation   = errors.New("source location not configured")
	ErrUpstream     = errors.New("upstream returned an error")
	ErrUnknownKind  = errors.New("unknown source kind")
	ErrInvalidTable = errors.New("invalid table name")
)
