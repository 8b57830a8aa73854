package dataset

import "errors"

// Sentinel errors for dataset operations.
var (
	ErrNoSnapshot = errors.New("dataset not loaded")
	ErrEmpty      = errors.New("dataset is empty")
)
