package geo

import "errors"

// Sentinel error kinds for geocoding. These allow errors.Is from callers.
var (
	// ErrNotFound means the service answered but knows no such place.
	ErrNotFound = errors.New("place not found")
	// ErrUnavailable covers service errors, timeouts and open circuits.
	ErrUnavailable = errors.New("geocoding unavailable")
	// ErrLocationUnresolved means the query's own target could not be geocoded.
	ErrLocationUnresolved = errors.New("target location could not be resolved")
)
