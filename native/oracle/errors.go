package oracle

import "errors"

var (
	errNilState = errors.New("oracle engine: state not configured")

	// ErrInvalidInput rejects updates carrying a zero or negative price or
	// EMA value. The stored series stays untouched.
	ErrInvalidInput = errors.New("oracle engine: values must be positive")
	// ErrUnauthorized is returned when anyone but the maintainer calls
	// Update.
	ErrUnauthorized = errors.New("oracle engine: caller is not the maintainer")
	// ErrNotInitialized is returned before the genesis series was stored.
	ErrNotInitialized = errors.New("oracle engine: price series not initialised")
)
