package rate

import "errors"

var (
	// ErrRateLimited is returned once a key has used up its attempts for the window.
	ErrRateLimited = errors.New("rate: too many attempts")
	// ErrRedisUnavailable wraps counter read and write failures.
	ErrRedisUnavailable = errors.New("rate: redis unavailable")
)
