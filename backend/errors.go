package backend

import "errors"

var (
	ErrRedisUnavailable    = errors.New("backend: redis unavailable")
	ErrInvalidEmail        = errors.New("backend: invalid email address")
	ErrUserExists          = errors.New("backend: user already registered")
	ErrWeakPassword        = errors.New("backend: password too weak")
	ErrInvalidCredentials  = errors.New("backend: invalid login credentials")
	ErrRateLimited         = errors.New("backend: too many sign in attempts")
	ErrUserNotFound        = errors.New("backend: user not found")
	ErrInvalidRefreshToken = errors.New("backend: invalid refresh token")
	ErrRefreshReused       = errors.New("backend: refresh token already used")
	ErrSessionCorrupt      = errors.New("backend: session record corrupt")
	ErrUnauthorized        = errors.New("backend: unauthorized")
	ErrSessionNotFound     = errors.New("backend: session not found")
	ErrForbidden           = errors.New("backend: forbidden")
	ErrPostNotFound        = errors.New("backend: post not found")
	ErrInvalidPost         = errors.New("backend: title and description are required")
	ErrObjectExists        = errors.New("backend: object already exists")
	ErrObjectNotFound      = errors.New("backend: object not found")
	ErrObjectTooLarge      = errors.New("backend: object too large")
	ErrInvalidObjectPath   = errors.New("backend: invalid object path")
)
