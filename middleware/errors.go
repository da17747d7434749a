package middleware

import "errors"

var (
	ErrMissingToken    = errors.New("middleware: missing bearer token")
	ErrNoAuthenticator = errors.New("middleware: no authenticator configured")
)
