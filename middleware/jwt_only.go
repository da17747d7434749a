package middleware

import (
	"net/http"

	"github.com/MrEthical07/notees/backend"
)

// RequireJWTOnly checks only the token signature and expiry, skipping Redis.
// Requests for sessions that were already closed still pass.
func RequireJWTOnly(b *backend.Backend, opts ...Option) func(http.Handler) http.Handler {
	return Guard(AuthenticatorFunc(b.VerifyAccessToken), opts...)
}
