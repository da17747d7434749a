package middleware

import (
	"net/http"

	"github.com/MrEthical07/notees/backend"
)

// RequireStrict checks the token and that its session is still open.
func RequireStrict(b *backend.Backend, opts ...Option) func(http.Handler) http.Handler {
	return Guard(b, opts...)
}
