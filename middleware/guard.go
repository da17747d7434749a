package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/notees/internal/tokens"
)

type claimsContextKey struct{}

// Authenticator turns a bearer token into verified claims.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*tokens.Claims, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, token string) (*tokens.Claims, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context, token string) (*tokens.Claims, error) {
	return f(ctx, token)
}

// RejectFunc writes the response for a request the guard refused. err is
// ErrMissingToken or the error returned by the Authenticator.
type RejectFunc func(w http.ResponseWriter, r *http.Request, err error)

type Option func(*options)

type options struct {
	reject  RejectFunc
	anonKey string
	anon    bool
}

// WithReject replaces the default plain-text 401 response.
func WithReject(fn RejectFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.reject = fn
		}
	}
}

// AllowAnonymous lets requests without a bearer token, or bearing anonKey,
// through with no claims in the context.
func AllowAnonymous(anonKey string) Option {
	return func(o *options) {
		o.anon = true
		o.anonKey = anonKey
	}
}

// ClaimsFromContext returns the claims stored by Guard.
func ClaimsFromContext(ctx context.Context) (*tokens.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*tokens.Claims)
	return claims, ok && claims != nil
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *tokens.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

func Guard(auth Authenticator, opts ...Option) func(http.Handler) http.Handler {
	o := options{reject: defaultReject}
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if o.anon && (!ok || token == o.anonKey) {
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				o.reject(w, r, ErrMissingToken)
				return
			}
			if auth == nil {
				o.reject(w, r, ErrNoAuthenticator)
				return
			}

			claims, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				o.reject(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func defaultReject(w http.ResponseWriter, _ *http.Request, _ error) {
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
