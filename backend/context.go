package backend

import "context"

type clientIPContextKey struct{}

// WithClientIP attaches the caller's address to ctx. Sign-in throttling
// counts failures per address when SignInLimit.PerIP is set.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
