// Package tokens issues and verifies the dev backend's HS256 access tokens.
//
// Tokens carry sub (user id), email, sid (backend session id) and
// role=authenticated, the shape Supabase clients expect. Clients that only
// need the expiry of a token they did not sign use [ExpiresAt].
package tokens
