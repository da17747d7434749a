// Package middleware provides bearer-token guards for the dev server.
//
//   - [RequireStrict] verifies the JWT and that its session is still open.
//   - [RequireJWTOnly] verifies the JWT only, with no Redis call.
//   - [Guard] wraps any [Authenticator].
//
// Verified claims are stored in the request context and read back with
// [ClaimsFromContext]. Response formatting for rejected requests is left to
// the caller through [WithReject].
package middleware
