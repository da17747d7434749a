// Package internal holds helpers private to notees: backend session ids and
// the refresh token encoding.
//
// # Sub-packages
//
//   - events: ordered asynchronous fan-out of auth state changes
//   - rate: Redis fixed-window sign-in throttle
//   - tokens: HS256 access token issue and parse
package internal
