// Package rate throttles failed password sign-ins for the dev backend.
//
// # Window semantics
//
// Fixed-window counters: INCR plus EXPIRE on the first hit. Keys, under the
// caller's prefix:
//   - rl:email:<email> failures per account email
//   - rl:ip:<addr>     failures per client address, when enabled
//
// A successful sign-in clears the email counter only.
package rate
