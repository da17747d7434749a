// Package guard enforces that signed-out users only reach the auth area of the
// screen tree and that signed-in users are steered away from it.
//
// # Decision and effect
//
// [Decide] is a pure function of a session snapshot and a location. [Watcher]
// is the effect: it re-evaluates Decide whenever the session store or the
// router changes and performs the redirect. [Middleware] applies the same
// decision to HTTP request paths.
//
// # Invariants
//
//   - No redirect while the session is loading.
//   - Redirects are idempotent: at the target location Decide returns None.
//
// # Architecture boundaries
//
// This package reads session state; it never signs anyone in or out.
package guard
