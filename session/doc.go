// Package session provides the process-wide source of truth for "is someone
// signed in": a [Store] holding the current [State] sourced from an external
// identity [Provider].
//
// # State model
//
// A [State] is immutable once published. Every change builds a new value and
// swaps it in atomically, so readers never observe IsLoading=false paired with
// the pre-initialization placeholder, and User is non-nil exactly when Session
// is non-nil.
//
// IsLoading starts true and flips to false exactly once: either when the
// persisted-session lookup started by [Store.Initialize] completes, or when the
// provider reports its first auth state change, whichever commits first.
//
// # Single writer
//
// [Store.SignIn] and [Store.SignOut] only delegate to the provider. Local state
// changes solely through the provider's change subscription.
//
// # Architecture boundaries
//
// This package does not render screens or decide navigation. The guard package
// consumes [State] snapshots; screens obtain the store through
// [FromContext].
package session
