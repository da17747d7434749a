package session

import (
	"context"
	"errors"
)

// ErrNoStore is returned when a consumer asks for the store from a context
// that was not derived from one carrying it.
var ErrNoStore = errors.New("session: store not provided; consumer used outside the tree created by session.NewContext")

type storeContextKey struct{}

// NewContext returns a child of ctx carrying store. Screens below it retrieve
// the store with [FromContext].
func NewContext(ctx context.Context, store *Store) context.Context {
	return context.WithValue(ctx, storeContextKey{}, store)
}

// FromContext returns the store attached by [NewContext].
func FromContext(ctx context.Context) (*Store, error) {
	if ctx == nil {
		return nil, ErrNoStore
	}
	store, ok := ctx.Value(storeContextKey{}).(*Store)
	if !ok || store == nil {
		return nil, ErrNoStore
	}
	return store, nil
}

// MustFromContext is like [FromContext] but panics with [ErrNoStore].
func MustFromContext(ctx context.Context) *Store {
	store, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return store
}
