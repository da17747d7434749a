package guard

import (
	"sync"
	"sync/atomic"

	"github.com/MrEthical07/notees/session"
	"go.uber.org/zap"
)

// StateSource yields session snapshots.
type StateSource interface {
	Snapshot() session.State
}

// Source is a StateSource that also reports changes, such as *session.Store.
type Source interface {
	StateSource
	Watch(fn func(session.State)) (cancel func())
}

// Navigator is the side-effecting router the watcher drives, such as *nav.Router.
type Navigator interface {
	Location() string
	Replace(loc string) bool
	Watch(fn func(loc string)) (cancel func())
}

// WatchOption configures a [Watcher].
type WatchOption func(*Watcher)

// WithLogger logs each redirect at debug level.
func WithLogger(l *zap.Logger) WatchOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// OnRedirect registers fn to run after every redirect the watcher performs.
func OnRedirect(fn func(from string, a Action)) WatchOption {
	return func(w *Watcher) {
		w.onRedirect = fn
	}
}

// Watcher re-runs [Decide] whenever session state or location changes.
type Watcher struct {
	source     Source
	nav        Navigator
	routes     Routes
	logger     *zap.Logger
	onRedirect func(from string, a Action)

	redirects atomic.Uint64
	closed    atomic.Bool
	cancels   []func()
	closeOnce sync.Once
}

// Watch starts a watcher and evaluates the rule once immediately.
// The caller must Close it to release both registrations.
func Watch(source Source, navigator Navigator, routes Routes, opts ...WatchOption) *Watcher {
	w := &Watcher{
		source: source,
		nav:    navigator,
		routes: routes,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.cancels = append(w.cancels,
		source.Watch(func(session.State) { w.evaluate() }),
		navigator.Watch(func(string) { w.evaluate() }),
	)
	w.evaluate()
	return w
}

// evaluate reads the latest snapshot and location rather than the values
// passed to the triggering callback, so interleaved triggers converge.
func (w *Watcher) evaluate() {
	if w.closed.Load() {
		return
	}

	from := w.nav.Location()
	action := Decide(w.source.Snapshot(), from, w.routes)
	if action.Kind != Redirect {
		return
	}
	if !w.nav.Replace(action.Target) {
		return
	}

	w.redirects.Add(1)
	w.logger.Debug("guard: redirect",
		zap.String("from", from),
		zap.String("to", action.Target),
	)
	if w.onRedirect != nil {
		w.onRedirect(from, action)
	}
}

// Redirects returns how many redirects the watcher has performed.
func (w *Watcher) Redirects() uint64 {
	return w.redirects.Load()
}

// Close releases the store and router registrations. Close is idempotent.
func (w *Watcher) Close() {
	if w == nil {
		return
	}
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		for _, cancel := range w.cancels {
			cancel()
		}
	})
}
