// Package nav keeps the current logical location of the screen tree.
//
// Locations are slash-separated paths such as "/auth/login" or "/app/home".
// The [Router] is the side-effecting half of navigation: the guard package
// decides where to go, the router goes there and tells its watchers.
package nav

import (
	"path"
	"sync"
)

// Router holds a location history stack.
//
// Router is safe for concurrent use. Watchers are notified outside the lock,
// on the goroutine that changed the location.
type Router struct {
	mu       sync.Mutex
	stack    []string
	watchers []routeWatcher
	nextID   uint64
}

type routeWatcher struct {
	id uint64
	fn func(string)
}

// New returns a router positioned at initial.
func New(initial string) *Router {
	return &Router{stack: []string{Clean(initial)}}
}

// Clean normalizes a location. The empty string maps to "/".
func Clean(loc string) string {
	if loc == "" {
		return "/"
	}
	if loc[0] != '/' {
		loc = "/" + loc
	}
	return path.Clean(loc)
}

// Location returns the current location.
func (r *Router) Location() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stack[len(r.stack)-1]
}

// Replace swaps the current location for loc. It reports whether the location
// changed; replacing with the current location is a no-op.
func (r *Router) Replace(loc string) bool {
	loc = Clean(loc)
	r.mu.Lock()
	if r.stack[len(r.stack)-1] == loc {
		r.mu.Unlock()
		return false
	}
	r.stack[len(r.stack)-1] = loc
	fns := r.snapshotLocked()
	r.mu.Unlock()

	notify(fns, loc)
	return true
}

// Push navigates to loc, keeping the current location for [Router.Back].
func (r *Router) Push(loc string) bool {
	loc = Clean(loc)
	r.mu.Lock()
	if r.stack[len(r.stack)-1] == loc {
		r.mu.Unlock()
		return false
	}
	r.stack = append(r.stack, loc)
	fns := r.snapshotLocked()
	r.mu.Unlock()

	notify(fns, loc)
	return true
}

// Back returns to the previous location. It reports false at the root.
func (r *Router) Back() bool {
	r.mu.Lock()
	if len(r.stack) < 2 {
		r.mu.Unlock()
		return false
	}
	r.stack = r.stack[:len(r.stack)-1]
	loc := r.stack[len(r.stack)-1]
	fns := r.snapshotLocked()
	r.mu.Unlock()

	notify(fns, loc)
	return true
}

// Watch registers fn for every location change. cancel is idempotent.
func (r *Router) Watch(fn func(loc string)) (cancel func()) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.watchers = append(r.watchers, routeWatcher{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			for i, w := range r.watchers {
				if w.id == id {
					r.watchers = append(r.watchers[:i:i], r.watchers[i+1:]...)
					return
				}
			}
		})
	}
}

func (r *Router) snapshotLocked() []func(string) {
	fns := make([]func(string), len(r.watchers))
	for i, w := range r.watchers {
		fns[i] = w.fn
	}
	return fns
}

func notify(fns []func(string), loc string) {
	for _, fn := range fns {
		fn(loc)
	}
}
