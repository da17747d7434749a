package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Option configures a [Store].
type Option func(*Store)

// WithLogger sets the logger used for relayed failures. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLookupTimeout bounds the initial persisted-session lookup. A lookup that
// times out resolves as "no session" so startup never blocks indefinitely.
func WithLookupTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.lookupTimeout = d
	}
}

type watcher struct {
	id uint64
	fn func(State)
}

// Store holds the current authentication [State].
//
// Store is safe for concurrent use. Readers call [Store.Snapshot] or register
// with [Store.Watch]; the only writers are the initial lookup and the provider
// change subscription.
type Store struct {
	provider      Provider
	logger        *zap.Logger
	lookupTimeout time.Duration

	// deliverMu is held across a commit and its fan-out, so watchers see
	// commits one at a time and in commit order.
	deliverMu sync.Mutex
	state     atomic.Pointer[State]
	ready     chan struct{}
	readyOnce sync.Once

	mu       sync.Mutex
	watchers []watcher
	nextID   uint64
	sub      Subscription
	cancel   context.CancelFunc
	started  bool
	closed   bool
	wg       sync.WaitGroup
}

// NewStore creates a store in the loading state. Nothing is fetched until
// [Store.Initialize] is called.
func NewStore(provider Provider, opts ...Option) *Store {
	s := &Store{
		provider:      provider,
		logger:        zap.NewNop(),
		lookupTimeout: 10 * time.Second,
		ready:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Store(&State{IsLoading: true})
	return s
}

// Initialize subscribes to provider changes and starts the persisted-session
// lookup in the background. It returns immediately; callers observe
// IsLoading or wait on [Store.Ready]. Subsequent calls are no-ops, as are
// calls after [Store.Close].
func (s *Store) Initialize(ctx context.Context) {
	if s == nil || s.provider == nil {
		return
	}

	s.mu.Lock()
	if s.started || s.closed {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	sub := s.provider.OnAuthStateChange(s.onChange)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		if sub != nil {
			sub.Unsubscribe()
		}
		return
	}
	s.sub = sub
	lookupCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go s.resolve(lookupCtx)
}

func (s *Store) resolve(ctx context.Context) {
	defer s.wg.Done()

	if s.lookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.lookupTimeout)
		defer cancel()
	}

	sess, err := s.provider.GetInitialSession(ctx)
	if err != nil {
		s.logger.Warn("session: initial session lookup failed, continuing signed out", zap.Error(err))
		sess = nil
	}

	next := resolved(sess)
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if !s.state.Load().IsLoading {
		// A provider change committed first and is newer than the lookup.
		s.logger.Debug("session: discarding initial lookup superseded by auth change")
		return
	}
	s.state.Store(next)
	s.publish(next)
}

func (s *Store) onChange(c Change) {
	next := resolved(c.Session)
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	s.state.Store(next)
	s.logger.Debug("session: auth state changed",
		zap.String("event", string(c.Event)),
		zap.Bool("authenticated", next.User != nil),
	)
	s.publish(next)
}

func (s *Store) publish(st *State) {
	s.mu.Lock()
	fns := make([]func(State), 0, len(s.watchers))
	for _, w := range s.watchers {
		fns = append(fns, w.fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(*st)
	}

	if !st.IsLoading {
		s.readyOnce.Do(func() { close(s.ready) })
	}
}

// Snapshot returns the current state. The User and Session it points to are
// shared and must not be modified.
func (s *Store) Snapshot() State {
	if s == nil {
		return State{IsLoading: true}
	}
	return *s.state.Load()
}

// Ready is closed once IsLoading has become false and the watchers of the
// first resolved commit have returned. No later commit is delivered before
// that.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Watch registers fn to be called with every committed state. The returned
// cancel func is idempotent. Watchers run on the committing goroutine, in
// registration order, and never concurrently with another commit's watchers.
// A watcher must not wait for a later commit.
func (s *Store) Watch(fn func(State)) (cancel func()) {
	if s == nil || fn == nil {
		return func() {}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return func() {}
	}
	s.nextID++
	id := s.nextID
	s.watchers = append(s.watchers, watcher{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, w := range s.watchers {
				if w.id == id {
					s.watchers = append(s.watchers[:i:i], s.watchers[i+1:]...)
					return
				}
			}
		})
	}
}

// SignIn delegates to the provider and relays its result unchanged. The store
// is updated only when the provider reports the resulting change.
func (s *Store) SignIn(ctx context.Context, email, password string) (*Session, error) {
	sess, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		s.logger.Debug("session: sign in rejected", zap.Error(err))
		return nil, err
	}
	return sess, nil
}

// SignOut delegates to the provider and relays its error unchanged.
func (s *Store) SignOut(ctx context.Context) error {
	if err := s.provider.SignOut(ctx); err != nil {
		s.logger.Debug("session: sign out failed", zap.Error(err))
		return err
	}
	return nil
}

// Close releases the provider subscription and drops all watchers. It waits
// for an in-flight initial lookup to finish. Close is idempotent.
func (s *Store) Close() {
	if s == nil {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	sub := s.sub
	s.sub = nil
	cancel := s.cancel
	s.watchers = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}
