package notees

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/MrEthical07/notees/guard"
	"github.com/MrEthical07/notees/nav"
	"github.com/MrEthical07/notees/posts"
	"github.com/MrEthical07/notees/session"
)

// SignUpper is implemented by providers that can register accounts.
// metadata is stored with the user, e.g. "full_name".
type SignUpper interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*session.Session, error)
}

// SignUpRequest mirrors the registration form.
type SignUpRequest struct {
	FullName string
	Email    string
	Password string
	Confirm  string
}

// App ties the session store to navigation and the post feed: the guard
// watcher keeps the router consistent with the auth state and the feed
// follows the signed-in user.
//
// App is safe for concurrent use after Build.
type App struct {
	cfg      Config
	provider session.Provider
	logger   *zap.Logger

	store  *session.Store
	router *nav.Router
	posts  *posts.Service
	feed   *posts.Feed

	mu          sync.Mutex
	started     bool
	closed      bool
	watcher     *guard.Watcher
	unwatchFeed func()
	feedCtx     context.Context
	feedCancel  context.CancelFunc
	feedUser    string
	feedWake    chan struct{}
	wg          sync.WaitGroup
	closers     []func()
	closeOnce   sync.Once
}

// Start begins the persisted-session lookup and attaches the guard and the
// feed to the store. It returns immediately; wait on [App.Ready] for the
// first resolution. Calls after the first, or after Close, do nothing.
func (a *App) Start(ctx context.Context) {
	a.mu.Lock()
	if a.started || a.closed {
		a.mu.Unlock()
		return
	}
	a.started = true
	a.feedCtx, a.feedCancel = context.WithCancel(context.WithoutCancel(ctx))
	a.mu.Unlock()

	w := guard.Watch(a.store, a.router, a.cfg.Routes, guard.WithLogger(a.logger.Named("guard")))
	var unwatch func()
	if a.feed != nil {
		unwatch = a.store.Watch(func(session.State) { a.followUser() })
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		if unwatch != nil {
			unwatch()
		}
		w.Close()
		return
	}
	a.watcher, a.unwatchFeed = w, unwatch
	if a.feed != nil {
		a.wg.Add(1)
		go a.runFeed(a.feedCtx)
	}
	a.mu.Unlock()

	a.store.Initialize(ctx)
}

// followUser records the signed-in user and wakes the feed worker when it
// changed. It reads the latest snapshot rather than the committed value, so
// interleaved commits converge.
func (a *App) followUser() {
	st := a.store.Snapshot()
	if st.IsLoading {
		return
	}
	uid := st.UserID()

	a.mu.Lock()
	if a.closed || uid == a.feedUser {
		a.mu.Unlock()
		return
	}
	a.feedUser = uid
	a.mu.Unlock()

	select {
	case a.feedWake <- struct{}{}:
	default:
	}
}

// runFeed applies user changes to the feed one at a time, always moving to
// the most recent user. Store watchers run on the provider's dispatcher, so
// the network round trip happens here instead.
func (a *App) runFeed(ctx context.Context) {
	defer a.wg.Done()
	var applied string
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.feedWake:
		}

		a.mu.Lock()
		uid := a.feedUser
		a.mu.Unlock()
		if uid == applied {
			continue
		}
		applied = uid

		if uid == "" {
			a.feed.Clear()
			continue
		}
		if err := a.feed.Reload(ctx, uid); err != nil && ctx.Err() == nil {
			a.logger.Warn("notees: feed reload failed", zap.String("user", uid), zap.Error(err))
		}
	}
}

// Ready is closed once the initial session lookup has resolved.
func (a *App) Ready() <-chan struct{} {
	return a.store.Ready()
}

// Wait blocks until the initial lookup resolved or ctx ends.
func (a *App) Wait(ctx context.Context) (session.State, error) {
	select {
	case <-a.store.Ready():
		return a.store.Snapshot(), nil
	case <-ctx.Done():
		return a.store.Snapshot(), ctx.Err()
	}
}

func (a *App) Session() *session.Store { return a.store }
func (a *App) Router() *nav.Router     { return a.router }
func (a *App) State() session.State    { return a.store.Snapshot() }
func (a *App) Config() Config          { return a.cfg }

// Feed returns the signed-in user's post list, or nil when the app was
// built without posts.
func (a *App) Feed() *posts.Feed { return a.feed }

// Posts returns the post flows, or nil when the app was built without posts.
func (a *App) Posts() *posts.Service { return a.posts }

// ReloadFeed reloads the feed for the signed-in user and returns it.
func (a *App) ReloadFeed(ctx context.Context) (*posts.Feed, error) {
	if a.isClosed() {
		return nil, ErrClosed
	}
	if a.feed == nil {
		return nil, ErrNoPosts
	}
	uid := a.store.Snapshot().UserID()
	if uid == "" {
		return nil, posts.ErrNotSignedIn
	}
	if err := a.feed.Reload(ctx, uid); err != nil {
		return nil, err
	}
	return a.feed, nil
}

// Context returns parent carrying the app's session store, for code that
// resolves it with session.FromContext.
func (a *App) Context(parent context.Context) context.Context {
	return session.NewContext(parent, a.store)
}

func (a *App) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// SignIn checks both fields are present, then signs in through the store.
// Navigation follows through the guard once the provider reports the change.
func (a *App) SignIn(ctx context.Context, email, password string) (*session.Session, error) {
	if a.isClosed() {
		return nil, ErrClosed
	}
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrCredentialsRequired
	}
	return a.store.SignIn(ctx, email, password)
}

func (a *App) SignOut(ctx context.Context) error {
	if a.isClosed() {
		return ErrClosed
	}
	return a.store.SignOut(ctx)
}

// SignUp validates the registration form and registers the account. The
// returned session is nil when the provider requires email confirmation
// before the first sign in.
func (a *App) SignUp(ctx context.Context, req SignUpRequest) (*session.Session, error) {
	if a.isClosed() {
		return nil, ErrClosed
	}
	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" || req.Email == "" || req.Password == "" || req.Confirm == "" {
		return nil, ErrAllFieldsRequired
	}
	if req.Password != req.Confirm {
		return nil, ErrPasswordMismatch
	}
	su, ok := a.provider.(SignUpper)
	if !ok {
		return nil, ErrSignUpUnsupported
	}
	return su.SignUp(ctx, req.Email, req.Password, map[string]any{"full_name": req.FullName})
}

// Close detaches the feed and the guard, stops the feed worker, closes
// the store and then anything registered by the constructor. Safe to call
// more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		w, unwatch, cancel := a.watcher, a.unwatchFeed, a.feedCancel
		a.mu.Unlock()

		if unwatch != nil {
			unwatch()
		}
		if w != nil {
			w.Close()
		}
		if cancel != nil {
			cancel()
		}
		a.wg.Wait()
		a.store.Close()
		for i := len(a.closers) - 1; i >= 0; i-- {
			a.closers[i]()
		}
	})
}
