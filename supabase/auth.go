package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/MrEthical07/notees/internal/events"
	"github.com/MrEthical07/notees/internal/tokens"
	"github.com/MrEthical07/notees/session"
	"go.uber.org/zap"
)

// wireSession is the token response body and the persisted form of a
// session. ExpiresAt is unix seconds.
type wireSession struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	RefreshToken string       `json:"refresh_token"`
	User         session.User `json:"user"`
}

func (w *wireSession) session(now time.Time) *session.Session {
	s := &session.Session{
		AccessToken:  w.AccessToken,
		RefreshToken: w.RefreshToken,
		TokenType:    w.TokenType,
		ExpiresIn:    w.ExpiresIn,
		User:         w.User,
	}
	switch {
	case w.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(w.ExpiresAt, 0)
	case !tokens.ExpiresAt(w.AccessToken).IsZero():
		s.ExpiresAt = tokens.ExpiresAt(w.AccessToken)
	case w.ExpiresIn > 0:
		s.ExpiresAt = now.Add(time.Duration(w.ExpiresIn) * time.Second)
	}
	return s
}

func toWire(s *session.Session) wireSession {
	w := wireSession{
		AccessToken:  s.AccessToken,
		TokenType:    s.TokenType,
		ExpiresIn:    s.ExpiresIn,
		RefreshToken: s.RefreshToken,
		User:         s.User,
	}
	if !s.ExpiresAt.IsZero() {
		w.ExpiresAt = s.ExpiresAt.Unix()
	}
	return w
}

// Auth is the identity provider. It implements session.Provider and keeps
// the current session in memory and in the client's Storage.
type Auth struct {
	c   *Client
	bus *events.Bus[session.Change]

	mu      sync.RWMutex
	current *session.Session

	// refreshMu serializes refreshes so a rotated token is never sent twice.
	refreshMu sync.Mutex
	// lookupMu is held by GetInitialSession; the refresh loop skips its tick
	// while the lookup runs.
	lookupMu sync.RWMutex

	loopMu   sync.Mutex
	stopLoop context.CancelFunc
	loopDone chan struct{}
	closed   bool
}

var _ session.Provider = (*Auth)(nil)

// Session returns a copy of the current session, or nil when signed out.
func (a *Auth) Session() *session.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current.Clone()
}

// AccessToken returns the current access token, or "" when signed out.
func (a *Auth) AccessToken() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.current == nil {
		return ""
	}
	return a.current.AccessToken
}

// GetInitialSession restores the persisted session. An expired session is
// refreshed first; when the refresh token is rejected the persisted session
// is discarded and nil is returned.
func (a *Auth) GetInitialSession(ctx context.Context) (*session.Session, error) {
	a.lookupMu.Lock()
	defer a.lookupMu.Unlock()

	raw, err := a.c.storage.Get(ctx, StorageKey)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}

	var w wireSession
	if err := json.Unmarshal([]byte(raw), &w); err != nil || w.AccessToken == "" {
		a.c.logger.Warn("supabase: discarding unreadable persisted session", zap.Error(err))
		_ = a.c.storage.Remove(ctx, StorageKey)
		return nil, nil
	}
	sess := w.session(time.Now())

	a.mu.Lock()
	if a.current == nil {
		a.current = sess.Clone()
	}
	a.mu.Unlock()

	if !sess.Expired(time.Now(), a.c.cfg.RefreshMargin) {
		return sess, nil
	}
	if sess.RefreshToken == "" {
		a.drop(ctx)
		return nil, nil
	}

	refreshed, err := a.refresh(ctx, sess.RefreshToken, false)
	if err != nil {
		if rejected(err) {
			return nil, nil
		}
		return nil, err
	}
	return refreshed, nil
}

// OnAuthStateChange registers fn for every later change. Calls are made on
// one goroutine, in order. fn must not call Unsubscribe on its own
// subscription.
func (a *Auth) OnAuthStateChange(fn func(session.Change)) session.Subscription {
	return a.bus.Subscribe(fn)
}

type passwordGrant struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *Auth) SignInWithPassword(ctx context.Context, email, password string) (*session.Session, error) {
	var w wireSession
	err := a.c.sendJSON(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		json:   passwordGrant{Email: email, Password: password},
		anon:   true,
	}, &w)
	if err != nil {
		return nil, err
	}
	if w.AccessToken == "" {
		return nil, ErrUnexpectedResponse
	}

	sess := w.session(time.Now())
	a.set(ctx, sess, session.EventSignedIn)
	return sess.Clone(), nil
}

type signUpRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Data     map[string]any `json:"data,omitempty"`
}

// SignUp creates an account. When the project requires email confirmation
// no session is returned and nothing changes locally.
func (a *Auth) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*session.Session, error) {
	var raw json.RawMessage
	err := a.c.sendJSON(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		json:   signUpRequest{Email: email, Password: password, Data: metadata},
		anon:   true,
	}, &raw)
	if err != nil {
		return nil, err
	}

	var w wireSession
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, ErrUnexpectedResponse
	}
	if w.AccessToken == "" {
		return nil, nil
	}
	sess := w.session(time.Now())
	a.set(ctx, sess, session.EventSignedIn)
	return sess.Clone(), nil
}

// SignOut revokes the session remotely and clears it locally. A session the
// server no longer knows is treated as already signed out. Other failures
// leave the local session in place.
func (a *Auth) SignOut(ctx context.Context) error {
	token := a.AccessToken()
	if token != "" {
		err := a.c.sendJSON(ctx, request{
			method: http.MethodPost,
			path:   "/auth/v1/logout",
			query:  url.Values{"scope": {"local"}},
			token:  token,
		}, nil)
		switch statusOf(err) {
		case 0:
			if err != nil {
				return err
			}
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			a.c.logger.Debug("supabase: session already closed on server", zap.Error(err))
		default:
			return err
		}
	}
	a.clear(ctx)
	return nil
}

// Refresh exchanges the current refresh token for a new session. When the
// server rejects the token the session is cleared and SIGNED_OUT emitted.
func (a *Auth) Refresh(ctx context.Context) (*session.Session, error) {
	a.mu.RLock()
	var token string
	if a.current != nil {
		token = a.current.RefreshToken
	}
	a.mu.RUnlock()
	if token == "" {
		return nil, ErrNoSession
	}
	return a.refresh(ctx, token, true)
}

type refreshGrant struct {
	RefreshToken string `json:"refresh_token"`
}

func (a *Auth) refresh(ctx context.Context, token string, emit bool) (*session.Session, error) {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	// Another caller may have rotated the token while this one waited.
	a.mu.RLock()
	if a.current != nil && a.current.RefreshToken != token {
		cur := a.current.Clone()
		a.mu.RUnlock()
		return cur, nil
	}
	a.mu.RUnlock()

	var w wireSession
	err := a.c.sendJSON(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		json:   refreshGrant{RefreshToken: token},
		anon:   true,
	}, &w)
	if err != nil {
		if rejected(err) {
			a.c.logger.Warn("supabase: refresh token rejected, signing out", zap.Error(err))
			if emit {
				a.clear(ctx)
			} else {
				a.drop(ctx)
			}
		}
		return nil, err
	}
	if w.AccessToken == "" {
		return nil, ErrUnexpectedResponse
	}

	sess := w.session(time.Now())
	if emit {
		a.set(ctx, sess, session.EventTokenRefreshed)
	} else {
		a.store(ctx, sess)
	}
	return sess.Clone(), nil
}

// rejected reports whether err means the server refused the credentials, as
// opposed to being unreachable.
func rejected(err error) bool {
	switch statusOf(err) {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

// store replaces the current session and persists it without notifying.
func (a *Auth) store(ctx context.Context, sess *session.Session) {
	a.mu.Lock()
	a.current = sess.Clone()
	a.mu.Unlock()

	data, err := json.Marshal(toWire(sess))
	if err == nil {
		err = a.c.storage.Set(ctx, StorageKey, string(data))
	}
	if err != nil {
		a.c.logger.Warn("supabase: could not persist session", zap.Error(err))
	}
}

func (a *Auth) set(ctx context.Context, sess *session.Session, event session.Event) {
	a.store(ctx, sess)
	a.bus.Publish(context.WithoutCancel(ctx), session.Change{Event: event, Session: sess.Clone()})
}

// drop forgets the session locally without notifying.
func (a *Auth) drop(ctx context.Context) {
	a.mu.Lock()
	a.current = nil
	a.mu.Unlock()
	if err := a.c.storage.Remove(ctx, StorageKey); err != nil {
		a.c.logger.Warn("supabase: could not remove persisted session", zap.Error(err))
	}
}

func (a *Auth) clear(ctx context.Context) {
	a.drop(ctx)
	a.bus.Publish(context.WithoutCancel(ctx), session.Change{Event: session.EventSignedOut})
}

// StartAutoRefresh refreshes the session in the background whenever it is
// within RefreshMargin of expiry. It runs until ctx ends or Close is called.
// Calling it while the loop runs has no effect.
func (a *Auth) StartAutoRefresh(ctx context.Context) {
	a.loopMu.Lock()
	defer a.loopMu.Unlock()
	if a.closed || a.stopLoop != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	a.stopLoop, a.loopDone = cancel, done

	interval := a.c.cfg.RefreshInterval
	if interval <= 0 {
		interval = DefaultConfig().RefreshInterval
	}
	go a.refreshLoop(ctx, interval, done)
}

// StopAutoRefresh stops the loop started by StartAutoRefresh and waits for
// it to exit.
func (a *Auth) StopAutoRefresh() {
	a.loopMu.Lock()
	cancel, done := a.stopLoop, a.loopDone
	a.stopLoop, a.loopDone = nil, nil
	a.loopMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (a *Auth) refreshLoop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		a.refreshIfDue(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *Auth) refreshIfDue(ctx context.Context) {
	if !a.lookupMu.TryRLock() {
		return
	}
	defer a.lookupMu.RUnlock()

	a.mu.RLock()
	due := a.current != nil && a.current.RefreshToken != "" &&
		a.current.Expired(time.Now(), a.c.cfg.RefreshMargin)
	a.mu.RUnlock()
	if !due {
		return
	}

	if _, err := a.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.c.logger.Warn("supabase: auto refresh failed", zap.Error(err))
	}
}

// Close stops auto refresh and change delivery. Close is idempotent.
func (a *Auth) Close() {
	a.StopAutoRefresh()

	a.loopMu.Lock()
	closed := a.closed
	a.closed = true
	a.loopMu.Unlock()

	if !closed {
		a.bus.Close()
	}
}
