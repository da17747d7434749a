// Package sessiontest provides an in-memory [session.Provider] for tests.
package sessiontest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrEthical07/notees/session"
)

// ErrInvalidCredentials is returned by [Provider.SignInWithPassword] for an
// unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid login credentials")

type account struct {
	id       string
	password string
}

// Provider is a fake identity provider. Change notifications are delivered
// synchronously on the goroutine that triggers them.
type Provider struct {
	// Initial is returned by GetInitialSession.
	Initial *session.Session
	// InitialErr is returned by GetInitialSession when set.
	InitialErr error
	// Hold, when non-nil, blocks GetInitialSession until it is closed or the
	// lookup context ends.
	Hold chan struct{}
	// SignOutErr is returned by SignOut when set; no change is emitted.
	SignOutErr error

	mu           sync.Mutex
	accounts     map[string]account
	subs         map[uint64]func(session.Change)
	nextID       uint64
	signInCalls  int
	signOutCalls int
}

// New returns an empty provider.
func New() *Provider {
	return &Provider{
		accounts: make(map[string]account),
		subs:     make(map[uint64]func(session.Change)),
	}
}

// AddUser registers credentials accepted by SignInWithPassword.
func (p *Provider) AddUser(id, email, password string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts[email] = account{id: id, password: password}
}

// NewSession builds a session for the given user.
func NewSession(id, email string) *session.Session {
	return &session.Session{
		AccessToken:  "access-" + id,
		RefreshToken: "refresh-" + id,
		TokenType:    "bearer",
		ExpiresIn:    3600,
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         session.User{ID: id, Email: email},
	}
}

func (p *Provider) GetInitialSession(ctx context.Context) (*session.Session, error) {
	if p.Hold != nil {
		select {
		case <-p.Hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.InitialErr != nil {
		return nil, p.InitialErr
	}
	return p.Initial.Clone(), nil
}

func (p *Provider) OnAuthStateChange(fn func(session.Change)) session.Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := p.nextID
	p.subs[id] = fn
	return &subscription{p: p, id: id}
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*session.Session, error) {
	p.mu.Lock()
	p.signInCalls++
	acct, ok := p.accounts[email]
	p.mu.Unlock()

	if !ok || acct.password != password {
		return nil, ErrInvalidCredentials
	}
	sess := NewSession(acct.id, email)
	p.Emit(session.Change{Event: session.EventSignedIn, Session: sess})
	return sess.Clone(), nil
}

func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.signOutCalls++
	p.mu.Unlock()

	if p.SignOutErr != nil {
		return p.SignOutErr
	}
	p.Emit(session.Change{Event: session.EventSignedOut})
	return nil
}

// Emit delivers c to every active subscriber.
func (p *Provider) Emit(c session.Change) {
	p.mu.Lock()
	fns := make([]func(session.Change), 0, len(p.subs))
	for id := uint64(1); id <= p.nextID; id++ {
		if fn, ok := p.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// Subscribers returns the number of active subscriptions.
func (p *Provider) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// SignInCalls returns how many times SignInWithPassword was called.
func (p *Provider) SignInCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signInCalls
}

// SignOutCalls returns how many times SignOut was called.
func (p *Provider) SignOutCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signOutCalls
}

type subscription struct {
	p    *Provider
	id   uint64
	once sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.p.mu.Lock()
		defer s.p.mu.Unlock()
		delete(s.p.subs, s.id)
	})
}
