package session

import (
	"context"
	"time"
)

// User is the identity record attached to a signed-in session. Fields are
// opaque to this package; screens use ID as a foreign key.
type User struct {
	ID        string         `json:"id"`
	Email     string         `json:"email,omitempty"`
	Metadata  map[string]any `json:"user_metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
}

// Session is the credential bundle issued by the identity provider.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    time.Time `json:"-"`
	User         User      `json:"user"`
}

// Expired reports whether the access token expires within margin of now.
func (s *Session) Expired(now time.Time, margin time.Duration) bool {
	if s == nil {
		return true
	}
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(margin).Before(s.ExpiresAt)
}

// Clone returns a deep copy of s, or nil for a nil session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.User = s.User.clone()
	return &out
}

func (u User) clone() User {
	out := u
	if u.Metadata != nil {
		out.Metadata = make(map[string]any, len(u.Metadata))
		for k, v := range u.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// State is a read-only snapshot of the store.
type State struct {
	User      *User
	Session   *Session
	IsLoading bool
}

// Authenticated reports whether the snapshot carries a signed-in user.
func (s State) Authenticated() bool {
	return !s.IsLoading && s.User != nil
}

// UserID returns the signed-in user's id, or "" when signed out or loading.
func (s State) UserID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}

// resolved builds the committed state for sess. User and Session are derived
// from the same value so they are always present or absent together.
func resolved(sess *Session) *State {
	if sess == nil {
		return &State{}
	}
	cp := sess.Clone()
	user := cp.User
	return &State{
		User:    &user,
		Session: cp,
	}
}

// Event names an auth state change reported by the provider.
type Event string

const (
	EventInitialSession Event = "INITIAL_SESSION"
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
	EventUserUpdated    Event = "USER_UPDATED"
)

// Change is one provider notification. A nil Session means signed out.
type Change struct {
	Event   Event
	Session *Session
}

// Subscription is the handle returned by [Provider.OnAuthStateChange].
// After Unsubscribe returns, the callback is never invoked again. It must not
// be called from inside that callback.
type Subscription interface {
	Unsubscribe()
}

// Provider is the external identity provider the store relays to.
type Provider interface {
	// GetInitialSession returns the persisted session, or nil when none exists.
	GetInitialSession(ctx context.Context) (*Session, error)
	// OnAuthStateChange registers fn for every subsequent auth state change.
	OnAuthStateChange(fn func(Change)) Subscription
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
}
