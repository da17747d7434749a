package notees_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/MrEthical07/notees"
	"github.com/MrEthical07/notees/posts"
	"github.com/MrEthical07/notees/session"
	"github.com/MrEthical07/notees/session/sessiontest"
)

type memRepo struct {
	mu     sync.Mutex
	rows   []posts.Post
	nextID int
	lists  int
}

func (m *memRepo) List(_ context.Context, userID string) ([]posts.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	var out []posts.Post
	for _, p := range m.rows {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memRepo) Insert(_ context.Context, p posts.Post) (posts.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = fmt.Sprintf("p%d", m.nextID)
	p.CreatedAt = time.Unix(int64(m.nextID), 0)
	m.rows = append(m.rows, p)
	return p, nil
}

func (m *memRepo) Update(_ context.Context, id string, u posts.Update) (posts.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows[i].Title, m.rows[i].Description = u.Title, u.Description
			return m.rows[i], nil
		}
	}
	return posts.Post{}, posts.ErrNotFound
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memRepo) seed(userID, title string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.rows = append(m.rows, posts.Post{
		ID:          fmt.Sprintf("p%d", m.nextID),
		Title:       title,
		Description: "seeded",
		UserID:      userID,
		CreatedAt:   time.Unix(int64(m.nextID), 0),
	})
}

// signUpProvider adds registration to the fake provider.
type signUpProvider struct {
	*sessiontest.Provider
	metadata map[string]any
}

func (p *signUpProvider) SignUp(_ context.Context, email, password string, metadata map[string]any) (*session.Session, error) {
	p.metadata = metadata
	p.AddUser("new-user", email, password)
	return nil, nil
}

func build(t *testing.T, p session.Provider, repo posts.Repository) *notees.App {
	t.Helper()
	b := notees.New().WithProvider(p)
	if repo != nil {
		b = b.WithPosts(repo, nil)
	}
	app, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(app.Close)
	return app
}

func start(t *testing.T, app *notees.App) session.State {
	t.Helper()
	app.Start(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := app.Wait(ctx)
	if err != nil {
		t.Fatalf("app did not resolve: %v", err)
	}
	return st
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBuildErrors(t *testing.T) {
	if _, err := notees.New().Build(); !errors.Is(err, notees.ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}

	cfg := notees.DefaultConfig()
	cfg.Routes.Home = "/auth/home"
	if _, err := notees.New().WithConfig(cfg).WithProvider(sessiontest.New()).Build(); !errors.Is(err, notees.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}

	b := notees.New().WithProvider(sessiontest.New())
	app, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close()
	if _, err := b.Build(); !errors.Is(err, notees.ErrBuilderUsed) {
		t.Fatalf("expected ErrBuilderUsed, got %v", err)
	}
}

func TestStartSignedOutLandsOnLogin(t *testing.T) {
	app := build(t, sessiontest.New(), nil)
	if !app.State().IsLoading {
		t.Fatal("expected loading before Start")
	}

	st := start(t, app)
	if st.IsLoading || st.Authenticated() {
		t.Fatalf("expected signed-out state, got %+v", st)
	}
	if got := app.Router().Location(); got != "/auth/login" {
		t.Fatalf("expected login, got %q", got)
	}
	if app.Feed() != nil || app.Posts() != nil {
		t.Fatal("expected no feed without a repository")
	}
	if _, err := app.ReloadFeed(context.Background()); !errors.Is(err, notees.ErrNoPosts) {
		t.Fatalf("expected ErrNoPosts, got %v", err)
	}
}

func TestRestoredSessionLoadsFeed(t *testing.T) {
	p := sessiontest.New()
	p.Initial = sessiontest.NewSession("u1", "a@example.com")
	repo := &memRepo{}
	repo.seed("u1", "first")
	repo.seed("u2", "not mine")
	repo.seed("u1", "second")

	app := build(t, p, repo)
	start(t, app)

	if got := app.Router().Location(); got != "/app/home" {
		t.Fatalf("expected home, got %q", got)
	}
	eventually(t, "feed reload", func() bool { return len(app.Feed().Posts()) == 2 })
	feed, err := app.ReloadFeed(context.Background())
	if err != nil {
		t.Fatalf("ReloadFeed: %v", err)
	}
	list := feed.Posts()
	if len(list) != 2 {
		t.Fatalf("expected 2 posts, got %+v", list)
	}
	if list[0].Title != "second" || list[1].Title != "first" {
		t.Fatalf("unexpected feed order %+v", list)
	}
}

func TestSignInAndOutFollowFeedAndRouter(t *testing.T) {
	p := sessiontest.New()
	p.AddUser("u1", "a@example.com", "correct-horse")
	repo := &memRepo{}
	repo.seed("u1", "hello")

	app := build(t, p, repo)
	start(t, app)
	if app.Feed().UserID() != "" {
		t.Fatal("expected empty feed while signed out")
	}

	if _, err := app.SignIn(context.Background(), " a@example.com ", "correct-horse"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	eventually(t, "sign in to reach the router", func() bool { return app.Router().Location() == "/app/home" })
	eventually(t, "feed reload", func() bool { return len(app.Feed().Posts()) == 1 })

	created, err := app.Feed().Create(context.Background(), posts.Draft{Title: "t", Description: "d"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.UserID != "u1" {
		t.Fatalf("expected post owned by u1, got %q", created.UserID)
	}

	if err := app.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	eventually(t, "sign out to reach the router", func() bool { return app.Router().Location() == "/auth/login" })
	eventually(t, "feed clear", func() bool { return app.Feed().UserID() == "" && len(app.Feed().Posts()) == 0 })
}

func TestSignInValidation(t *testing.T) {
	p := sessiontest.New()
	app := build(t, p, nil)
	start(t, app)

	for _, tc := range []struct{ email, password string }{
		{"", "pw"},
		{"   ", "pw"},
		{"a@example.com", ""},
	} {
		if _, err := app.SignIn(context.Background(), tc.email, tc.password); !errors.Is(err, notees.ErrCredentialsRequired) {
			t.Fatalf("SignIn(%q, %q): expected ErrCredentialsRequired, got %v", tc.email, tc.password, err)
		}
	}
	if p.SignInCalls() != 0 {
		t.Fatalf("provider called %d times for invalid input", p.SignInCalls())
	}

	if _, err := app.SignIn(context.Background(), "a@example.com", "wrong"); !errors.Is(err, sessiontest.ErrInvalidCredentials) {
		t.Fatalf("expected provider error relayed, got %v", err)
	}
	if app.Router().Location() != "/auth/login" {
		t.Fatal("rejected sign in must not navigate")
	}
}

func TestSignUp(t *testing.T) {
	plain := build(t, sessiontest.New(), nil)
	req := notees.SignUpRequest{FullName: "Ada", Email: "ada@example.com", Password: "secret-pw", Confirm: "secret-pw"}
	if _, err := plain.SignUp(context.Background(), req); !errors.Is(err, notees.ErrSignUpUnsupported) {
		t.Fatalf("expected ErrSignUpUnsupported, got %v", err)
	}

	p := &signUpProvider{Provider: sessiontest.New()}
	app := build(t, p, nil)

	missing := req
	missing.FullName = " "
	if _, err := app.SignUp(context.Background(), missing); !errors.Is(err, notees.ErrAllFieldsRequired) {
		t.Fatalf("expected ErrAllFieldsRequired, got %v", err)
	}
	mismatch := req
	mismatch.Confirm = "other-pw"
	if _, err := app.SignUp(context.Background(), mismatch); !errors.Is(err, notees.ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
	if p.metadata != nil {
		t.Fatal("provider called for invalid form")
	}

	sess, err := app.SignUp(context.Background(), req)
	if err != nil || sess != nil {
		t.Fatalf("expected pending confirmation, got %v %v", sess, err)
	}
	if p.metadata["full_name"] != "Ada" {
		t.Fatalf("expected full_name metadata, got %v", p.metadata)
	}
}

func TestContextCarriesStore(t *testing.T) {
	app := build(t, sessiontest.New(), nil)
	store, err := session.FromContext(app.Context(context.Background()))
	if err != nil {
		t.Fatalf("FromContext: %v", err)
	}
	if store != app.Session() {
		t.Fatal("expected the app's store")
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := sessiontest.New()
	p.Initial = sessiontest.NewSession("u1", "")
	app, err := notees.New().WithProvider(p).WithPosts(&memRepo{}, nil).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	app.Start(context.Background())
	<-app.Ready()

	app.Close()
	app.Close()
	if p.Subscribers() != 0 {
		t.Fatalf("expected provider subscription released, got %d", p.Subscribers())
	}
	if _, err := app.SignIn(context.Background(), "a@example.com", "pw"); !errors.Is(err, notees.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}

	p.Emit(session.Change{Event: session.EventSignedOut})
	if got := app.Router().Location(); got != "/app/home" {
		t.Fatalf("closed app must not navigate, got %q", got)
	}
}
