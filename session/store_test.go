package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/notees/session"
	"github.com/MrEthical07/notees/session/sessiontest"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func waitReady(t *testing.T, s *session.Store) {
	t.Helper()
	select {
	case <-s.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("store did not resolve")
	}
}

func TestStoreStartsLoading(t *testing.T) {
	s := session.NewStore(sessiontest.New())
	defer s.Close()

	st := s.Snapshot()
	if !st.IsLoading {
		t.Fatal("expected loading state before Initialize")
	}
	if st.User != nil || st.Session != nil {
		t.Fatal("expected empty placeholder while loading")
	}
}

func TestInitializeResolvesPersistedSession(t *testing.T) {
	p := sessiontest.New()
	p.Initial = sessiontest.NewSession("u1", "u1@example.com")

	s := session.NewStore(p)
	defer s.Close()
	s.Initialize(context.Background())
	waitReady(t, s)

	st := s.Snapshot()
	if st.IsLoading {
		t.Fatal("expected resolved state")
	}
	if st.User == nil || st.User.ID != "u1" {
		t.Fatalf("expected user u1, got %+v", st.User)
	}
	if st.Session == nil || st.Session.User.ID != st.User.ID {
		t.Fatalf("expected session paired with user, got %+v", st.Session)
	}
}

func TestInitializeDoesNotBlock(t *testing.T) {
	p := sessiontest.New()
	p.Hold = make(chan struct{})

	s := session.NewStore(p)
	s.Initialize(context.Background())

	if !s.Snapshot().IsLoading {
		t.Fatal("expected store to stay loading while lookup is pending")
	}

	close(p.Hold)
	waitReady(t, s)
	s.Close()
}

func TestInitializeLookupFailureResolvesSignedOut(t *testing.T) {
	p := sessiontest.New()
	p.InitialErr = errors.New("network unreachable")

	s := session.NewStore(p)
	defer s.Close()
	s.Initialize(context.Background())
	waitReady(t, s)

	st := s.Snapshot()
	if st.IsLoading || st.User != nil || st.Session != nil {
		t.Fatalf("expected signed-out resolution, got %+v", st)
	}
}

func TestInitializeLookupTimeoutResolvesSignedOut(t *testing.T) {
	p := sessiontest.New()
	p.Hold = make(chan struct{})
	defer close(p.Hold)

	s := session.NewStore(p, session.WithLookupTimeout(20*time.Millisecond))
	defer s.Close()
	s.Initialize(context.Background())
	waitReady(t, s)

	if s.Snapshot().User != nil {
		t.Fatal("expected no user after lookup timeout")
	}
}

func TestInitializeTwiceSubscribesOnce(t *testing.T) {
	p := sessiontest.New()
	s := session.NewStore(p)
	defer s.Close()

	s.Initialize(context.Background())
	s.Initialize(context.Background())
	waitReady(t, s)

	if got := p.Subscribers(); got != 1 {
		t.Fatalf("expected 1 subscription, got %d", got)
	}
}

func TestLoadingFlipsExactlyOnce(t *testing.T) {
	p := sessiontest.New()
	p.Hold = make(chan struct{})

	s := session.NewStore(p)
	defer s.Close()

	var mu sync.Mutex
	var seen []bool
	cancel := s.Watch(func(st session.State) {
		mu.Lock()
		seen = append(seen, st.IsLoading)
		mu.Unlock()
	})
	defer cancel()

	s.Initialize(context.Background())
	p.Emit(session.Change{Event: session.EventSignedIn, Session: sessiontest.NewSession("u1", "")})
	close(p.Hold)
	waitReady(t, s)
	p.Emit(session.Change{Event: session.EventSignedOut})
	p.Emit(session.Change{Event: session.EventSignedIn, Session: sessiontest.NewSession("u2", "")})

	mu.Lock()
	defer mu.Unlock()
	for i, loading := range seen {
		if loading {
			t.Fatalf("observer %d saw IsLoading=true after resolution", i)
		}
	}
	if len(seen) < 3 {
		t.Fatalf("expected at least 3 notifications, got %d", len(seen))
	}
}

func TestLateInitialLookupIsDiscarded(t *testing.T) {
	p := sessiontest.New()
	p.Hold = make(chan struct{})
	p.Initial = sessiontest.NewSession("stale", "")

	s := session.NewStore(p)
	s.Initialize(context.Background())

	p.Emit(session.Change{Event: session.EventSignedIn, Session: sessiontest.NewSession("fresh", "")})
	close(p.Hold)
	s.Close()

	if got := s.Snapshot().UserID(); got != "fresh" {
		t.Fatalf("expected newer change to win, got %q", got)
	}
}

func TestChangeDuringSlowWatcherIsDeliveredLast(t *testing.T) {
	p := sessiontest.New()
	s := session.NewStore(p)
	defer s.Close()

	entered := make(chan struct{})
	release := make(chan struct{})
	var releaseOnce sync.Once
	unblock := func() { releaseOnce.Do(func() { close(release) }) }
	defer unblock()

	var mu sync.Mutex
	var calls int
	var delivered []string
	s.Watch(func(st session.State) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(entered)
			<-release
		}
		mu.Lock()
		delivered = append(delivered, st.UserID())
		mu.Unlock()
	})

	s.Initialize(context.Background())
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("resolving commit was not delivered")
	}

	emitted := make(chan struct{})
	go func() {
		defer close(emitted)
		p.Emit(session.Change{Event: session.EventSignedIn, Session: sessiontest.NewSession("u1", "")})
	}()

	select {
	case <-emitted:
		t.Fatal("change was delivered while the previous delivery was still running")
	case <-s.Ready():
		t.Fatal("Ready closed before the resolving commit's watchers returned")
	case <-time.After(50 * time.Millisecond):
	}

	unblock()
	<-emitted
	waitReady(t, s)

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 2 || delivered[0] != "" || delivered[1] != "u1" {
		t.Fatalf("expected deliveries [\"\" u1], got %q", delivered)
	}
	if got := s.Snapshot().UserID(); got != delivered[len(delivered)-1] {
		t.Fatalf("last delivery %q does not match committed state %q", delivered[len(delivered)-1], got)
	}
}

func TestSnapshotNeverHalfInitialized(t *testing.T) {
	for i := 0; i < 50; i++ {
		p := sessiontest.New()
		p.Initial = sessiontest.NewSession("u1", "")
		s := session.NewStore(p)

		var bad atomic.Int32
		var wg sync.WaitGroup
		stop := make(chan struct{})
		for r := 0; r < 4; r++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-stop:
						return
					default:
					}
					st := s.Snapshot()
					if (st.User == nil) != (st.Session == nil) {
						bad.Add(1)
					}
					if !st.IsLoading && st.User == nil {
						bad.Add(1)
					}
				}
			}()
		}

		s.Initialize(context.Background())
		waitReady(t, s)
		close(stop)
		wg.Wait()
		s.Close()

		if bad.Load() != 0 {
			t.Fatalf("observed %d inconsistent snapshots", bad.Load())
		}
	}
}

func TestChangeReplacesUserAndSession(t *testing.T) {
	p := sessiontest.New()
	p.Initial = sessiontest.NewSession("u1", "")
	s := session.NewStore(p)
	defer s.Close()
	s.Initialize(context.Background())
	waitReady(t, s)

	p.Emit(session.Change{Event: session.EventSignedOut})
	st := s.Snapshot()
	if st.User != nil || st.Session != nil {
		t.Fatalf("expected signed out state, got %+v", st)
	}

	refreshed := sessiontest.NewSession("u1", "")
	refreshed.AccessToken = "rotated"
	p.Emit(session.Change{Event: session.EventTokenRefreshed, Session: refreshed})
	st = s.Snapshot()
	if st.Session == nil || st.Session.AccessToken != "rotated" {
		t.Fatalf("expected refreshed session, got %+v", st.Session)
	}
}

func TestSignInCommitsThroughSubscription(t *testing.T) {
	p := sessiontest.New()
	p.AddUser("u1", "a@example.com", "correct-horse")
	s := session.NewStore(p)
	defer s.Close()
	s.Initialize(context.Background())
	waitReady(t, s)

	sess, err := s.SignIn(context.Background(), "a@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if sess.User.ID != "u1" {
		t.Fatalf("expected u1 session, got %q", sess.User.ID)
	}
	if got := s.Snapshot().UserID(); got != "u1" {
		t.Fatalf("expected store to hold u1, got %q", got)
	}
}

func TestSignInRejectedLeavesStateUnchanged(t *testing.T) {
	p := sessiontest.New()
	p.AddUser("u1", "a@example.com", "correct-horse")
	s := session.NewStore(p)
	defer s.Close()
	s.Initialize(context.Background())
	waitReady(t, s)

	before := s.Snapshot()
	_, err := s.SignIn(context.Background(), "a@example.com", "wrong")
	if !errors.Is(err, sessiontest.ErrInvalidCredentials) {
		t.Fatalf("expected provider error relayed, got %v", err)
	}
	after := s.Snapshot()
	if after.User != before.User || after.Session != before.Session || after.IsLoading != before.IsLoading {
		t.Fatalf("expected state unchanged, before=%+v after=%+v", before, after)
	}
}

func TestSignOutErrorRelayed(t *testing.T) {
	p := sessiontest.New()
	p.Initial = sessiontest.NewSession("u1", "")
	p.SignOutErr = errors.New("backend down")
	s := session.NewStore(p)
	defer s.Close()
	s.Initialize(context.Background())
	waitReady(t, s)

	if err := s.SignOut(context.Background()); err != p.SignOutErr {
		t.Fatalf("expected provider error unchanged, got %v", err)
	}
	if s.Snapshot().UserID() != "u1" {
		t.Fatal("expected user to remain signed in")
	}
}

func TestCloseReleasesSubscription(t *testing.T) {
	p := sessiontest.New()
	s := session.NewStore(p)
	s.Initialize(context.Background())
	waitReady(t, s)

	calls := 0
	s.Watch(func(session.State) { calls++ })

	s.Close()
	s.Close()

	if got := p.Subscribers(); got != 0 {
		t.Fatalf("expected subscription released, %d remain", got)
	}
	p.Emit(session.Change{Event: session.EventSignedIn, Session: sessiontest.NewSession("u1", "")})
	if calls != 0 {
		t.Fatalf("expected no callbacks after Close, got %d", calls)
	}
	if s.Snapshot().User != nil {
		t.Fatal("expected closed store to ignore provider changes")
	}
}

func TestCloseBeforeInitialize(t *testing.T) {
	p := sessiontest.New()
	s := session.NewStore(p)
	s.Close()
	s.Initialize(context.Background())

	if got := p.Subscribers(); got != 0 {
		t.Fatalf("expected no subscription after Close, got %d", got)
	}
}

func TestWatchCancelIsIdempotent(t *testing.T) {
	p := sessiontest.New()
	s := session.NewStore(p)
	defer s.Close()

	var a, b int
	cancelA := s.Watch(func(session.State) { a++ })
	s.Watch(func(session.State) { b++ })

	cancelA()
	cancelA()

	s.Initialize(context.Background())
	waitReady(t, s)

	if a != 0 {
		t.Fatalf("expected cancelled watcher not to fire, got %d", a)
	}
	if b != 1 {
		t.Fatalf("expected remaining watcher to fire once, got %d", b)
	}
}

func TestFromContext(t *testing.T) {
	if _, err := session.FromContext(context.Background()); !errors.Is(err, session.ErrNoStore) {
		t.Fatalf("expected ErrNoStore, got %v", err)
	}

	s := session.NewStore(sessiontest.New())
	defer s.Close()
	ctx := session.NewContext(context.Background(), s)
	got, err := session.FromContext(ctx)
	if err != nil || got != s {
		t.Fatalf("expected provided store, got %v err=%v", got, err)
	}

	defer func() {
		r := recover()
		if err, ok := r.(error); !ok || !errors.Is(err, session.ErrNoStore) {
			t.Fatalf("expected panic with ErrNoStore, got %v", r)
		}
	}()
	session.MustFromContext(context.Background())
}
