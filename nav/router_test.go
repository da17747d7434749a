package nav

import "testing"

func TestCleanNormalizesLocations(t *testing.T) {
	cases := map[string]string{
		"":               "/",
		"app/home":       "/app/home",
		"/auth/login/":   "/auth/login",
		"/app//home/../": "/app",
	}
	for in, want := range cases {
		if got := Clean(in); got != want {
			t.Fatalf("Clean(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReplaceToCurrentLocationIsNoop(t *testing.T) {
	r := New("/app/home")
	calls := 0
	r.Watch(func(string) { calls++ })

	if r.Replace("/app/home/") {
		t.Fatal("expected replace to same location to report no change")
	}
	if calls != 0 {
		t.Fatalf("expected no notification, got %d", calls)
	}
}

func TestReplaceNotifiesWatchers(t *testing.T) {
	r := New("/app/home")
	var got []string
	r.Watch(func(loc string) { got = append(got, loc) })

	if !r.Replace("/auth/login") {
		t.Fatal("expected replace to change location")
	}
	if r.Location() != "/auth/login" {
		t.Fatalf("unexpected location %q", r.Location())
	}
	if len(got) != 1 || got[0] != "/auth/login" {
		t.Fatalf("unexpected notifications %v", got)
	}
}

func TestPushAndBack(t *testing.T) {
	r := New("/app/home")
	r.Push("/modal")
	if r.Location() != "/modal" {
		t.Fatalf("expected /modal, got %q", r.Location())
	}
	if !r.Back() {
		t.Fatal("expected Back to succeed")
	}
	if r.Location() != "/app/home" {
		t.Fatalf("expected /app/home after Back, got %q", r.Location())
	}
	if r.Back() {
		t.Fatal("expected Back at root to fail")
	}
}

func TestReplaceKeepsHistoryDepth(t *testing.T) {
	r := New("/app/home")
	r.Push("/app/explore")
	r.Replace("/auth/login")
	r.Back()
	if r.Location() != "/app/home" {
		t.Fatalf("expected replace to swap top of stack only, got %q", r.Location())
	}
}

func TestWatchCancel(t *testing.T) {
	r := New("/")
	calls := 0
	cancel := r.Watch(func(string) { calls++ })
	cancel()
	cancel()
	r.Replace("/app/home")
	if calls != 0 {
		t.Fatalf("expected cancelled watcher not to fire, got %d", calls)
	}
}
