package guard

import (
	"testing"

	"github.com/MrEthical07/notees/session"
)

func signedIn(id string) session.State {
	return session.State{
		User:    &session.User{ID: id},
		Session: &session.Session{User: session.User{ID: id}},
	}
}

func TestDecideScenarios(t *testing.T) {
	routes := DefaultRoutes()
	cases := []struct {
		name     string
		state    session.State
		location string
		want     Action
	}{
		{"loading on login", session.State{IsLoading: true}, "/auth/login", Action{Kind: None}},
		{"signed out on home", session.State{}, "/app/home", Action{Kind: Redirect, Target: "/auth/login"}},
		{"signed in on login", signedIn("u1"), "/auth/login", Action{Kind: Redirect, Target: "/app/home"}},
		{"signed in on home", signedIn("u1"), "/app/home", Action{Kind: None}},
		{"signed out on signup", session.State{}, "/auth/signup", Action{Kind: None}},
		{"signed in on auth root", signedIn("u1"), "/auth", Action{Kind: Redirect, Target: "/app/home"}},
		{"signed out on lookalike prefix", session.State{}, "/authors", Action{Kind: Redirect, Target: "/auth/login"}},
		{"signed in on explore", signedIn("u1"), "/app/explore", Action{Kind: None}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Decide(tc.state, tc.location, routes); got != tc.want {
				t.Fatalf("Decide = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestDecideNeverRedirectsWhileLoading(t *testing.T) {
	routes := DefaultRoutes()
	locations := []string{"/", "/auth/login", "/auth/signup", "/app/home", "/app/explore", "/modal", ""}
	states := []session.State{
		{IsLoading: true},
		{IsLoading: true, User: &session.User{ID: "u1"}, Session: &session.Session{}},
	}
	for _, st := range states {
		for _, loc := range locations {
			if got := Decide(st, loc, routes); got.Kind != None {
				t.Fatalf("expected no action while loading at %q, got %+v", loc, got)
			}
		}
	}
}

func TestDecideRedirectTargetsAreFixedPoints(t *testing.T) {
	routes := DefaultRoutes()
	for _, st := range []session.State{{}, signedIn("u1")} {
		for _, loc := range []string{"/auth/login", "/app/home", "/modal"} {
			a := Decide(st, loc, routes)
			if a.Kind != Redirect {
				continue
			}
			if again := Decide(st, a.Target, routes); again.Kind != None {
				t.Fatalf("redirect target %q is not stable: %+v", a.Target, again)
			}
		}
	}
}

func TestRoutesValidate(t *testing.T) {
	if err := DefaultRoutes().Validate(); err != nil {
		t.Fatalf("default routes invalid: %v", err)
	}

	bad := DefaultRoutes()
	bad.Home = "/auth/home"
	if err := bad.Validate(); err == nil {
		t.Fatal("expected Home inside auth area to be rejected")
	}

	bad = DefaultRoutes()
	bad.Login = "/login"
	if err := bad.Validate(); err == nil {
		t.Fatal("expected Login outside auth area to be rejected")
	}
}

func TestPhaseOf(t *testing.T) {
	if PhaseOf(session.State{IsLoading: true}) != Unknown {
		t.Fatal("expected Unknown while loading")
	}
	if PhaseOf(signedIn("u1")) != Authenticated {
		t.Fatal("expected Authenticated")
	}
	if PhaseOf(session.State{}) != Unauthenticated {
		t.Fatal("expected Unauthenticated")
	}
}
