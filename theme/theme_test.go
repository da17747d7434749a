package theme

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNames(t *testing.T) {
	if diff := cmp.Diff([]string{"amber", "dark", "emerald", "ink"}, Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestLookup(t *testing.T) {
	got, err := Lookup(" Emerald ")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.Name != "emerald" || got.Accent != Emerald.Accent {
		t.Fatalf("unexpected theme %+v", got)
	}
	if _, err := Lookup("neon"); err == nil || !strings.Contains(err.Error(), "amber, dark, emerald, ink") {
		t.Fatalf("expected unknown theme error listing names, got %v", err)
	}
}

func TestForLocation(t *testing.T) {
	cases := []struct {
		location string
		want     string
	}{
		{"/auth/login", "emerald"},
		{"/auth", "emerald"},
		{"/authors", "dark"},
		{"/app/home", "amber"},
		{"/app/explore", "dark"},
		{"/modal", "dark"},
	}
	for _, tc := range cases {
		if got := ForLocation(tc.location, "/auth", "/app/home"); got.Name != tc.want {
			t.Fatalf("ForLocation(%q) = %s, want %s", tc.location, got.Name, tc.want)
		}
	}
}

func TestStylesRenderContent(t *testing.T) {
	for _, name := range Names() {
		th, _ := Lookup(name)
		s := th.Styles()
		if out := s.Title.Render("Welcome Back"); !strings.Contains(out, "Welcome Back") {
			t.Fatalf("%s: title lost content: %q", name, out)
		}
		if out := s.Label.Render("email"); !strings.Contains(out, "EMAIL") {
			t.Fatalf("%s: label not upper-cased: %q", name, out)
		}
		if out := s.Card.Render("post"); !strings.Contains(out, "post") || strings.Count(out, "\n") < 2 {
			t.Fatalf("%s: card should be boxed: %q", name, out)
		}
	}
}
