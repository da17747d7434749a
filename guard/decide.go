package guard

import (
	"errors"
	"strings"

	"github.com/MrEthical07/notees/nav"
	"github.com/MrEthical07/notees/session"
)

// Routes names the locations the guard reasons about.
type Routes struct {
	// AuthArea is the prefix of screens reachable without a session.
	AuthArea string `yaml:"auth_area" env:"AUTH_AREA"`
	// Login is where signed-out users are sent.
	Login string `yaml:"login" env:"LOGIN"`
	// Signup is the registration screen inside the auth area.
	Signup string `yaml:"signup" env:"SIGNUP"`
	// Home is the default landing location for signed-in users.
	Home string `yaml:"home" env:"HOME"`
}

// DefaultRoutes returns the standard screen layout.
func DefaultRoutes() Routes {
	return Routes{
		AuthArea: "/auth",
		Login:    "/auth/login",
		Signup:   "/auth/signup",
		Home:     "/app/home",
	}
}

// Validate rejects layouts that would make the guard redirect forever.
func (r Routes) Validate() error {
	if r.AuthArea == "" || r.AuthArea == "/" {
		return errors.New("guard: AuthArea must be a non-root prefix")
	}
	if !r.InAuthArea(r.Login) {
		return errors.New("guard: Login must be inside AuthArea")
	}
	if r.Signup != "" && !r.InAuthArea(r.Signup) {
		return errors.New("guard: Signup must be inside AuthArea")
	}
	if r.Home == "" || r.InAuthArea(r.Home) {
		return errors.New("guard: Home must be outside AuthArea")
	}
	return nil
}

// InAuthArea reports whether loc is the auth area itself or below it.
func (r Routes) InAuthArea(loc string) bool {
	area := nav.Clean(r.AuthArea)
	loc = nav.Clean(loc)
	return loc == area || strings.HasPrefix(loc, area+"/")
}

// Kind is the type of guard action.
type Kind int

const (
	// None leaves the location as it is.
	None Kind = iota
	// Redirect replaces the location with Action.Target.
	Redirect
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Redirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Action is the outcome of [Decide].
type Action struct {
	Kind   Kind
	Target string
}

// Decide evaluates the guard rule:
//
//  1. loading: None
//  2. signed in and inside the auth area: Redirect to Home
//  3. signed out and outside the auth area: Redirect to Login
//  4. otherwise: None
func Decide(state session.State, location string, routes Routes) Action {
	if state.IsLoading {
		return Action{Kind: None}
	}

	inAuth := routes.InAuthArea(location)
	switch {
	case state.User != nil && inAuth:
		return Action{Kind: Redirect, Target: nav.Clean(routes.Home)}
	case state.User == nil && !inAuth:
		return Action{Kind: Redirect, Target: nav.Clean(routes.Login)}
	default:
		return Action{Kind: None}
	}
}

// Phase is the guard's view of the session lifecycle.
type Phase int

const (
	// Unknown is the initial phase while the session resolves.
	Unknown Phase = iota
	Authenticated
	Unauthenticated
)

func (p Phase) String() string {
	switch p {
	case Unknown:
		return "unknown"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "invalid"
	}
}

// PhaseOf maps a snapshot to its phase.
func PhaseOf(state session.State) Phase {
	switch {
	case state.IsLoading:
		return Unknown
	case state.User != nil:
		return Authenticated
	default:
		return Unauthenticated
	}
}
