package theme

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is a color palette. Themes differ only in presentation; every
// screen renders the same content under any of them.
type Theme struct {
	Name string

	Text      lipgloss.Color
	Muted     lipgloss.Color
	Heading   lipgloss.Color
	Accent    lipgloss.Color
	OnAccent  lipgloss.Color
	Surface   lipgloss.Color
	Border    lipgloss.Color
	Danger    lipgloss.Color
	Highlight lipgloss.Color
}

// Dark is the neutral gray palette of the tab screens and modals.
var Dark = Theme{
	Name:      "dark",
	Text:      lipgloss.Color("#e5e7eb"),
	Muted:     lipgloss.Color("#9ca3af"),
	Heading:   lipgloss.Color("#f9fafb"),
	Accent:    lipgloss.Color("#2563eb"),
	OnAccent:  lipgloss.Color("#ffffff"),
	Surface:   lipgloss.Color("#1f2937"),
	Border:    lipgloss.Color("#4b5563"),
	Danger:    lipgloss.Color("#dc2626"),
	Highlight: lipgloss.Color("#374151"),
}

// Amber is the warm palette of the home feed.
var Amber = Theme{
	Name:      "amber",
	Text:      lipgloss.Color("#374151"),
	Muted:     lipgloss.Color("#6b7280"),
	Heading:   lipgloss.Color("#78350f"),
	Accent:    lipgloss.Color("#d97706"),
	OnAccent:  lipgloss.Color("#ffffff"),
	Surface:   lipgloss.Color("#fffbeb"),
	Border:    lipgloss.Color("#fde68a"),
	Danger:    lipgloss.Color("#dc2626"),
	Highlight: lipgloss.Color("#fef3c7"),
}

// Emerald is the palette of the sign-in and sign-up screens.
var Emerald = Theme{
	Name:      "emerald",
	Text:      lipgloss.Color("#064e3b"),
	Muted:     lipgloss.Color("#059669"),
	Heading:   lipgloss.Color("#064e3b"),
	Accent:    lipgloss.Color("#059669"),
	OnAccent:  lipgloss.Color("#ffffff"),
	Surface:   lipgloss.Color("#ecfdf5"),
	Border:    lipgloss.Color("#a7f3d0"),
	Danger:    lipgloss.Color("#dc2626"),
	Highlight: lipgloss.Color("#d1fae5"),
}

// Ink is the low-contrast zinc palette of form inputs.
var Ink = Theme{
	Name:      "ink",
	Text:      lipgloss.Color("#18181b"),
	Muted:     lipgloss.Color("#a1a1aa"),
	Heading:   lipgloss.Color("#09090b"),
	Accent:    lipgloss.Color("#3f3f46"),
	OnAccent:  lipgloss.Color("#fafafa"),
	Surface:   lipgloss.Color("#fafafa"),
	Border:    lipgloss.Color("#f4f4f5"),
	Danger:    lipgloss.Color("#dc2626"),
	Highlight: lipgloss.Color("#f4f4f5"),
}

var registry = map[string]Theme{
	Dark.Name:    Dark,
	Amber.Name:   Amber,
	Emerald.Name: Emerald,
	Ink.Name:     Ink,
}

// Names lists the built-in themes in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the built-in theme called name, ignoring case.
func Lookup(name string) (Theme, error) {
	t, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Theme{}, fmt.Errorf("theme: unknown theme %q (want one of %s)", name, strings.Join(Names(), ", "))
	}
	return t, nil
}

// ForLocation picks the palette a screen uses by default: Emerald inside the
// auth area, Amber on home and Dark elsewhere.
func ForLocation(location, authArea, home string) Theme {
	switch {
	case location == authArea || strings.HasPrefix(location, strings.TrimSuffix(authArea, "/")+"/"):
		return Emerald
	case location == home:
		return Amber
	default:
		return Dark
	}
}
