// Package theme holds the four color palettes (dark, amber, emerald, ink)
// and the lipgloss styles the command line client renders with.
package theme
