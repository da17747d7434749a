package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles are the lipgloss styles derived from a Theme.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Label    lipgloss.Style
	Text     lipgloss.Style
	Muted    lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Button   lipgloss.Style
	Card     lipgloss.Style
	Badge    lipgloss.Style
	Input    lipgloss.Style
}

func (t Theme) Styles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(t.Heading),
		Subtitle: lipgloss.NewStyle().Foreground(t.Muted),
		Label:    lipgloss.NewStyle().Bold(true).Foreground(t.Accent).Transform(upper),
		Text:     lipgloss.NewStyle().Foreground(t.Text),
		Muted:    lipgloss.NewStyle().Foreground(t.Muted),
		Error:    lipgloss.NewStyle().Bold(true).Foreground(t.Danger),
		Success:  lipgloss.NewStyle().Foreground(t.Accent),
		Button: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.OnAccent).
			Background(t.Accent).
			Padding(0, 2),
		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 1),
		Badge: lipgloss.NewStyle().
			Foreground(t.Heading).
			Background(t.Highlight).
			Padding(0, 1),
		Input: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(t.Border).
			Foreground(t.Text),
	}
}

func upper(s string) string {
	return strings.ToUpper(s)
}
