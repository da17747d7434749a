package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/MrEthical07/notees/posts"
	"github.com/MrEthical07/notees/session"
	"github.com/MrEthical07/notees/theme"
)

func renderPost(st theme.Styles, p posts.Post) string {
	lines := []string{
		st.Title.Render(p.Title),
		st.Text.Render(p.Description),
	}
	if p.HasMedia() {
		kind := string(p.MediaType)
		if kind == "" {
			kind = "media"
		}
		lines = append(lines, st.Badge.Render(kind)+" "+st.Muted.Render(p.MediaURL))
	}
	meta := p.ID
	if !p.CreatedAt.IsZero() {
		meta = p.CreatedAt.Local().Format("Jan 2, 2006 15:04") + "  " + meta
	}
	lines = append(lines, st.Muted.Render(meta))
	return st.Card.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderFeed(st theme.Styles, list []posts.Post) string {
	var b strings.Builder
	b.WriteString(st.Title.Render("My Notes"))
	b.WriteString("\n")
	b.WriteString(st.Subtitle.Render("Capture your thoughts"))
	b.WriteString("\n\n")
	if len(list) == 0 {
		b.WriteString(st.Text.Render("No notes yet"))
		b.WriteString("\n")
		b.WriteString(st.Muted.Render("Create your first note with `notees posts create`."))
		b.WriteString("\n")
		return b.String()
	}
	for _, p := range list {
		b.WriteString(renderPost(st, p))
		b.WriteString("\n")
	}
	return b.String()
}

func renderWhoami(st theme.Styles, state session.State, now time.Time) string {
	if !state.Authenticated() {
		return st.Muted.Render("Not signed in.") + "\n"
	}
	lines := []string{
		st.Label.Render("email") + "  " + st.Text.Render(state.User.Email),
		st.Label.Render("user id") + "  " + st.Text.Render(state.User.ID),
	}
	if name, ok := state.User.Metadata["full_name"].(string); ok && name != "" {
		lines = append(lines, st.Label.Render("name")+"  "+st.Text.Render(name))
	}
	if s := state.Session; s != nil && !s.ExpiresAt.IsZero() {
		left := s.ExpiresAt.Sub(now).Round(time.Second)
		status := fmt.Sprintf("expires in %s", left)
		if left <= 0 {
			status = "expired, refreshes on next use"
		}
		lines = append(lines, st.Label.Render("token")+"  "+st.Muted.Render(status))
	}
	return strings.Join(lines, "\n") + "\n"
}
