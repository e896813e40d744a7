// Package ui holds the lipgloss styles used for CLI output.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hmans/catalog/internal/library"
)

// Color palette
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#6B7280") // Gray
	ColorSuccess   = lipgloss.Color("#10B981") // Green
	ColorWarning   = lipgloss.Color("#F59E0B") // Amber
	ColorDanger    = lipgloss.Color("#EF4444") // Red
	ColorMuted     = lipgloss.Color("#9CA3AF") // Light gray
)

// Text styles
var (
	Muted   = lipgloss.NewStyle().Foreground(ColorMuted)
	Success = lipgloss.NewStyle().Foreground(ColorSuccess)
	Warning = lipgloss.NewStyle().Foreground(ColorWarning)
	Danger  = lipgloss.NewStyle().Foreground(ColorDanger)
)

// ID style for record IDs
var ID = lipgloss.NewStyle().
	Foreground(ColorPrimary).
	Bold(true)

// Title style
var Title = lipgloss.NewStyle().Bold(true)

// Genre tag style
var Genre = lipgloss.NewStyle().
	Foreground(ColorSecondary).
	Italic(true)

// RenderGenres renders genres as a comma-separated tag list.
func RenderGenres(genres []string) string {
	tags := make([]string, len(genres))
	for i, g := range genres {
		tags[i] = Genre.Render(g)
	}
	return strings.Join(tags, Muted.Render(", "))
}

// RenderBook renders a book on one line: ID, title, year, author and genres.
func RenderBook(b *library.Book) string {
	var sb strings.Builder
	sb.WriteString(ID.Render(b.ID))
	sb.WriteString("  ")
	sb.WriteString(Title.Render(b.Title))
	sb.WriteString(Muted.Render(fmt.Sprintf(" (%d)", b.Published)))
	if b.Author != nil {
		sb.WriteString(Muted.Render(" by "))
		sb.WriteString(b.Author.Name)
	}
	if len(b.Genres) > 0 {
		sb.WriteString("  ")
		sb.WriteString(RenderGenres(b.Genres))
	}
	return sb.String()
}

// RenderUser renders a user on one line.
func RenderUser(u *library.User) string {
	return fmt.Sprintf("%s  %s %s",
		ID.Render(u.ID),
		Title.Render(u.Username),
		Muted.Render("(likes "+u.FavoriteGenre+")"),
	)
}

// RenderImportSummary reports how many books an import added. A failed import
// that still added books is a warning; one that added none is an error.
func RenderImportSummary(imported int, err error) string {
	msg := fmt.Sprintf("Imported %d book(s)", imported)
	switch {
	case err == nil:
		return Success.Render(msg)
	case imported > 0:
		return Warning.Render(msg + " before stopping")
	default:
		return Danger.Render(msg)
	}
}
