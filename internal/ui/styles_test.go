package ui

import (
	"errors"
	"strings"
	"testing"

	"github.com/hmans/catalog/internal/library"
)

func TestRenderBook(t *testing.T) {
	b := &library.Book{
		ID:        "abc123",
		Title:     "The Demon",
		Published: 1872,
		Genres:    []string{"classic", "revolution"},
		Author:    &library.Author{Name: "Fyodor Dostoevsky"},
	}

	got := RenderBook(b)
	for _, want := range []string{"abc123", "The Demon", "1872", "Fyodor Dostoevsky", "classic", "revolution"} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderBook() = %q, missing %q", got, want)
		}
	}
}

func TestRenderBookWithoutAuthorOrGenres(t *testing.T) {
	got := RenderBook(&library.Book{ID: "x", Title: "Untitled", Published: 2000})
	if strings.Contains(got, " by ") {
		t.Errorf("RenderBook() = %q, want no author part", got)
	}
}

func TestRenderUser(t *testing.T) {
	got := RenderUser(&library.User{ID: "u1", Username: "mluukkai", FavoriteGenre: "refactoring"})
	for _, want := range []string{"u1", "mluukkai", "refactoring"} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderUser() = %q, missing %q", got, want)
		}
	}
}

func TestRenderImportSummary(t *testing.T) {
	failed := errors.New("bad front matter")
	tests := []struct {
		name     string
		imported int
		err      error
		want     string
		style    string
	}{
		{"clean import", 3, nil, "Imported 3 book(s)", Success.Render("Imported 3 book(s)")},
		{"partial import", 2, failed, "Imported 2 book(s) before stopping", Warning.Render("Imported 2 book(s) before stopping")},
		{"nothing imported", 0, failed, "Imported 0 book(s)", Danger.Render("Imported 0 book(s)")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderImportSummary(tt.imported, tt.err)
			if !strings.Contains(got, tt.want) {
				t.Errorf("RenderImportSummary() = %q, missing %q", got, tt.want)
			}
			if got != tt.style {
				t.Errorf("RenderImportSummary() = %q, want %q", got, tt.style)
			}
		})
	}
}
