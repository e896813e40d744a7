package search

import (
	"testing"

	"github.com/hmans/catalog/internal/library"
)

func setupIndex(t *testing.T, books ...*library.Book) *Index {
	t.Helper()
	idx, err := NewIndex()
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	if err := idx.IndexBooks(books); err != nil {
		t.Fatalf("IndexBooks() error = %v", err)
	}
	return idx
}

func book(id, title, author string, genres ...string) *library.Book {
	return &library.Book{
		ID:        id,
		Title:     title,
		Published: 1900,
		Genres:    genres,
		Author:    &library.Author{Name: author},
	}
}

func TestSearch(t *testing.T) {
	idx := setupIndex(t,
		book("b1", "Clean Code", "Robert Martin", "refactoring"),
		book("b2", "Refactoring, edition 2", "Martin Fowler", "refactoring"),
		book("b3", "Crime and punishment", "Fyodor Dostoevsky", "classic", "crime"),
		book("b4", "The Demon", "Fyodor Dostoevsky", "classic", "revolution"),
	)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"title word", "punishment", []string{"b3"}},
		{"title word case insensitive", "DEMON", []string{"b4"}},
		{"author field", "author:dostoevsky", []string{"b3", "b4"}},
		{"genre field", "genres:revolution", []string{"b4"}},
		{"no match", "zzzzzz", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := idx.Search(tt.query, 0)
			if err != nil {
				t.Fatalf("Search(%q) error = %v", tt.query, err)
			}
			if !sameIDs(got, tt.want) {
				t.Errorf("Search(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestSearchLimit(t *testing.T) {
	idx := setupIndex(t,
		book("b1", "Crime one", "Anna Author"),
		book("b2", "Crime two", "Anna Author"),
		book("b3", "Crime three", "Anna Author"),
	)

	got, err := idx.Search("crime", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len(Search()) = %d, want 2", len(got))
	}
}

func TestIndexBookUpdates(t *testing.T) {
	idx := setupIndex(t)

	if err := idx.IndexBook(book("b1", "Old Title", "Some Author")); err != nil {
		t.Fatalf("IndexBook() error = %v", err)
	}
	if err := idx.IndexBook(book("b1", "New Title", "Some Author")); err != nil {
		t.Fatalf("IndexBook() error = %v", err)
	}

	n, err := idx.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}

	got, _ := idx.Search("old", 0)
	if len(got) != 0 {
		t.Errorf("Search(old) = %v, want none", got)
	}
	got, _ = idx.Search("new", 0)
	if !sameIDs(got, []string{"b1"}) {
		t.Errorf("Search(new) = %v, want [b1]", got)
	}
}

func sameIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	seen := make(map[string]bool, len(got))
	for _, id := range got {
		seen[id] = true
	}
	for _, id := range want {
		if !seen[id] {
			return false
		}
	}
	return true
}
