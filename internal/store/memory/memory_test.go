package memory

import (
	"context"
	"testing"

	"github.com/hmans/catalog/internal/library"
	"github.com/hmans/catalog/internal/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) library.Store { return New() })
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	b := storetest.AddBook(t, s, "Refactoring", "Martin Fowler", 1999, "refactoring")
	b.Genres[0] = "mutated"
	b.Author.Name = "mutated"

	books, err := s.FindBooks(ctx, library.BookFilter{})
	if err != nil {
		t.Fatalf("FindBooks() error = %v", err)
	}
	if books[0].Genres[0] != "refactoring" {
		t.Errorf("stored genre = %q, want refactoring", books[0].Genres[0])
	}
	if books[0].Author.Name != "Martin Fowler" {
		t.Errorf("stored author = %q, want Martin Fowler", books[0].Author.Name)
	}
}
