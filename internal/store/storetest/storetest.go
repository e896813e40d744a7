// Package storetest holds the behavior every library.Store must share.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hmans/catalog/internal/library"
)

// Run exercises a store implementation. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) library.Store) {
	t.Run("EnsureAuthor", func(t *testing.T) { testEnsureAuthor(t, newStore(t)) })
	t.Run("EnsureAuthorConcurrent", func(t *testing.T) { testEnsureAuthorConcurrent(t, newStore(t)) })
	t.Run("SetAuthorBorn", func(t *testing.T) { testSetAuthorBorn(t, newStore(t)) })
	t.Run("Books", func(t *testing.T) { testBooks(t, newStore(t)) })
	t.Run("CountBooksByAuthor", func(t *testing.T) { testCountBooksByAuthor(t, newStore(t)) })
	t.Run("InsertBookUnknownAuthor", func(t *testing.T) { testInsertBookUnknownAuthor(t, newStore(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
}

// AddBook inserts a book for the named author, creating the author if needed.
func AddBook(t *testing.T, s library.Store, title, author string, published int, genres ...string) *library.Book {
	t.Helper()
	ctx := context.Background()

	a, _, err := s.EnsureAuthor(ctx, author)
	if err != nil {
		t.Fatalf("EnsureAuthor(%q) error = %v", author, err)
	}
	b := &library.Book{Title: title, Published: published, Genres: genres, AuthorID: a.ID}
	if err := s.InsertBook(ctx, b); err != nil {
		t.Fatalf("InsertBook(%q) error = %v", title, err)
	}
	return b
}

func testEnsureAuthor(t *testing.T, s library.Store) {
	ctx := context.Background()

	a, created, err := s.EnsureAuthor(ctx, "Robert Martin")
	if err != nil {
		t.Fatalf("EnsureAuthor() error = %v", err)
	}
	if !created {
		t.Error("first EnsureAuthor() created = false, want true")
	}
	if a.ID == "" || a.Name != "Robert Martin" || a.Born != nil {
		t.Errorf("EnsureAuthor() = %+v, want new author with no birth year", a)
	}

	again, created, err := s.EnsureAuthor(ctx, "Robert Martin")
	if err != nil {
		t.Fatalf("second EnsureAuthor() error = %v", err)
	}
	if created {
		t.Error("second EnsureAuthor() created = true, want false")
	}
	if again.ID != a.ID {
		t.Errorf("second EnsureAuthor().ID = %q, want %q", again.ID, a.ID)
	}

	n, err := s.CountAuthors(ctx)
	if err != nil {
		t.Fatalf("CountAuthors() error = %v", err)
	}
	if n != 1 {
		t.Errorf("CountAuthors() = %d, want 1", n)
	}

	found, err := s.FindAuthorByName(ctx, "Robert Martin")
	if err != nil {
		t.Fatalf("FindAuthorByName() error = %v", err)
	}
	if found.ID != a.ID {
		t.Errorf("FindAuthorByName().ID = %q, want %q", found.ID, a.ID)
	}

	if _, err := s.FindAuthorByName(ctx, "Nobody"); !errors.Is(err, library.ErrNotFound) {
		t.Errorf("FindAuthorByName(unknown) error = %v, want ErrNotFound", err)
	}
}

func testEnsureAuthorConcurrent(t *testing.T, s library.Store) {
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	ids := make([]string, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, _, err := s.EnsureAuthor(ctx, "Fyodor Dostoevsky")
			errs[i] = err
			if a != nil {
				ids[i] = a.ID
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d: EnsureAuthor() error = %v", i, err)
		}
		if ids[i] != ids[0] {
			t.Errorf("worker %d got author %q, worker 0 got %q", i, ids[i], ids[0])
		}
	}

	n, err := s.CountAuthors(ctx)
	if err != nil {
		t.Fatalf("CountAuthors() error = %v", err)
	}
	if n != 1 {
		t.Errorf("CountAuthors() = %d, want 1", n)
	}
}

func testSetAuthorBorn(t *testing.T, s library.Store) {
	ctx := context.Background()

	if _, _, err := s.EnsureAuthor(ctx, "Sandi Metz"); err != nil {
		t.Fatalf("EnsureAuthor() error = %v", err)
	}

	a, err := s.SetAuthorBorn(ctx, "Sandi Metz", 1953)
	if err != nil {
		t.Fatalf("SetAuthorBorn() error = %v", err)
	}
	if a.Born == nil || *a.Born != 1953 {
		t.Errorf("SetAuthorBorn().Born = %v, want 1953", a.Born)
	}

	found, err := s.FindAuthorByName(ctx, "Sandi Metz")
	if err != nil {
		t.Fatalf("FindAuthorByName() error = %v", err)
	}
	if found.Born == nil || *found.Born != 1953 {
		t.Errorf("stored Born = %v, want 1953", found.Born)
	}

	if _, err := s.SetAuthorBorn(ctx, "Nobody", 1900); !errors.Is(err, library.ErrNotFound) {
		t.Errorf("SetAuthorBorn(unknown) error = %v, want ErrNotFound", err)
	}
}

func testBooks(t *testing.T, s library.Store) {
	ctx := context.Background()

	clean := AddBook(t, s, "Clean Code", "Robert Martin", 2008, "refactoring")
	if clean.ID == "" {
		t.Error("InsertBook() did not assign an ID")
	}
	if clean.Author == nil || clean.Author.Name != "Robert Martin" {
		t.Errorf("InsertBook() Author = %+v, want Robert Martin", clean.Author)
	}
	AddBook(t, s, "Agile software development", "Robert Martin", 2002, "agile", "patterns", "design")
	AddBook(t, s, "Crime and punishment", "Fyodor Dostoevsky", 1866, "classic", "crime")

	n, err := s.CountBooks(ctx)
	if err != nil {
		t.Fatalf("CountBooks() error = %v", err)
	}
	if n != 3 {
		t.Errorf("CountBooks() = %d, want 3", n)
	}

	all, err := s.FindBooks(ctx, library.BookFilter{})
	if err != nil {
		t.Fatalf("FindBooks() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("FindBooks() count = %d, want 3", len(all))
	}
	if all[0].Title != "Clean Code" || all[2].Title != "Crime and punishment" {
		t.Errorf("FindBooks() order = %q..%q, want insertion order", all[0].Title, all[2].Title)
	}
	for _, b := range all {
		if b.Author == nil {
			t.Errorf("book %q has no author populated", b.Title)
		}
	}
	agile := all[1]
	if len(agile.Genres) != 3 || agile.Genres[0] != "agile" || agile.Genres[2] != "design" {
		t.Errorf("Genres = %v, want [agile patterns design]", agile.Genres)
	}

	martin, err := s.FindAuthorByName(ctx, "Robert Martin")
	if err != nil {
		t.Fatalf("FindAuthorByName() error = %v", err)
	}

	tests := []struct {
		name   string
		filter library.BookFilter
		want   int
	}{
		{"by author", library.BookFilter{AuthorID: martin.ID}, 2},
		{"by genre", library.BookFilter{Genre: "crime"}, 1},
		{"by author and genre", library.BookFilter{AuthorID: martin.ID, Genre: "agile"}, 1},
		{"by author and foreign genre", library.BookFilter{AuthorID: martin.ID, Genre: "crime"}, 0},
		{"by ids", library.BookFilter{IDs: []string{clean.ID}}, 1},
		{"unknown genre", library.BookFilter{Genre: "poetry"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindBooks(ctx, tt.filter)
			if err != nil {
				t.Fatalf("FindBooks() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("FindBooks() count = %d, want %d", len(got), tt.want)
			}
		})
	}

	authors, err := s.FindAuthors(ctx)
	if err != nil {
		t.Fatalf("FindAuthors() error = %v", err)
	}
	if len(authors) != 2 {
		t.Errorf("FindAuthors() count = %d, want 2", len(authors))
	}
}

func testCountBooksByAuthor(t *testing.T, s library.Store) {
	ctx := context.Background()

	clean := AddBook(t, s, "Clean Code", "Robert Martin", 2008)
	AddBook(t, s, "Agile software development", "Robert Martin", 2002)
	crime := AddBook(t, s, "Crime and punishment", "Fyodor Dostoevsky", 1866)
	metz, _, err := s.EnsureAuthor(ctx, "Sandi Metz")
	if err != nil {
		t.Fatalf("EnsureAuthor() error = %v", err)
	}

	tests := []struct {
		name     string
		authorID string
		want     int
	}{
		{"two books", clean.AuthorID, 2},
		{"one book", crime.AuthorID, 1},
		{"no books", metz.ID, 0},
		{"unknown author", "nope", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := s.CountBooksByAuthor(ctx, tt.authorID)
			if err != nil {
				t.Fatalf("CountBooksByAuthor() error = %v", err)
			}
			if n != tt.want {
				t.Errorf("CountBooksByAuthor() = %d, want %d", n, tt.want)
			}
		})
	}
}

func testInsertBookUnknownAuthor(t *testing.T, s library.Store) {
	ctx := context.Background()

	err := s.InsertBook(ctx, &library.Book{Title: "Orphan", Published: 2000, AuthorID: "missing"})
	if err == nil {
		t.Fatal("InsertBook() with unknown author succeeded, want error")
	}

	n, err := s.CountBooks(ctx)
	if err != nil {
		t.Fatalf("CountBooks() error = %v", err)
	}
	if n != 0 {
		t.Errorf("CountBooks() = %d, want 0", n)
	}
}

func testUsers(t *testing.T, s library.Store) {
	ctx := context.Background()

	u := &library.User{Username: "mluukkai", FavoriteGenre: "refactoring", PasswordHash: "hash"}
	if err := s.InsertUser(ctx, u); err != nil {
		t.Fatalf("InsertUser() error = %v", err)
	}
	if u.ID == "" {
		t.Error("InsertUser() did not assign an ID")
	}

	dup := &library.User{Username: "mluukkai", FavoriteGenre: "crime"}
	if err := s.InsertUser(ctx, dup); !errors.Is(err, library.ErrDuplicate) {
		t.Errorf("InsertUser(duplicate) error = %v, want ErrDuplicate", err)
	}

	byName, err := s.FindUserByUsername(ctx, "mluukkai")
	if err != nil {
		t.Fatalf("FindUserByUsername() error = %v", err)
	}
	if byName.ID != u.ID || byName.FavoriteGenre != "refactoring" || byName.PasswordHash != "hash" {
		t.Errorf("FindUserByUsername() = %+v, want %+v", byName, u)
	}

	byID, err := s.FindUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("FindUserByID() error = %v", err)
	}
	if byID.Username != "mluukkai" {
		t.Errorf("FindUserByID().Username = %q, want mluukkai", byID.Username)
	}

	if _, err := s.FindUserByUsername(ctx, "nobody"); !errors.Is(err, library.ErrNotFound) {
		t.Errorf("FindUserByUsername(unknown) error = %v, want ErrNotFound", err)
	}
	if _, err := s.FindUserByID(ctx, "nope"); !errors.Is(err, library.ErrNotFound) {
		t.Errorf("FindUserByID(unknown) error = %v, want ErrNotFound", err)
	}
}
