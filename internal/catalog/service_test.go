package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hmans/catalog/internal/auth"
	"github.com/hmans/catalog/internal/library"
	"github.com/hmans/catalog/internal/pubsub"
	"github.com/hmans/catalog/internal/store/memory"
)

func setupTestService(t *testing.T) (*Service, *pubsub.Bus[*library.Book]) {
	t.Helper()
	tokens, err := auth.NewTokens("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokens() error = %v", err)
	}
	events := pubsub.New[*library.Book]()
	t.Cleanup(events.Close)

	svc, err := New(memory.New(), events, tokens)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc, events
}

func addBook(t *testing.T, svc *Service, title, author string, genres ...string) *library.Book {
	t.Helper()
	b, err := svc.AddBook(context.Background(), NewBook{
		Title:     title,
		Author:    author,
		Published: 2000,
		Genres:    genres,
	})
	if err != nil {
		t.Fatalf("AddBook(%q) error = %v", title, err)
	}
	return b
}

func TestAddBook(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	b := addBook(t, svc, "Clean Code", "Robert Martin", "refactoring")
	if b.ID == "" {
		t.Error("ID is empty")
	}
	if b.Author == nil || b.Author.Name != "Robert Martin" {
		t.Errorf("Author = %+v, want Robert Martin", b.Author)
	}

	books, err := svc.Books(ctx, "", "")
	if err != nil {
		t.Fatalf("Books() error = %v", err)
	}
	if len(books) != 1 || books[0].Title != "Clean Code" {
		t.Fatalf("Books() = %+v, want Clean Code", books)
	}
	if books[0].Author.Name != "Robert Martin" {
		t.Errorf("Author.Name = %q, want Robert Martin", books[0].Author.Name)
	}
}

func TestAddBookReusesAuthor(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	first := addBook(t, svc, "Crime and punishment", "Fyodor Dostoevsky")
	if n, _ := svc.AuthorCount(ctx); n != 1 {
		t.Fatalf("AuthorCount() = %d, want 1", n)
	}

	second := addBook(t, svc, "The Demon", "Fyodor Dostoevsky")
	if n, _ := svc.AuthorCount(ctx); n != 1 {
		t.Errorf("AuthorCount() = %d after second book, want 1", n)
	}
	if first.Author.ID != second.Author.ID {
		t.Errorf("author IDs differ: %s vs %s", first.Author.ID, second.Author.ID)
	}
}

func TestAddBookValidation(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		author    string
		wantField string
	}{
		{"title of 4", "Abcd", "Anna Author", "title"},
		{"title of 5", "Abcde", "Anna Author", ""},
		{"author of 3", "Valid title", "Ann", "author"},
		{"author of 4", "Valid title", "Anna", ""},
		{"multibyte title of 5", "Ääöüß", "Anna", ""},
		{"empty title", "", "Anna", "title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := setupTestService(t)
			ctx := context.Background()

			_, err := svc.AddBook(ctx, NewBook{Title: tt.title, Author: tt.author, Published: 1999})

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("AddBook() error = %v", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("AddBook() error = %v, want ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
			wantValue := tt.title
			if tt.wantField == "author" {
				wantValue = tt.author
			}
			if verr.Value != wantValue {
				t.Errorf("Value = %q, want %q", verr.Value, wantValue)
			}

			if n, _ := svc.BookCount(ctx); n != 0 {
				t.Errorf("BookCount() = %d after failed add, want 0", n)
			}
			if n, _ := svc.AuthorCount(ctx); n != 0 {
				t.Errorf("AuthorCount() = %d after failed add, want 0", n)
			}
		})
	}
}

func TestAddBookValidationMessages(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	_, err := svc.AddBook(ctx, NewBook{Title: "abc", Author: "Anna Author"})
	if err == nil || !strings.Contains(err.Error(), "at least 5 characters") {
		t.Errorf("title error = %v, want mention of 5 characters", err)
	}
	_, err = svc.AddBook(ctx, NewBook{Title: "Valid title", Author: "Ann"})
	if err == nil || !strings.Contains(err.Error(), "at least 4 characters") {
		t.Errorf("author error = %v, want mention of 4 characters", err)
	}
}

func TestAddBookPublishes(t *testing.T) {
	svc, events := setupTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch1 := events.Subscribe(ctx, TopicBookAdded)
	ch2 := events.Subscribe(ctx, TopicBookAdded)

	b := addBook(t, svc, "Refactoring, edition 2", "Martin Fowler", "refactoring")

	for i, ch := range []<-chan *library.Book{ch1, ch2} {
		select {
		case got := <-ch:
			if got.ID != b.ID {
				t.Errorf("subscriber %d got book %s, want %s", i, got.ID, b.ID)
			}
			if got.Author == nil || got.Author.Name != "Martin Fowler" {
				t.Errorf("subscriber %d got author %+v, want Martin Fowler", i, got.Author)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d received nothing", i)
		}
	}
}

func TestBooksFilters(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	addBook(t, svc, "Clean Code", "Robert Martin", "refactoring")
	addBook(t, svc, "Agile software development", "Robert Martin", "agile", "patterns", "design")
	addBook(t, svc, "Refactoring, edition 2", "Martin Fowler", "refactoring")
	addBook(t, svc, "The Demon", "Fyodor Dostoevsky", "classic", "revolution")

	tests := []struct {
		name   string
		author string
		genre  string
		want   []string
	}{
		{"all", "", "", []string{"Clean Code", "Agile software development", "Refactoring, edition 2", "The Demon"}},
		{"author only", "Robert Martin", "", []string{"Clean Code", "Agile software development"}},
		{"genre only", "", "refactoring", []string{"Clean Code", "Refactoring, edition 2"}},
		{"author and genre", "Robert Martin", "refactoring", []string{"Clean Code"}},
		{"unknown author", "Nobody Here", "", []string{}},
		{"unknown author with genre", "Nobody Here", "refactoring", []string{}},
		{"unknown genre", "", "poetry", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			books, err := svc.Books(ctx, tt.author, tt.genre)
			if err != nil {
				t.Fatalf("Books() error = %v", err)
			}
			if books == nil {
				t.Fatal("Books() = nil, want empty slice")
			}
			got := make([]string, len(books))
			for i, b := range books {
				got[i] = b.Title
				if b.Author == nil {
					t.Errorf("book %q has no author", b.Title)
				}
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("Books() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthorsBookCount(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	addBook(t, svc, "Clean Code", "Robert Martin")
	addBook(t, svc, "Agile software development", "Robert Martin")
	addBook(t, svc, "Refactoring, edition 2", "Martin Fowler")
	if _, _, err := svc.Store().EnsureAuthor(ctx, "Joshua Kerievsky"); err != nil {
		t.Fatalf("EnsureAuthor() error = %v", err)
	}

	authors, err := svc.Authors(ctx)
	if err != nil {
		t.Fatalf("Authors() error = %v", err)
	}

	want := map[string]int{
		"Robert Martin":    2,
		"Martin Fowler":    1,
		"Joshua Kerievsky": 0,
	}
	if len(authors) != len(want) {
		t.Fatalf("len(Authors()) = %d, want %d", len(authors), len(want))
	}
	for _, a := range authors {
		if a.BookCount == nil || *a.BookCount != want[a.Name] {
			t.Errorf("%s BookCount = %v, want %d", a.Name, a.BookCount, want[a.Name])
		}
	}
}

func TestAuthorBookCount(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	addBook(t, svc, "Clean Code", "Robert Martin")
	addBook(t, svc, "Agile software development", "Robert Martin")
	addBook(t, svc, "Refactoring, edition 2", "Martin Fowler")

	martin, err := svc.Store().FindAuthorByName(ctx, "Robert Martin")
	if err != nil {
		t.Fatalf("FindAuthorByName() error = %v", err)
	}
	if martin.BookCount != nil {
		t.Fatalf("stored BookCount = %d, want nil", *martin.BookCount)
	}
	n, err := svc.AuthorBookCount(ctx, martin)
	if err != nil {
		t.Fatalf("AuthorBookCount() error = %v", err)
	}
	if n != 2 {
		t.Errorf("AuthorBookCount() = %d, want 2", n)
	}

	precomputed := 7
	martin.BookCount = &precomputed
	if n, _ := svc.AuthorBookCount(ctx, martin); n != 7 {
		t.Errorf("AuthorBookCount(precomputed) = %d, want 7", n)
	}
}

func TestEditAuthor(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	addBook(t, svc, "Clean Code", "Robert Martin")

	a, err := svc.EditAuthor(ctx, "Robert Martin", 1952)
	if err != nil {
		t.Fatalf("EditAuthor() error = %v", err)
	}
	if a == nil || a.Born == nil || *a.Born != 1952 {
		t.Fatalf("EditAuthor() = %+v, want born 1952", a)
	}

	a, err = svc.EditAuthor(ctx, "Nobody Here", 1900)
	if err != nil {
		t.Fatalf("EditAuthor(unknown) error = %v", err)
	}
	if a != nil {
		t.Errorf("EditAuthor(unknown) = %+v, want nil", a)
	}
	if n, _ := svc.AuthorCount(ctx); n != 1 {
		t.Errorf("AuthorCount() = %d, want 1", n)
	}
}

func TestCreateUser(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, "mluukkai", "refactoring", "secret")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if u.ID == "" || u.Username != "mluukkai" || u.FavoriteGenre != "refactoring" {
		t.Errorf("CreateUser() = %+v", u)
	}
	if u.PasswordHash == "" || u.PasswordHash == "secret" {
		t.Errorf("PasswordHash = %q, want bcrypt hash", u.PasswordHash)
	}

	_, err = svc.CreateUser(ctx, "mluukkai", "crime", "")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("duplicate CreateUser() error = %v, want ValidationError", err)
	}
	if verr.Value != "mluukkai" {
		t.Errorf("Value = %q, want mluukkai", verr.Value)
	}
	if !errors.Is(err, library.ErrDuplicate) {
		t.Errorf("error %v does not wrap ErrDuplicate", err)
	}
}

func TestCreateUserEmptyUsername(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := svc.CreateUser(context.Background(), "", "crime", "")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("CreateUser(\"\") error = %v, want ValidationError", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, "mluukkai", "refactoring", "secret")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if _, err := svc.CreateUser(ctx, "nopass", "crime", ""); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	token, err := svc.Login(ctx, "mluukkai", "secret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	claims, err := svc.tokens.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.UserID != u.ID || claims.Username != "mluukkai" {
		t.Errorf("claims = %+v, want user %s", claims, u.ID)
	}

	_, wrongPassword := svc.Login(ctx, "mluukkai", "wrong")
	_, unknownUser := svc.Login(ctx, "nobody", "secret")
	_, noPassword := svc.Login(ctx, "nopass", "")

	for name, err := range map[string]error{
		"wrong password": wrongPassword,
		"unknown user":   unknownUser,
		"no password":    noPassword,
	} {
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("%s: error = %v, want ErrInvalidCredentials", name, err)
		}
	}
	if wrongPassword.Error() != unknownUser.Error() {
		t.Errorf("messages differ: %q vs %q", wrongPassword, unknownUser)
	}
}

func TestSearchBooks(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	addBook(t, svc, "Crime and punishment", "Fyodor Dostoevsky", "classic", "crime")
	addBook(t, svc, "Clean Code", "Robert Martin", "refactoring")

	books, err := svc.SearchBooks(ctx, "punishment", 0)
	if err != nil {
		t.Fatalf("SearchBooks() error = %v", err)
	}
	if len(books) != 1 || books[0].Title != "Crime and punishment" {
		t.Fatalf("SearchBooks() = %+v, want Crime and punishment", books)
	}
	if books[0].Author == nil || books[0].Author.Name != "Fyodor Dostoevsky" {
		t.Errorf("Author = %+v", books[0].Author)
	}

	books, err = svc.SearchBooks(ctx, "nothingmatches", 0)
	if err != nil {
		t.Fatalf("SearchBooks() error = %v", err)
	}
	if books == nil || len(books) != 0 {
		t.Errorf("SearchBooks(no match) = %v, want empty slice", books)
	}
}

func TestReindex(t *testing.T) {
	tokens, _ := auth.NewTokens("test-secret", time.Hour)
	events := pubsub.New[*library.Book]()
	defer events.Close()
	store := memory.New()

	first, err := New(store, events, tokens)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	addBook(t, first, "Clean Code", "Robert Martin")
	first.Close()

	// A fresh service over the same store starts with an empty index
	second, err := New(store, events, tokens)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer second.Close()
	ctx := context.Background()

	if books, _ := second.SearchBooks(ctx, "clean", 0); len(books) != 0 {
		t.Fatalf("SearchBooks() before Reindex = %d books, want 0", len(books))
	}

	n, err := second.Reindex(ctx)
	if err != nil {
		t.Fatalf("Reindex() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Reindex() = %d, want 1", n)
	}
	if books, _ := second.SearchBooks(ctx, "clean", 0); len(books) != 1 {
		t.Errorf("SearchBooks() after Reindex = %d books, want 1", len(books))
	}
}
