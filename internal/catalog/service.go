// Package catalog implements the library operations behind the GraphQL API:
// listing books and authors, adding books, editing authors, registering users
// and logging them in.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/hmans/catalog/internal/auth"
	"github.com/hmans/catalog/internal/library"
	"github.com/hmans/catalog/internal/pubsub"
	"github.com/hmans/catalog/internal/search"
)

// TopicBookAdded is the bus topic every added book is published on.
const TopicBookAdded = "BOOK_ADDED"

const (
	minTitleLength  = 5
	minAuthorLength = 4
)

// Service runs catalog operations against a store.
type Service struct {
	store  library.Store
	events *pubsub.Bus[*library.Book]
	tokens *auth.Tokens
	index  *search.Index
	logger *slog.Logger
}

// New creates a service with an empty search index. Call Reindex to fill it
// from an existing store.
func New(store library.Store, events *pubsub.Bus[*library.Book], tokens *auth.Tokens) (*Service, error) {
	idx, err := search.NewIndex()
	if err != nil {
		return nil, fmt.Errorf("creating search index: %w", err)
	}
	return &Service{
		store:  store,
		events: events,
		tokens: tokens,
		index:  idx,
		logger: slog.Default(),
	}, nil
}

// SetLogger replaces the logger used for non-fatal failures.
func (s *Service) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Store returns the underlying store.
func (s *Service) Store() library.Store {
	return s.store
}

// Close releases the search index. The store is owned by the caller.
func (s *Service) Close() error {
	return s.index.Close()
}

// BookCount returns the total number of books.
func (s *Service) BookCount(ctx context.Context) (int, error) {
	return s.store.CountBooks(ctx)
}

// AuthorCount returns the total number of authors.
func (s *Service) AuthorCount(ctx context.Context) (int, error) {
	return s.store.CountAuthors(ctx)
}

// Books lists books, optionally narrowed to one author's name and one genre.
// An author name that matches no author yields an empty list.
func (s *Service) Books(ctx context.Context, author, genre string) ([]*library.Book, error) {
	filter := library.BookFilter{Genre: genre}
	if author != "" {
		a, err := s.store.FindAuthorByName(ctx, author)
		if errors.Is(err, library.ErrNotFound) {
			return []*library.Book{}, nil
		}
		if err != nil {
			return nil, err
		}
		filter.AuthorID = a.ID
	}
	return s.store.FindBooks(ctx, filter)
}

// Authors lists every author with BookCount filled in from a single scan of
// all books.
func (s *Service) Authors(ctx context.Context) ([]*library.Author, error) {
	authors, err := s.store.FindAuthors(ctx)
	if err != nil {
		return nil, err
	}
	books, err := s.store.FindBooks(ctx, library.BookFilter{})
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(authors))
	for _, b := range books {
		if b.Author != nil {
			counts[b.Author.Name]++
		}
	}
	for _, a := range authors {
		n := counts[a.Name]
		a.BookCount = &n
	}
	return authors, nil
}

// AuthorBookCount returns the number of books by a, using the count Authors
// already computed when there is one.
func (s *Service) AuthorBookCount(ctx context.Context, a *library.Author) (int, error) {
	if a.BookCount != nil {
		return *a.BookCount, nil
	}
	return s.store.CountBooksByAuthor(ctx, a.ID)
}

// NewBook holds the input of AddBook.
type NewBook struct {
	Title     string   `yaml:"title"`
	Author    string   `yaml:"author"`
	Published int      `yaml:"published"`
	Genres    []string `yaml:"genres"`
}

// AddBook validates and stores a book, creating its author if the name is
// new, and publishes it on TopicBookAdded.
//
// An author created before a failing book insert is kept.
func (s *Service) AddBook(ctx context.Context, in NewBook) (*library.Book, error) {
	if utf8.RuneCountInString(in.Title) < minTitleLength {
		return nil, &ValidationError{
			Field:   "title",
			Value:   in.Title,
			Message: fmt.Sprintf("Book title must be at least %d characters long", minTitleLength),
		}
	}
	if utf8.RuneCountInString(in.Author) < minAuthorLength {
		return nil, &ValidationError{
			Field:   "author",
			Value:   in.Author,
			Message: fmt.Sprintf("Author name must be at least %d characters long", minAuthorLength),
		}
	}

	author, created, err := s.store.EnsureAuthor(ctx, in.Author)
	if err != nil {
		return nil, fmt.Errorf("resolving author %q: %w", in.Author, err)
	}
	if created {
		s.logger.Debug("author created", "author", author.Name, "id", author.ID)
	}

	genres := in.Genres
	if genres == nil {
		genres = []string{}
	}
	b := &library.Book{
		Title:     in.Title,
		Published: in.Published,
		Genres:    genres,
		AuthorID:  author.ID,
	}
	if err := s.store.InsertBook(ctx, b); err != nil {
		return nil, fmt.Errorf("saving book %q: %w", in.Title, err)
	}

	if err := s.index.IndexBook(b); err != nil {
		s.logger.Warn("indexing book failed", "book", b.ID, "error", err)
	}

	n := s.events.Publish(TopicBookAdded, b)
	s.logger.Debug("book added", "book", b.ID, "title", b.Title, "subscribers", n)

	return b, nil
}

// EditAuthor sets the birth year of the named author. It returns nil and no
// error when there is no such author.
func (s *Service) EditAuthor(ctx context.Context, name string, born int) (*library.Author, error) {
	a, err := s.store.SetAuthorBorn(ctx, name, born)
	if errors.Is(err, library.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// CreateUser registers a user. password may be empty, in which case the user
// exists but cannot log in. Any failure to store the user is reported as a
// ValidationError on the username.
func (s *Service) CreateUser(ctx context.Context, username, favoriteGenre, password string) (*library.User, error) {
	fail := func(err error) error {
		return &ValidationError{
			Field:   "username",
			Value:   username,
			Message: "Creating the user failed",
			Err:     err,
		}
	}

	if username == "" {
		return nil, fail(errors.New("username must not be empty"))
	}

	u := &library.User{Username: username, FavoriteGenre: favoriteGenre}
	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return nil, fail(err)
		}
		u.PasswordHash = hash
	}

	if err := s.store.InsertUser(ctx, u); err != nil {
		return nil, fail(err)
	}
	return u, nil
}

// Login checks the password of username and returns a signed token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.store.FindUserByUsername(ctx, username)
	if errors.Is(err, library.ErrNotFound) {
		auth.CheckPassword("", password)
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if !auth.CheckPassword(u.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}
	return s.tokens.Issue(u)
}

// SearchBooks runs a full-text query and returns matching books in rank order.
func (s *Service) SearchBooks(ctx context.Context, query string, limit int) ([]*library.Book, error) {
	ids, err := s.index.Search(query, limit)
	if err != nil {
		return nil, &ValidationError{
			Field:   "query",
			Value:   query,
			Message: "Invalid search query",
			Err:     err,
		}
	}
	if len(ids) == 0 {
		return []*library.Book{}, nil
	}

	books, err := s.store.FindBooks(ctx, library.BookFilter{IDs: ids})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*library.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}
	ranked := make([]*library.Book, 0, len(books))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			ranked = append(ranked, b)
		}
	}
	return ranked, nil
}

// Reindex loads every stored book into the search index.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	books, err := s.store.FindBooks(ctx, library.BookFilter{})
	if err != nil {
		return 0, err
	}
	if err := s.index.IndexBooks(books); err != nil {
		return 0, fmt.Errorf("indexing books: %w", err)
	}
	return len(books), nil
}
