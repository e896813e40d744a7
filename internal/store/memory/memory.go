// Package memory implements an in-memory library.Store for development and testing.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/hmans/catalog/internal/library"
)

// Store keeps all records in memory. A single lock guards every collection,
// which also makes EnsureAuthor atomic.
type Store struct {
	mu      sync.RWMutex
	authors []*library.Author
	books   []*library.Book
	users   []*library.User
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

var _ library.Store = (*Store)(nil)

// --- Authors ---

// CountAuthors returns the number of authors.
func (s *Store) CountAuthors(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.authors), nil
}

// FindAuthors returns copies of all authors in creation order.
func (s *Store) FindAuthors(ctx context.Context) ([]*library.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*library.Author, 0, len(s.authors))
	for _, a := range s.authors {
		result = append(result, copyAuthor(a))
	}
	return result, nil
}

// FindAuthorByName returns the author with the given name.
func (s *Store) FindAuthorByName(ctx context.Context, name string) (*library.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a := s.authorByName(name); a != nil {
		return copyAuthor(a), nil
	}
	return nil, library.ErrNotFound
}

// EnsureAuthor finds or creates an author under the write lock.
func (s *Store) EnsureAuthor(ctx context.Context, name string) (*library.Author, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a := s.authorByName(name); a != nil {
		return copyAuthor(a), false, nil
	}

	a := &library.Author{ID: library.NewID(), Name: name}
	s.authors = append(s.authors, a)
	return copyAuthor(a), true, nil
}

// SetAuthorBorn updates an author's birth year.
func (s *Store) SetAuthorBorn(ctx context.Context, name string, born int) (*library.Author, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.authorByName(name)
	if a == nil {
		return nil, library.ErrNotFound
	}
	a.Born = &born
	return copyAuthor(a), nil
}

// authorByName must be called with the lock held.
func (s *Store) authorByName(name string) *library.Author {
	for _, a := range s.authors {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// authorByID must be called with the lock held.
func (s *Store) authorByID(id string) *library.Author {
	for _, a := range s.authors {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// --- Books ---

// CountBooks returns the number of books.
func (s *Store) CountBooks(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books), nil
}

// CountBooksByAuthor returns the number of books by the given author.
func (s *Store) CountBooksByAuthor(ctx context.Context, authorID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, b := range s.books {
		if b.AuthorID == authorID {
			n++
		}
	}
	return n, nil
}

// FindBooks returns matching books with their authors populated.
func (s *Store) FindBooks(ctx context.Context, filter library.BookFilter) ([]*library.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*library.Book{}
	for _, b := range s.books {
		if !filter.Matches(b) {
			continue
		}
		c := copyBook(b)
		if a := s.authorByID(b.AuthorID); a != nil {
			c.Author = copyAuthor(a)
		}
		result = append(result, c)
	}
	return result, nil
}

// InsertBook stores a new book. The referenced author must exist.
func (s *Store) InsertBook(ctx context.Context, b *library.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.authorByID(b.AuthorID)
	if a == nil {
		return fmt.Errorf("author %s: %w", b.AuthorID, library.ErrNotFound)
	}
	if b.ID == "" {
		b.ID = library.NewID()
	}

	stored := copyBook(b)
	stored.Author = nil
	s.books = append(s.books, stored)

	b.Author = copyAuthor(a)
	return nil
}

// --- Users ---

// InsertUser stores a new user, rejecting duplicate usernames.
func (s *Store) InsertUser(ctx context.Context, u *library.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return fmt.Errorf("username %q: %w", u.Username, library.ErrDuplicate)
		}
	}
	if u.ID == "" {
		u.ID = library.NewID()
	}

	stored := *u
	s.users = append(s.users, &stored)
	return nil
}

// FindUserByUsername returns the user with the given username.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (*library.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, library.ErrNotFound
}

// FindUserByID returns the user with the given ID.
func (s *Store) FindUserByID(ctx context.Context, id string) (*library.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, library.ErrNotFound
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func copyAuthor(a *library.Author) *library.Author {
	c := *a
	if a.Born != nil {
		born := *a.Born
		c.Born = &born
	}
	return &c
}

func copyBook(b *library.Book) *library.Book {
	c := *b
	c.Genres = append([]string{}, b.Genres...)
	return &c
}
