// Package library defines the catalog records and the persistence port that
// stores implement.
package library

import (
	"context"
	"errors"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewID returns a fresh record identifier.
func NewID() string {
	return gonanoid.MustGenerate(idAlphabet, 16)
}

// Author is identified by its name. BookCount is not stored; it is set by
// read paths that count every author's books in one pass and nil elsewhere.
type Author struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Born      *int   `json:"born"`
	BookCount *int   `json:"bookCount,omitempty"`
}

// Book references its author by ID. Author is populated on every read.
type Book struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Published int      `json:"published"`
	Genres    []string `json:"genres"`
	AuthorID  string   `json:"-"`
	Author    *Author  `json:"author"`
}

// HasGenre reports whether genre is one of the book's genres.
func (b *Book) HasGenre(genre string) bool {
	for _, g := range b.Genres {
		if g == genre {
			return true
		}
	}
	return false
}

// User is a registered account. PasswordHash is empty for accounts that were
// created without a password; those cannot log in.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	FavoriteGenre string `json:"favoriteGenre"`
	PasswordHash  string `json:"-"`
}

// BookFilter narrows FindBooks. Empty fields don't filter.
type BookFilter struct {
	AuthorID string
	Genre    string
	IDs      []string
}

// Matches reports whether b passes the filter.
func (f BookFilter) Matches(b *Book) bool {
	if f.AuthorID != "" && b.AuthorID != f.AuthorID {
		return false
	}
	if f.Genre != "" && !b.HasGenre(f.Genre) {
		return false
	}
	if f.IDs != nil {
		for _, id := range f.IDs {
			if id == b.ID {
				return true
			}
		}
		return false
	}
	return true
}

// Store is the persistence port for authors, books and users.
//
// Lookups that find nothing return ErrNotFound. EnsureAuthor must be atomic:
// concurrent calls with the same new name create exactly one author.
type Store interface {
	CountBooks(ctx context.Context) (int, error)
	CountBooksByAuthor(ctx context.Context, authorID string) (int, error)
	CountAuthors(ctx context.Context) (int, error)

	// FindBooks returns matching books in insertion order with Author set.
	FindBooks(ctx context.Context, filter BookFilter) ([]*Book, error)
	FindAuthors(ctx context.Context) ([]*Author, error)
	FindAuthorByName(ctx context.Context, name string) (*Author, error)

	// EnsureAuthor returns the author with the given name, creating it with
	// an unknown birth year if needed. created reports which happened.
	EnsureAuthor(ctx context.Context, name string) (author *Author, created bool, err error)
	InsertBook(ctx context.Context, b *Book) error
	// SetAuthorBorn updates the birth year and returns the updated author.
	SetAuthorBorn(ctx context.Context, name string, born int) (*Author, error)

	// InsertUser fails with ErrDuplicate when the username is taken.
	InsertUser(ctx context.Context, u *User) error
	FindUserByUsername(ctx context.Context, username string) (*User, error)
	FindUserByID(ctx context.Context, id string) (*User, error)

	Close() error
}
