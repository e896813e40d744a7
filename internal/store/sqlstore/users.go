package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hmans/catalog/internal/library"
)

// InsertUser stores a new user. A taken username yields library.ErrDuplicate.
func (s *Store) InsertUser(ctx context.Context, u *library.User) error {
	if u.ID == "" {
		u.ID = library.NewID()
	}
	_, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO users (id, username, favorite_genre, password_hash) VALUES (?, ?, ?, ?)`),
		u.ID, u.Username, u.FavoriteGenre, u.PasswordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username %q: %w", u.Username, library.ErrDuplicate)
		}
		return err
	}
	return nil
}

// FindUserByUsername returns the user with the given username.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (*library.User, error) {
	return s.findUser(ctx, `SELECT id, username, favorite_genre, password_hash FROM users WHERE username = ?`, username)
}

// FindUserByID returns the user with the given ID.
func (s *Store) FindUserByID(ctx context.Context, id string) (*library.User, error) {
	return s.findUser(ctx, `SELECT id, username, favorite_genre, password_hash FROM users WHERE id = ?`, id)
}

func (s *Store) findUser(ctx context.Context, query string, arg string) (*library.User, error) {
	var u library.User
	err := s.db.QueryRowContext(ctx, s.q(query), arg).
		Scan(&u.ID, &u.Username, &u.FavoriteGenre, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, library.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
