package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hmans/catalog/internal/library"
)

// CountAuthors returns the number of authors.
func (s *Store) CountAuthors(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM authors`).Scan(&n)
	return n, err
}

// FindAuthors returns all authors in creation order.
func (s *Store) FindAuthors(ctx context.Context) ([]*library.Author, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, born FROM authors ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	authors := []*library.Author{}
	for rows.Next() {
		var a library.Author
		var born sql.NullInt64
		if err := rows.Scan(&a.ID, &a.Name, &born); err != nil {
			return nil, err
		}
		a.Born = bornPtr(born)
		authors = append(authors, &a)
	}
	return authors, rows.Err()
}

// FindAuthorByName returns the author with the given name.
func (s *Store) FindAuthorByName(ctx context.Context, name string) (*library.Author, error) {
	var a library.Author
	var born sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT id, name, born FROM authors WHERE name = ?`),
		name,
	).Scan(&a.ID, &a.Name, &born)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, library.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Born = bornPtr(born)
	return &a, nil
}

// EnsureAuthor relies on the UNIQUE(name) constraint: the insert is a no-op
// when another writer got there first, and the lookup returns the winner.
func (s *Store) EnsureAuthor(ctx context.Context, name string) (*library.Author, bool, error) {
	res, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO authors (id, name) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`),
		library.NewID(), name,
	)
	if err != nil {
		return nil, false, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	a, err := s.FindAuthorByName(ctx, name)
	if err != nil {
		return nil, false, err
	}
	return a, inserted == 1, nil
}

// SetAuthorBorn updates an author's birth year.
func (s *Store) SetAuthorBorn(ctx context.Context, name string, born int) (*library.Author, error) {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE authors SET born = ? WHERE name = ?`), born, name)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, library.ErrNotFound
	}
	return s.FindAuthorByName(ctx, name)
}
