package sqlstore

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hmans/catalog/internal/library"
)

// CountBooks returns the number of books.
func (s *Store) CountBooks(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&n)
	return n, err
}

// CountBooksByAuthor returns the number of books by the given author.
func (s *Store) CountBooksByAuthor(ctx context.Context, authorID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM books WHERE author_id = ?`), authorID).Scan(&n)
	return n, err
}

// idBatchSize caps how many ids are bound into one IN list. Older SQLite
// builds reject statements with more than 999 parameters.
var idBatchSize = 500

// FindBooks returns matching books in insertion order with authors joined in.
func (s *Store) FindBooks(ctx context.Context, filter library.BookFilter) ([]*library.Book, error) {
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return []*library.Book{}, nil
	}

	var rows []bookRow
	if len(filter.IDs) == 0 {
		r, err := s.findBookRows(ctx, filter, nil)
		if err != nil {
			return nil, err
		}
		rows = r
	} else {
		ids := slices.Clone(filter.IDs)
		slices.Sort(ids)
		ids = slices.Compact(ids)
		for _, chunk := range chunkIDs(ids, idBatchSize) {
			r, err := s.findBookRows(ctx, filter, chunk)
			if err != nil {
				return nil, err
			}
			rows = append(rows, r...)
		}
		slices.SortFunc(rows, func(a, b bookRow) int { return cmp.Compare(a.seq, b.seq) })
	}

	books := make([]*library.Book, len(rows))
	for i, r := range rows {
		books[i] = r.book
	}
	if err := s.loadGenres(ctx, books); err != nil {
		return nil, err
	}
	return books, nil
}

type bookRow struct {
	seq  int64
	book *library.Book
}

// findBookRows runs one filtered query. ids, when set, replaces filter.IDs.
func (s *Store) findBookRows(ctx context.Context, filter library.BookFilter, ids []string) ([]bookRow, error) {
	var where []string
	var args []any
	if filter.AuthorID != "" {
		where = append(where, "b.author_id = ?")
		args = append(args, filter.AuthorID)
	}
	if filter.Genre != "" {
		where = append(where, "EXISTS (SELECT 1 FROM book_genres g WHERE g.book_id = b.id AND g.genre = ?)")
		args = append(args, filter.Genre)
	}
	if len(ids) > 0 {
		where = append(where, "b.id IN ("+placeholders(len(ids))+")")
		for _, id := range ids {
			args = append(args, id)
		}
	}

	query := `SELECT b.seq, b.id, b.title, b.published, a.id, a.name, a.born
		FROM books b JOIN authors a ON a.id = b.author_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY b.seq"

	return s.scanBooks(ctx, s.q(query), args...)
}

func (s *Store) scanBooks(ctx context.Context, query string, args ...any) ([]bookRow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []bookRow
	for rows.Next() {
		b := &library.Book{Genres: []string{}, Author: &library.Author{}}
		var seq int64
		var born sql.NullInt64
		if err := rows.Scan(&seq, &b.ID, &b.Title, &b.Published, &b.Author.ID, &b.Author.Name, &born); err != nil {
			return nil, err
		}
		b.AuthorID = b.Author.ID
		b.Author.Born = bornPtr(born)
		result = append(result, bookRow{seq: seq, book: b})
	}
	return result, rows.Err()
}

// loadGenres fills in genres once the book rows are closed, so it is safe on a
// single-connection pool.
func (s *Store) loadGenres(ctx context.Context, books []*library.Book) error {
	byID := make(map[string]*library.Book, len(books))
	ids := make([]string, 0, len(books))
	for _, b := range books {
		byID[b.ID] = b
		ids = append(ids, b.ID)
	}

	for _, chunk := range chunkIDs(ids, idBatchSize) {
		if err := s.loadGenreChunk(ctx, byID, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) loadGenreChunk(ctx context.Context, byID map[string]*library.Book, ids []string) error {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT book_id, genre FROM book_genres WHERE book_id IN (`+placeholders(len(args))+`) ORDER BY book_id, position`),
		args...,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var bookID, genre string
		if err := rows.Scan(&bookID, &genre); err != nil {
			return err
		}
		if b, ok := byID[bookID]; ok {
			b.Genres = append(b.Genres, genre)
		}
	}
	return rows.Err()
}

// chunkIDs splits ids into consecutive slices of at most size elements.
func chunkIDs(ids []string, size int) [][]string {
	var chunks [][]string
	for len(ids) > size {
		chunks = append(chunks, ids[:size:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}

// InsertBook stores a book and its genres in one transaction and sets
// b.Author from the referenced record.
func (s *Store) InsertBook(ctx context.Context, b *library.Book) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	author := &library.Author{}
	var born sql.NullInt64
	err = tx.QueryRowContext(ctx,
		s.q(`SELECT id, name, born FROM authors WHERE id = ?`),
		b.AuthorID,
	).Scan(&author.ID, &author.Name, &born)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("author %s: %w", b.AuthorID, library.ErrNotFound)
	}
	if err != nil {
		return err
	}
	author.Born = bornPtr(born)

	if b.ID == "" {
		b.ID = library.NewID()
	}
	if _, err := tx.ExecContext(ctx,
		s.q(`INSERT INTO books (id, title, published, author_id) VALUES (?, ?, ?, ?)`),
		b.ID, b.Title, b.Published, b.AuthorID,
	); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("book %s: %w", b.ID, library.ErrDuplicate)
		}
		return err
	}

	for i, genre := range b.Genres {
		if _, err := tx.ExecContext(ctx,
			s.q(`INSERT INTO book_genres (book_id, position, genre) VALUES (?, ?, ?)`),
			b.ID, i, genre,
		); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	if b.Genres == nil {
		b.Genres = []string{}
	}
	b.Author = author
	return nil
}
