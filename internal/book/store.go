package book

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

// Store persists books.
type Store interface {
	Create(ctx context.Context, b Book) (Book, error)
	Get(ctx context.Context, id int64) (Book, error)
	ListActive(ctx context.Context, limit, offset int) ([]Book, error)
	Update(ctx context.Context, b Book) (Book, error)
	Delete(ctx context.Context, id int64) error
}

// DBTX is the subset of pgxpool.Pool used by PGStore.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore implements Store on PostgreSQL.
type PGStore struct {
	db DBTX
}

// NewPGStore constructs a PGStore.
func NewPGStore(db DBTX) *PGStore {
	return &PGStore{db: db}
}

const bookColumns = `id, book_name, book_description, author, type, book_price::text, isbn, status, created_at, updated_at`

const insertBook = `
INSERT INTO books (book_name, book_description, author, type, book_price, isbn, status)
VALUES ($1, $2, $3, $4, $5::numeric, $6, 'ACTIVE')
RETURNING ` + bookColumns

const selectBook = `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

const listActiveBooks = `
SELECT ` + bookColumns + `
FROM books
WHERE status = 'ACTIVE'
ORDER BY id
LIMIT $1 OFFSET $2`

const updateBook = `
UPDATE books
SET book_name = $2, book_description = $3, author = $4, type = $5,
    book_price = $6::numeric, isbn = $7, status = 'ACTIVE', updated_at = now()
WHERE id = $1 AND status = 'ACTIVE'
RETURNING ` + bookColumns

const deleteBook = `
UPDATE books SET status = 'DELETED', updated_at = now()
WHERE id = $1 AND status = 'ACTIVE'`

// Create inserts b and returns the stored row.
func (s *PGStore) Create(ctx context.Context, b Book) (Book, error) {
	row := s.db.QueryRow(ctx, insertBook, b.Name, b.Description, b.Author, b.Type, b.Price.String(), b.ISBN)
	created, err := scanBook(row)
	if err != nil {
		return Book{}, mapWriteError(err)
	}
	return created, nil
}

// Get returns the book with id regardless of its status.
func (s *PGStore) Get(ctx context.Context, id int64) (Book, error) {
	b, err := scanBook(s.db.QueryRow(ctx, selectBook, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Book{}, ErrNotFound
	}
	if err != nil {
		return Book{}, fmt.Errorf("get book %d: %w", id, err)
	}
	return b, nil
}

// ListActive returns ACTIVE books ordered by id.
func (s *PGStore) ListActive(ctx context.Context, limit, offset int) ([]Book, error) {
	rows, err := s.db.Query(ctx, listActiveBooks, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()
	books := make([]Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// Update replaces every field of an ACTIVE book. A missing book yields ErrNotFound and a
// soft-deleted one ErrDeleted.
func (s *PGStore) Update(ctx context.Context, b Book) (Book, error) {
	row := s.db.QueryRow(ctx, updateBook, b.ID, b.Name, b.Description, b.Author, b.Type, b.Price.String(), b.ISBN)
	updated, err := scanBook(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Book{}, s.inactiveReason(ctx, b.ID)
	}
	if err != nil {
		return Book{}, mapWriteError(err)
	}
	return updated, nil
}

// Delete soft-deletes an ACTIVE book.
func (s *PGStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, deleteBook, id)
	if err != nil {
		return fmt.Errorf("delete book %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return s.inactiveReason(ctx, id)
	}
	return nil
}

// inactiveReason explains why a conditional write on an ACTIVE book matched no row.
func (s *PGStore) inactiveReason(ctx context.Context, id int64) error {
	b, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if b.Status == StatusDeleted {
		return ErrDeleted
	}
	return fmt.Errorf("book %d changed concurrently", id)
}

func scanBook(row pgx.Row) (Book, error) {
	var (
		b      Book
		price  string
		status string
	)
	if err := row.Scan(&b.ID, &b.Name, &b.Description, &b.Author, &b.Type, &price, &b.ISBN, &status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return Book{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return Book{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	b.Price = d
	b.Status = Status(status)
	return b, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateISBN
	}
	return fmt.Errorf("write book: %w", err)
}
