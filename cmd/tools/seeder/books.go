package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-books/internal/book"
)

func sampleBooks() []book.Book {
	desc := func(s string) *string { return &s }
	return []book.Book{
		{Name: "Dune", Description: desc("Desert planet epic"), Author: "Frank Herbert", Type: "FICTION", Price: decimal.RequireFromString("9.99"), ISBN: "9780441172719"},
		{Name: "The Hobbit", Author: "J. R. R. Tolkien", Type: "FICTION", Price: decimal.RequireFromString("12.50"), ISBN: "9780547928227"},
		{Name: "Watchmen", Author: "Alan Moore", Type: "COMICS", Price: decimal.RequireFromString("19.99"), ISBN: "9781401245252"},
		{Name: "Maus", Description: desc("A survivor's tale"), Author: "Art Spiegelman", Type: "COMICS", Price: decimal.RequireFromString("16.00"), ISBN: "9780679406419"},
		{Name: "SPQR", Author: "Mary Beard", Type: "HISTORY", Price: decimal.RequireFromString("18.75"), ISBN: "9781631492228"},
		{Name: "The Guns of August", Author: "Barbara Tuchman", Type: "HISTORY", Price: decimal.RequireFromString("17.00"), ISBN: "9780345476098"},
		{Name: "Leaves of Grass", Author: "Walt Whitman", Type: "POETRY", Price: decimal.RequireFromString("7.25"), ISBN: "9780486456768"},
	}
}

// seedBooks inserts books, skipping any whose isbn is already stored.
func seedBooks(ctx context.Context, store book.Store, books []book.Book) (created, skipped int, err error) {
	for _, b := range books {
		b.Status = book.StatusActive
		if _, err := store.Create(ctx, b); err != nil {
			if errors.Is(err, book.ErrDuplicateISBN) {
				skipped++
				continue
			}
			return created, skipped, fmt.Errorf("seed %q: %w", b.ISBN, err)
		}
		created++
	}
	return created, skipped, nil
}
