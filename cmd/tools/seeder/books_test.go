package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-books/internal/book"
	"github.com/noah-isme/backend-books/internal/common"
)

type isbnStore struct {
	book.Store
	seen map[string]bool
	fail error
}

func (s *isbnStore) Create(_ context.Context, b book.Book) (book.Book, error) {
	if s.fail != nil {
		return book.Book{}, s.fail
	}
	if s.seen[b.ISBN] {
		return book.Book{}, book.ErrDuplicateISBN
	}
	s.seen[b.ISBN] = true
	return b, nil
}

func TestSampleBooksAreValid(t *testing.T) {
	v := common.NewValidator()
	for _, b := range sampleBooks() {
		price := b.Price
		in := book.Input{BookName: b.Name, BookDescription: b.Description, Author: b.Author, Type: b.Type, BookPrice: &price, ISBN: b.ISBN}
		require.NoError(t, v.Struct(in), b.Name)
	}
}

func TestSeedBooksSkipsExisting(t *testing.T) {
	store := &isbnStore{seen: map[string]bool{}}
	books := sampleBooks()

	created, skipped, err := seedBooks(context.Background(), store, books)
	require.NoError(t, err)
	require.Equal(t, len(books), created)
	require.Zero(t, skipped)

	created, skipped, err = seedBooks(context.Background(), store, books)
	require.NoError(t, err)
	require.Zero(t, created)
	require.Equal(t, len(books), skipped)
}

func TestSeedBooksStopsOnError(t *testing.T) {
	boom := errors.New("db down")
	_, _, err := seedBooks(context.Background(), &isbnStore{fail: boom}, sampleBooks())
	require.ErrorIs(t, err, boom)
}
