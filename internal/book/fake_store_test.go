package book

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// memStore is an in-memory Store used by tests.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	books  map[int64]Book
	gets   int
	err    error
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, books: map[int64]Book{}}
}

func (m *memStore) Create(_ context.Context, b Book) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Book{}, m.err
	}
	for _, existing := range m.books {
		if existing.ISBN == b.ISBN {
			return Book{}, ErrDuplicateISBN
		}
	}
	b.ID = m.nextID
	m.nextID++
	b.Status = StatusActive
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	m.books[b.ID] = b
	return b, nil
}

func (m *memStore) Get(_ context.Context, id int64) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.err != nil {
		return Book{}, m.err
	}
	b, ok := m.books[id]
	if !ok {
		return Book{}, ErrNotFound
	}
	return b, nil
}

func (m *memStore) ListActive(_ context.Context, limit, offset int) ([]Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	active := make([]Book, 0, len(m.books))
	for _, b := range m.books {
		if b.Status == StatusActive {
			active = append(active, b)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	if offset >= len(active) {
		return []Book{}, nil
	}
	active = active[offset:]
	if limit < len(active) {
		active = active[:limit]
	}
	return active, nil
}

func (m *memStore) Update(_ context.Context, b Book) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.books[b.ID]
	if !ok {
		return Book{}, ErrNotFound
	}
	if existing.Status == StatusDeleted {
		return Book{}, ErrDeleted
	}
	for id, other := range m.books {
		if id != b.ID && other.ISBN == b.ISBN {
			return Book{}, ErrDuplicateISBN
		}
	}
	b.Status = StatusActive
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = time.Now()
	m.books[b.ID] = b
	return b, nil
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return ErrNotFound
	}
	if b.Status == StatusDeleted {
		return ErrDeleted
	}
	b.Status = StatusDeleted
	m.books[id] = b
	return nil
}

var errStoreDown = errors.New("store down")
