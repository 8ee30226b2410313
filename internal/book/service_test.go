package book

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-books/internal/common"
	"github.com/noah-isme/backend-books/internal/obs"
)

func sampleInput(isbn string) Input {
	price := decimal.RequireFromString("20.04")
	desc := "A sci-fi thriller"
	return Input{
		BookName:        "Harry Potter",
		BookDescription: &desc,
		Author:          "JK Rowling",
		Type:            "FICTION",
		BookPrice:       &price,
		ISBN:            isbn,
	}
}

func newTestService(t *testing.T, store Store, cache *Cache) *Service {
	t.Helper()
	svc, err := NewService(ServiceConfig{Store: store, Cache: cache})
	require.NoError(t, err)
	return svc
}

func requireAppError(t *testing.T, err error, status int, message string) {
	t.Helper()
	require.Error(t, err)
	appErr := common.AsAppError(err)
	require.Equal(t, status, appErr.HTTPStatus)
	if message != "" {
		require.Equal(t, message, appErr.Message)
	}
}

func TestNewServiceRequiresStore(t *testing.T) {
	_, err := NewService(ServiceConfig{})
	require.Error(t, err)
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(t, store, nil)

	created, err := svc.Create(ctx, sampleInput("1231231232122"))
	require.NoError(t, err)
	require.Equal(t, "1", created.ID)

	view, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "Harry Potter", view.BookName)
	require.Equal(t, "20.04", view.BookPrice.String())

	in := sampleInput("1231231232122")
	in.BookName = "Harry Potter 2"
	in.BookDescription = nil
	updated, err := svc.Update(ctx, 1, in)
	require.NoError(t, err)
	require.Equal(t, "Harry Potter 2", updated.BookName)
	require.Nil(t, updated.BookDescription)

	require.NoError(t, svc.Delete(ctx, 1))

	_, err = svc.Get(ctx, 1)
	requireAppError(t, err, http.StatusNotFound, "This book is no longer sold here")

	err = svc.Delete(ctx, 1)
	requireAppError(t, err, http.StatusConflict, "This book is no longer sold here")

	_, err = svc.Update(ctx, 1, sampleInput("1231231232122"))
	requireAppError(t, err, http.StatusConflict, "This book is no longer sold here. Cannot update it")
}

func TestServiceMissingBook(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newMemStore(), nil)

	_, err := svc.Get(ctx, 42)
	requireAppError(t, err, http.StatusNotFound, "Requested book is not available in the store!!!")

	_, err = svc.Update(ctx, 42, sampleInput("1231231232122"))
	requireAppError(t, err, http.StatusNotFound, "Requested book is not available in the store!!!")

	err = svc.Delete(ctx, 42)
	requireAppError(t, err, http.StatusNotFound, "Requested book is not available in the store!!!")
}

func TestServiceListOnlyActive(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newMemStore(), nil)
	for _, isbn := range []string{"0000000000001", "0000000000002", "0000000000003"} {
		_, err := svc.Create(ctx, sampleInput(isbn))
		require.NoError(t, err)
	}
	require.NoError(t, svc.Delete(ctx, 2))

	views, err := svc.List(ctx, common.Pagination{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.Equal(t, "1", views[0].ID)
	require.Equal(t, "3", views[1].ID)

	views, err = svc.List(ctx, common.Pagination{Page: 2, Limit: 1})
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, "3", views[0].ID)
}

func TestServiceValidationAndConflicts(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newMemStore(), nil)

	in := sampleInput("123")
	in.BookName = "  "
	in.BookPrice = nil
	_, err := svc.Create(ctx, in)
	requireAppError(t, err, http.StatusBadRequest, "")
	details := common.AsAppError(err).Details.(map[string]string)
	require.Equal(t, "bookName cannot be blank", details["bookName"])
	require.Equal(t, "bookPrice cannot be null", details["bookPrice"])
	require.Equal(t, "isbn must be exactly 13 digits", details["isbn"])

	_, err = svc.Create(ctx, sampleInput("1231231232122"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, sampleInput("1231231232122"))
	requireAppError(t, err, http.StatusConflict, "")
	require.ErrorIs(t, err, ErrDuplicateISBN)
}

func TestServiceStoreFailure(t *testing.T) {
	store := newMemStore()
	store.err = errStoreDown
	svc := newTestService(t, store, nil)

	_, err := svc.List(context.Background(), common.Pagination{})
	requireAppError(t, err, http.StatusInternalServerError, "internal server error")
	require.ErrorIs(t, err, errStoreDown)
}

func TestServiceGetUsesCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	metrics := obs.NewDomainMetrics("book_test", prometheus.NewRegistry())
	cache := NewCache(CacheConfig{Client: client, TTL: time.Minute, Metrics: metrics})
	store := newMemStore()
	svc := newTestService(t, store, cache)
	ctx := context.Background()

	_, err = svc.Create(ctx, sampleInput("1231231232122"))
	require.NoError(t, err)

	first, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	second, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, store.gets)
	require.True(t, mr.Exists("books:v1:1"))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.BookCacheRequestsTotal.WithLabelValues("hit")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.BookCacheRequestsTotal.WithLabelValues("miss")))

	in := sampleInput("1231231232122")
	in.BookName = "Renamed"
	_, err = svc.Update(ctx, 1, in)
	require.NoError(t, err)
	require.False(t, mr.Exists("books:v1:1"))

	view, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "Renamed", view.BookName)

	require.NoError(t, svc.Delete(ctx, 1))
	require.False(t, mr.Exists("books:v1:1"))
	_, err = svc.Get(ctx, 1)
	requireAppError(t, err, http.StatusNotFound, "This book is no longer sold here")
}

func TestParseID(t *testing.T) {
	id, err := ParseID("17")
	require.NoError(t, err)
	require.EqualValues(t, 17, id)

	_, err = ParseID("abc")
	requireAppError(t, err, http.StatusBadRequest, "Book Id format not valid")
}

// deleteDuringGet deletes the book through svc right after the store read, the way a
// concurrent request would between the read and the cache fill.
type deleteDuringGet struct {
	*memStore
	svc  *Service
	once sync.Once
}

func (s *deleteDuringGet) Get(ctx context.Context, id int64) (Book, error) {
	b, err := s.memStore.Get(ctx, id)
	s.once.Do(func() {
		if delErr := s.svc.Delete(ctx, id); delErr != nil {
			panic(delErr)
		}
	})
	return b, err
}

func TestServiceGetDoesNotCacheRowDeletedMidRead(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := &deleteDuringGet{memStore: newMemStore()}
	svc := newTestService(t, store, NewCache(CacheConfig{Client: client, TTL: time.Minute}))
	store.svc = svc
	ctx := context.Background()

	_, err := svc.Create(ctx, sampleInput("1231231232122"))
	require.NoError(t, err)

	stale, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "1", stale.ID)
	require.False(t, mr.Exists("books:v1:1"))

	_, err = svc.Get(ctx, 1)
	requireAppError(t, err, http.StatusNotFound, "This book is no longer sold here")
}
