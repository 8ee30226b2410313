package book

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-books/internal/common"
)

const (
	msgUnavailable   = "Requested book is not available in the store!!!"
	msgNoLongerSold  = "This book is no longer sold here"
	msgCannotUpdate  = "This book is no longer sold here. Cannot update it"
	msgInvalidID     = "Book Id format not valid"
	msgDuplicateISBN = "A book with this isbn already exists"
)

const (
	defaultListLimit = 100
	maximumListLimit = 500
)

// Service implements catalog use cases on top of a Store and an optional Cache.
type Service struct {
	store    Store
	cache    *Cache
	validate *validator.Validate
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store     Store
	Cache     *Cache
	Validator *validator.Validate
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("book store is required")
	}
	v := cfg.Validator
	if v == nil {
		v = common.NewValidator()
	}
	return &Service{store: cfg.Store, cache: cfg.Cache, validate: v}, nil
}

// ParseID converts a path segment into a book id.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, common.BadRequest("BAD_REQUEST", msgInvalidID, err)
	}
	return id, nil
}

// Create validates in and stores a new ACTIVE book.
func (s *Service) Create(ctx context.Context, in Input) (CreateResponse, error) {
	if err := s.validate.Struct(in); err != nil {
		return CreateResponse{}, common.ValidationError(err)
	}
	b, err := s.store.Create(ctx, in.toBook())
	if err != nil {
		return CreateResponse{}, translateStoreError(err, msgUnavailable)
	}
	return CreateResponse{ID: strconv.FormatInt(b.ID, 10)}, nil
}

// List returns ACTIVE books for the requested page.
func (s *Service) List(ctx context.Context, page common.Pagination) ([]View, error) {
	if page.Limit <= 0 {
		page.Limit = defaultListLimit
	}
	books, err := s.store.ListActive(ctx, page.Limit, page.Offset())
	if err != nil {
		return nil, common.Internal(err)
	}
	views := make([]View, 0, len(books))
	for _, b := range books {
		views = append(views, toView(b))
	}
	return views, nil
}

// Get returns the ACTIVE book with id.
func (s *Service) Get(ctx context.Context, id int64) (View, error) {
	if v, ok, err := s.cache.Get(ctx, id); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("book_id", id).Msg("book cache read failed")
	} else if ok {
		return v, nil
	}
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return View{}, translateStoreError(err, msgNoLongerSold)
	}
	if b.Status == StatusDeleted {
		return View{}, common.NotFound(msgNoLongerSold, ErrDeleted)
	}
	v := toView(b)
	if err := s.cache.Set(ctx, id, v); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("book_id", id).Msg("book cache write failed")
	}
	return v, nil
}

// Update replaces every field of the book with id and marks it ACTIVE.
func (s *Service) Update(ctx context.Context, id int64, in Input) (View, error) {
	if err := s.validate.Struct(in); err != nil {
		return View{}, common.ValidationError(err)
	}
	b := in.toBook()
	b.ID = id
	updated, err := s.store.Update(ctx, b)
	if err != nil {
		return View{}, translateStoreError(err, msgCannotUpdate)
	}
	s.invalidate(ctx, id)
	return toView(updated), nil
}

// Delete soft-deletes the book with id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return translateStoreError(err, msgNoLongerSold)
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *Service) invalidate(ctx context.Context, id int64) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("book_id", id).Msg("book cache invalidation failed")
	}
}

// translateStoreError maps store sentinels onto API errors. deletedMsg is the message
// used when the book exists but is DELETED; writes report that as a conflict.
func translateStoreError(err error, deletedMsg string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return common.NotFound(msgUnavailable, err)
	case errors.Is(err, ErrDeleted):
		return common.NewAppError("CONFLICT", deletedMsg, http.StatusConflict, err)
	case errors.Is(err, ErrDuplicateISBN):
		return common.Conflict(msgDuplicateISBN, err)
	default:
		return common.Internal(err)
	}
}
