package book

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-books/internal/common"
)

// Handler exposes the catalog endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// Routes mounts the catalog endpoints. Write routes go through writeMW.
func (h *Handler) Routes(r chi.Router, writeMW ...func(http.Handler) http.Handler) {
	r.With(writeMW...).Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// Create handles POST /api/v1/books.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.service.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	common.JSON(w, http.StatusCreated, resp)
}

// List handles GET /api/v1/books.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	views, err := h.service.List(r.Context(), common.ParsePagination(r, defaultListLimit, maximumListLimit))
	if err != nil {
		writeError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, views)
}

// Get handles GET /api/v1/books/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, view)
}

// Update handles PUT /api/v1/books/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, view)
}

// Delete handles DELETE /api/v1/books/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	common.NoContent(w)
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "book service not configured", nil)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := common.AsAppError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("book request failed")
	}
	common.WriteAppError(w, appErr)
}
