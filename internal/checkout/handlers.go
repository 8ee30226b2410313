package checkout

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-books/internal/common"
)

// Handler exposes the checkout endpoint.
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

// Checkout handles POST /api/v1/books/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var req Request
	if err := common.DecodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.service.Checkout(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, resp)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := common.AsAppError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("checkout failed")
	}
	common.WriteAppError(w, appErr)
}
