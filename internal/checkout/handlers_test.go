package checkout_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-books/internal/checkout"
	"github.com/noah-isme/backend-books/internal/obs"
	"github.com/noah-isme/backend-books/internal/pricing"
)

type errorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func newHandler() *checkout.Handler {
	promos := pricing.MustPromotions([]pricing.PromotionRule{{
		Code: "code1",
		DiscountRules: []pricing.DiscountRule{
			{Type: "FICTION", Percent: decimal.NewFromInt(10)},
			{Type: "COMICS", Percent: decimal.NewFromInt(5)},
		},
	}})
	svc := checkout.NewService(checkout.ServiceConfig{
		Promotions: promos,
		Metrics:    obs.NewDomainMetrics("handler_test", prometheus.NewRegistry()),
	})
	return checkout.NewHandler(checkout.HandlerConfig{Service: svc})
}

func postCheckout(h *checkout.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/books/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Checkout(rec, req)
	return rec
}

func TestCheckoutHandler(t *testing.T) {
	h := newHandler()

	t.Run("discounted basket", func(t *testing.T) {
		rec := postCheckout(h, `{
			"promoCode": "code1",
			"items": [
				{"quantity": 10, "type": "FICTION", "bookPrice": 100.00, "bookName": "Dune", "isbn": "9780441013593"},
				{"quantity": 5, "type": "COMICS", "bookPrice": "10.00"},
				{"quantity": 3, "type": "THRILLER", "bookPrice": 1}
			]
		}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		require.JSONEq(t, `{"originalPrice":1053.00,"priceAfterDiscount":950.50}`, rec.Body.String())
		require.Contains(t, rec.Body.String(), `"priceAfterDiscount":950.50`)
	})

	t.Run("null promo code", func(t *testing.T) {
		rec := postCheckout(h, `{"promoCode": null, "items": [{"quantity": 10, "type": "FICTION", "bookPrice": 100}]}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"originalPrice":1000.00`)
		require.Contains(t, rec.Body.String(), `"priceAfterDiscount":1000.00`)
	})

	t.Run("invalid promo code", func(t *testing.T) {
		rec := postCheckout(h, `{"promoCode": "code3", "items": [{"quantity": 1, "type": "FICTION", "bookPrice": 100}]}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "INVALID_PROMO_CODE", resp.Error.Code)
		require.Equal(t, "Invalid promo code", resp.Error.Message)
	})

	t.Run("validation failure", func(t *testing.T) {
		rec := postCheckout(h, `{"items": [{"quantity": 0, "bookPrice": 0, "bookName": "<script>"}]}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
		require.Equal(t, "quantity must be greater than 0", resp.Error.Details["items[0].quantity"])
		require.Equal(t, "bookPrice must be greater than 0", resp.Error.Details["items[0].bookPrice"])
		require.Equal(t, "bookName invalid", resp.Error.Details["items[0].bookName"])
	})

	t.Run("empty isbn", func(t *testing.T) {
		rec := postCheckout(h, `{"items": [{"quantity": 1, "bookPrice": 5, "isbn": ""}]}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "isbn must be exactly 13 digits", resp.Error.Details["items[0].isbn"])
	})

	t.Run("malformed json", func(t *testing.T) {
		rec := postCheckout(h, `{"items": [`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "BAD_REQUEST", resp.Error.Code)
	})
}

func TestCheckoutHandlerNotConfigured(t *testing.T) {
	h := checkout.NewHandler(checkout.HandlerConfig{})
	rec := postCheckout(h, `{}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
