package checkout

import (
	"context"
	"errors"
	"net/http"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/backend-books/internal/common"
	"github.com/noah-isme/backend-books/internal/obs"
	"github.com/noah-isme/backend-books/internal/pricing"
)

// LineItem is a checked-out book. Only quantity, type and bookPrice take part in pricing.
type LineItem struct {
	ID              string           `json:"id,omitempty"`
	BookName        *string          `json:"bookName,omitempty" validate:"omitnil,book_name"`
	BookDescription string           `json:"bookDescription,omitempty"`
	Author          string           `json:"author,omitempty"`
	Type            *string          `json:"type,omitempty"`
	BookPrice       *decimal.Decimal `json:"bookPrice" validate:"required,money_min=0.01"`
	ISBN            *string          `json:"isbn,omitempty" validate:"omitnil,isbn13"`
	Quantity        *int             `json:"quantity" validate:"required,min=1"`
}

// Request is the checkout payload.
type Request struct {
	PromoCode *string    `json:"promoCode"`
	Items     []LineItem `json:"items" validate:"required,min=1,dive"`
}

// Response carries both totals as JSON numbers with exactly two fractional digits.
type Response struct {
	OriginalPrice      Amount `json:"originalPrice"`
	PriceAfterDiscount Amount `json:"priceAfterDiscount"`
}

// Service prices checkout baskets against the configured promotions.
type Service struct {
	promotions *pricing.Promotions
	metrics    *obs.DomainMetrics
	validate   *validator.Validate
	tracer     trace.Tracer
}

// ServiceConfig configures the checkout service.
type ServiceConfig struct {
	Promotions *pricing.Promotions
	Metrics    *obs.DomainMetrics
	Validator  *validator.Validate
	Tracer     trace.Tracer
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) *Service {
	v := cfg.Validator
	if v == nil {
		v = common.NewValidator()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = obs.Tracer()
	}
	return &Service{promotions: cfg.Promotions, metrics: cfg.Metrics, validate: v, tracer: tracer}
}

// Checkout validates req and returns the original and discounted totals.
func (s *Service) Checkout(ctx context.Context, req Request) (Response, error) {
	_, span := s.tracer.Start(ctx, "checkout.calculate")
	defer span.End()
	span.SetAttributes(
		attribute.Int("checkout.items", len(req.Items)),
		attribute.Bool("checkout.promo_code_present", req.PromoCode != nil),
	)

	if err := s.validate.Struct(req); err != nil {
		s.metrics.ObserveCheckout(obs.CheckoutResultInvalidInput, len(req.Items))
		span.SetStatus(codes.Error, "validation failed")
		return Response{}, common.ValidationError(err)
	}

	result, err := pricing.Calculate(toPricingRequest(req), s.promotions)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Response{}, s.translateError(err, len(req.Items))
	}

	s.metrics.ObserveCheckout(obs.CheckoutResultOK, len(req.Items))
	if req.PromoCode != nil {
		s.metrics.ObservePromoApplied(*req.PromoCode)
	}
	return Response{
		OriginalPrice:      Amount(result.OriginalPrice),
		PriceAfterDiscount: Amount(result.PriceAfterDiscount),
	}, nil
}

func (s *Service) translateError(err error, items int) error {
	switch {
	case errors.Is(err, pricing.ErrInvalidPromoCode):
		s.metrics.ObserveCheckout(obs.CheckoutResultInvalidPromo, items)
		return common.BadRequest("INVALID_PROMO_CODE", "Invalid promo code", err)
	case errors.Is(err, pricing.ErrInvalidLineItem):
		s.metrics.ObserveCheckout(obs.CheckoutResultInvalidInput, items)
		return common.NewAppError("VALIDATION_ERROR", err.Error(), http.StatusBadRequest, err)
	default:
		s.metrics.ObserveCheckout(obs.CheckoutResultError, items)
		return common.Internal(err)
	}
}

func toPricingRequest(req Request) pricing.Request {
	items := make([]pricing.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		line := pricing.LineItem{Type: it.Type}
		if it.Quantity != nil {
			line.Quantity = *it.Quantity
		}
		if it.BookPrice != nil {
			line.UnitPrice = *it.BookPrice
		}
		items = append(items, line)
	}
	return pricing.Request{PromoCode: req.PromoCode, Items: items}
}
