package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits every total is rounded to.
const Scale int32 = 2

var (
	// ErrInvalidPromoCode is returned when a supplied promo code is not configured.
	ErrInvalidPromoCode = errors.New("invalid promo code")
	// ErrInvalidLineItem is returned for items with a non-positive quantity or price.
	ErrInvalidLineItem = errors.New("invalid line item")
)

// LineItem describes a basket entry used for pricing.
type LineItem struct {
	Quantity  int
	Type      *string
	UnitPrice decimal.Decimal
}

// Request is the input of a checkout calculation.
type Request struct {
	PromoCode *string
	Items     []LineItem
}

// Result holds the rounded totals of a checkout calculation.
type Result struct {
	OriginalPrice      decimal.Decimal
	PriceAfterDiscount decimal.Decimal
}

// Calculate prices the request against the configured promotions.
//
// The original price is the sum of all raw line amounts rounded once. The discounted
// price is accumulated item by item and the running total is re-rounded after each
// item, so it can drift from a single final rounding when amounts carry fractional
// cents. Both roundings are half-to-even at two decimals.
func Calculate(req Request, promotions *Promotions) (Result, error) {
	rules, err := resolveRules(req.PromoCode, promotions)
	if err != nil {
		return Result{}, err
	}

	for i, it := range req.Items {
		if it.Quantity < 1 {
			return Result{}, fmt.Errorf("item %d: quantity must be at least 1: %w", i, ErrInvalidLineItem)
		}
		if !it.UnitPrice.IsPositive() {
			return Result{}, fmt.Errorf("item %d: unit price must be positive: %w", i, ErrInvalidLineItem)
		}
	}

	original := decimal.Zero
	for _, it := range req.Items {
		original = original.Add(lineAmount(it))
	}
	original = original.RoundBank(Scale)

	discounted := decimal.Zero
	for _, it := range req.Items {
		amount := lineAmount(it)
		discount := decimal.Zero
		if rule, ok := matchRule(rules, it.Type); ok {
			discount = DiscountAmount(amount, rule.Percent)
		}
		discounted = discounted.Add(amount.Sub(discount)).RoundBank(Scale)
	}

	return Result{OriginalPrice: original, PriceAfterDiscount: discounted}, nil
}

// DiscountAmount returns amount*percent/100 rounded half-to-even at two decimals.
func DiscountAmount(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Shift(-2).RoundBank(Scale)
}

func resolveRules(code *string, promotions *Promotions) ([]DiscountRule, error) {
	if code == nil {
		return nil, nil
	}
	promo, ok := promotions.Lookup(*code)
	if !ok {
		return nil, ErrInvalidPromoCode
	}
	return promo.DiscountRules, nil
}

// matchRule returns the first rule whose type equals itemType. Items without a type
// never match.
func matchRule(rules []DiscountRule, itemType *string) (DiscountRule, bool) {
	if itemType == nil {
		return DiscountRule{}, false
	}
	for _, r := range rules {
		if r.Type == *itemType {
			return r, true
		}
	}
	return DiscountRule{}, false
}

func lineAmount(it LineItem) decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}
