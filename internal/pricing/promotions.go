package pricing

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// DiscountRule grants Percent off every line whose book type equals Type.
type DiscountRule struct {
	Type    string
	Percent decimal.Decimal
}

// PromotionRule binds a promo code to an ordered list of discount rules.
type PromotionRule struct {
	Code          string
	DiscountRules []DiscountRule
}

// Promotions is a read-only snapshot of the configured promotion rules. It is built
// once at start-up and shared by all calculations.
type Promotions struct {
	byCode map[string]PromotionRule
}

// NewPromotions validates rules and returns an immutable snapshot. Input slices are
// copied so later mutation by the caller has no effect.
func NewPromotions(rules []PromotionRule) (*Promotions, error) {
	byCode := make(map[string]PromotionRule, len(rules))
	for i, rule := range rules {
		if strings.TrimSpace(rule.Code) == "" {
			return nil, fmt.Errorf("promotion %d: code is required", i)
		}
		if _, dup := byCode[rule.Code]; dup {
			return nil, fmt.Errorf("promotion %q: duplicate code", rule.Code)
		}
		discounts := make([]DiscountRule, 0, len(rule.DiscountRules))
		for j, d := range rule.DiscountRules {
			if strings.TrimSpace(d.Type) == "" {
				return nil, fmt.Errorf("promotion %q rule %d: type is required", rule.Code, j)
			}
			if d.Percent.IsNegative() {
				return nil, fmt.Errorf("promotion %q rule %d: discount cannot be negative", rule.Code, j)
			}
			discounts = append(discounts, d)
		}
		byCode[rule.Code] = PromotionRule{Code: rule.Code, DiscountRules: discounts}
	}
	return &Promotions{byCode: byCode}, nil
}

// MustPromotions is like NewPromotions but panics on invalid input.
func MustPromotions(rules []PromotionRule) *Promotions {
	p, err := NewPromotions(rules)
	if err != nil {
		panic(err)
	}
	return p
}

// Lookup returns the promotion registered under code. Matching is exact and
// case-sensitive.
func (p *Promotions) Lookup(code string) (PromotionRule, bool) {
	if p == nil {
		return PromotionRule{}, false
	}
	rule, ok := p.byCode[code]
	if !ok {
		return PromotionRule{}, false
	}
	rule.DiscountRules = append([]DiscountRule(nil), rule.DiscountRules...)
	return rule, true
}

// Codes returns the configured promo codes in lexical order.
func (p *Promotions) Codes() []string {
	if p == nil {
		return nil
	}
	codes := make([]string, 0, len(p.byCode))
	for code := range p.byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Len reports the number of configured promotions.
func (p *Promotions) Len() int {
	if p == nil {
		return 0
	}
	return len(p.byCode)
}

// IsClientError reports whether err was caused by the caller's input rather than the
// service.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPromoCode) || errors.Is(err, ErrInvalidLineItem)
}
