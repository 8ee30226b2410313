package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-books/internal/pricing"
)

type promotionFile struct {
	Code          string             `koanf:"code"`
	DiscountRules []discountRuleFile `koanf:"discountRules"`
}

type discountRuleFile struct {
	Type string `koanf:"type"`
	// Discount is decoded weakly so both 10 and "12.5" are accepted.
	Discount string `koanf:"discount"`
}

// LoadPromotions reads the promotion rules from a YAML file of the form
//
//	promotions:
//	  - code: code1
//	    discountRules:
//	      - type: FICTION
//	        discount: 10
//
// An empty path yields an empty rule set in which every promo code is invalid.
func LoadPromotions(path string) (*pricing.Promotions, error) {
	if strings.TrimSpace(path) == "" {
		return pricing.NewPromotions(nil)
	}
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load promotions %s: %w", path, err)
	}
	var raw []promotionFile
	if err := k.Unmarshal("promotions", &raw); err != nil {
		return nil, fmt.Errorf("decode promotions %s: %w", path, err)
	}
	return buildPromotions(raw)
}

func buildPromotions(raw []promotionFile) (*pricing.Promotions, error) {
	rules := make([]pricing.PromotionRule, 0, len(raw))
	for _, p := range raw {
		discounts := make([]pricing.DiscountRule, 0, len(p.DiscountRules))
		for _, d := range p.DiscountRules {
			pct, err := decimal.NewFromString(strings.TrimSpace(d.Discount))
			if err != nil {
				return nil, fmt.Errorf("promotion %q type %q: invalid discount %q", p.Code, d.Type, d.Discount)
			}
			discounts = append(discounts, pricing.DiscountRule{Type: d.Type, Percent: pct})
		}
		rules = append(rules, pricing.PromotionRule{Code: p.Code, DiscountRules: discounts})
	}
	return pricing.NewPromotions(rules)
}
