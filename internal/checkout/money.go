package checkout

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-books/internal/pricing"
)

// Amount is a decimal that marshals as a bare JSON number fixed at two fractional digits,
// e.g. 950.50 rather than 950.5 or "950.50".
type Amount decimal.Decimal

// MarshalJSON implements json.Marshaler.
func (d Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(json.Number(decimal.Decimal(d).StringFixedBank(pricing.Scale)))
}

// Decimal returns the underlying value.
func (d Amount) Decimal() decimal.Decimal { return decimal.Decimal(d) }
