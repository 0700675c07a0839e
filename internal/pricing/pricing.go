// Package pricing converts catalog base prices into final charges. It is
// pure: no store access, no side effects.
package pricing

import (
	"math"

	"github.com/spf13/cast"
)

// DefaultExchangeRate converts the base price (USD) to the charged
// currency (JPY).
const DefaultExchangeRate = 150

// PremiumDiscount applies to premium buyers on non-collab models.
const PremiumDiscount = 0.9

// Engine computes final charges with a fixed exchange rate.
type Engine struct {
	Rate float64
}

// NewEngine returns an Engine with the given exchange rate, falling back
// to DefaultExchangeRate for zero or negative rates.
func NewEngine(rate float64) Engine {
	if rate <= 0 {
		rate = DefaultExchangeRate
	}
	return Engine{Rate: rate}
}

// Price converts basePrice and applies the premium discount unless the
// model is a collab. The result is floored, never rounded up. A NaN or
// infinite basePrice degrades to 0 instead of failing.
func (e Engine) Price(basePrice float64, isCollab, isPremium bool) int64 {
	if math.IsNaN(basePrice) || math.IsInf(basePrice, 0) {
		basePrice = 0
	}
	converted := basePrice * e.Rate
	if isPremium && !isCollab {
		converted *= PremiumDiscount
	}
	return int64(math.Floor(converted))
}

// Price computes the final charge at the default exchange rate.
func Price(basePrice float64, isCollab, isPremium bool) int64 {
	return Engine{Rate: DefaultExchangeRate}.Price(basePrice, isCollab, isPremium)
}

// Truthy normalizes the loosely-typed premium/collab flags that arrive
// from query strings and JSON bodies. Boolean true, numeric 1 and the
// strings "true"/"1" are truthy; everything else is falsy.
func Truthy(v interface{}) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	s := cast.ToString(v)
	return s == "true" || s == "1"
}
