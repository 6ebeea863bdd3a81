package domain

import (
	"github.com/shopspring/decimal"
)

// PriceTable maps a model name to its price per 1000 tokens.
type PriceTable map[string]decimal.Decimal

var perThousand = decimal.NewFromInt(1000)

// DefaultPriceTable returns the built-in per-model pricing.
func DefaultPriceTable() PriceTable {
	return PriceTable{
		"gpt-3.5-turbo": decimal.RequireFromString("0.002"),
		"gpt-4":         decimal.RequireFromString("0.060"),
	}
}

// Known reports whether the table prices the given model.
func (p PriceTable) Known(model string) bool {
	_, ok := p[model]
	return ok
}

// Cost computes the fixed-precision cost of a token count for a model.
// The zero value is returned for unknown models; gate with Known first.
func (p PriceTable) Cost(model string, tokens int) decimal.Decimal {
	price, ok := p[model]
	if !ok {
		return decimal.Zero
	}
	return RoundMoney(price.Mul(decimal.NewFromInt(int64(tokens))).Div(perThousand))
}
