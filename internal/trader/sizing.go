package trader

import (
	"hot-swap-bot-go/internal/models"

	"github.com/shopspring/decimal"
)

var (
	hundred  = decimal.NewFromInt(100)
	thousand = decimal.NewFromInt(1000)
)

// SlippageFactor returns (100 - slippage) / 100 truncated to three decimals.
func SlippageFactor(slippage float64) decimal.Decimal {
	return hundred.Sub(decimal.NewFromFloat(slippage)).
		Div(hundred).
		Mul(thousand).
		Floor().
		Div(thousand)
}

// MinAmountOut applies the slippage tolerance (in percent) to an expected output.
func MinAmountOut(expected decimal.Decimal, slippage float64) decimal.Decimal {
	return expected.Mul(SlippageFactor(slippage))
}

// SellAmount returns the share of balance to sell. A result that is not
// positive is an InsufficientBalance error.
func SellAmount(balance decimal.Decimal, percentage float64) (decimal.Decimal, error) {
	amount := balance.Mul(decimal.NewFromFloat(percentage)).Div(hundred)
	if !amount.IsPositive() {
		return decimal.Zero, models.NewInsufficientBalance("Insufficient token balance")
	}
	return amount, nil
}
