package trader

import (
	"testing"

	"hot-swap-bot-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSellAmount(t *testing.T) {
	t.Run("Quarter of balance", func(t *testing.T) {
		amount, err := SellAmount(decimal.NewFromInt(100), 25)
		require.NoError(t, err)
		assert.True(t, amount.Equal(decimal.NewFromInt(25)), amount.String())
	})

	t.Run("Whole balance keeps full precision", func(t *testing.T) {
		balance := decimal.RequireFromString("1234.567890123456789")
		amount, err := SellAmount(balance, 100)
		require.NoError(t, err)
		assert.True(t, amount.Equal(balance))
	})

	t.Run("Zero balance", func(t *testing.T) {
		_, err := SellAmount(decimal.Zero, 50)
		assert.True(t, models.IsCode(err, models.ErrorCodeInsufficientBalance))
	})

	t.Run("Zero percentage", func(t *testing.T) {
		_, err := SellAmount(decimal.NewFromInt(10), 0)
		assert.True(t, models.IsCode(err, models.ErrorCodeInsufficientBalance))
	})
}

func TestMinAmountOut(t *testing.T) {
	testCases := []struct {
		name     string
		expected string
		slippage float64
		want     string
	}{
		{name: "Default slippage", expected: "1000", slippage: 0.5, want: "995"},
		{name: "One percent", expected: "1000", slippage: 1, want: "990"},
		{name: "Factor truncated to three decimals", expected: "1000", slippage: 0.0005, want: "999"},
		{name: "Zero slippage", expected: "12.5", slippage: 0, want: "12.5"},
		{name: "Fractional output", expected: "0.002", slippage: 0.5, want: "0.00199"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := MinAmountOut(decimal.RequireFromString(tc.expected), tc.slippage)
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "got %s", got)
		})
	}
}

func TestNextAction(t *testing.T) {
	testCases := []struct {
		strategy models.Strategy
		last     models.Action
		want     models.Action
	}{
		{models.StrategyBuy, models.ActionNone, models.ActionBuy},
		{models.StrategyBuy, models.ActionBuy, models.ActionBuy},
		{models.StrategySell, models.ActionNone, models.ActionSell},
		{models.StrategySell, models.ActionSell, models.ActionSell},
		{models.StrategyMixed, models.ActionNone, models.ActionBuy},
		{models.StrategyMixed, models.ActionBuy, models.ActionSell},
		{models.StrategyMixed, models.ActionSell, models.ActionBuy},
	}

	for _, tc := range testCases {
		t.Run(string(tc.strategy)+"/"+string(tc.last), func(t *testing.T) {
			got, err := NextAction(tc.strategy, tc.last)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := NextAction("hodl", models.ActionNone)
	assert.True(t, models.IsCode(err, models.ErrorCodeValidation))
	assert.EqualError(t, err, "Unknown strategy: hodl")
}

func TestMixedAlternation(t *testing.T) {
	last := models.ActionNone
	var seq []models.Action
	for i := 0; i < 5; i++ {
		next, err := NextAction(models.StrategyMixed, last)
		require.NoError(t, err)
		seq = append(seq, next)
		last = next
	}
	assert.Equal(t, []models.Action{
		models.ActionBuy, models.ActionSell, models.ActionBuy, models.ActionSell, models.ActionBuy,
	}, seq)
}
