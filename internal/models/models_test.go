package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWalletEffectiveDefaults(t *testing.T) {
	var w Wallet
	assert.Equal(t, DefaultBuyAmount, w.EffectiveBuyAmount())
	assert.Equal(t, DefaultSellPercentage, w.EffectiveSellPercentage())
	assert.Equal(t, DefaultSlippageTolerance, w.EffectiveSlippage())

	w = Wallet{BuyAmount: 0.2, SellPercentage: 25, SlippageTolerance: 3}
	assert.Equal(t, 0.2, w.EffectiveBuyAmount())
	assert.Equal(t, 25.0, w.EffectiveSellPercentage())
	assert.Equal(t, 3.0, w.EffectiveSlippage())
}

func TestStrategyValid(t *testing.T) {
	assert.True(t, StrategyBuy.Valid())
	assert.True(t, StrategySell.Valid())
	assert.True(t, StrategyMixed.Valid())
	assert.False(t, Strategy("hodl").Valid())
	assert.False(t, Strategy("").Valid())
}

func TestWalletPatchColumns(t *testing.T) {
	active := false
	interval := int64(15000)
	cols := WalletPatch{Active: &active, IntervalMs: &interval}.Columns()

	assert.Equal(t, map[string]interface{}{"active": false, "interval_ms": int64(15000)}, cols)
	assert.Empty(t, WalletPatch{}.Columns())
}

func TestWalletPatchValidate(t *testing.T) {
	bad := Strategy("hodl")
	negative := int64(-1)
	tooMuch := 101.0
	slippage := 100.0
	ok := StrategySell

	testCases := []struct {
		name    string
		patch   WalletPatch
		wantErr bool
	}{
		{name: "Empty patch", patch: WalletPatch{}},
		{name: "Valid strategy", patch: WalletPatch{Strategy: &ok}},
		{name: "Unknown strategy", patch: WalletPatch{Strategy: &bad}, wantErr: true},
		{name: "Negative interval", patch: WalletPatch{IntervalMs: &negative}, wantErr: true},
		{name: "Sell percentage above 100", patch: WalletPatch{SellPercentage: &tooMuch}, wantErr: true},
		{name: "Slippage of 100", patch: WalletPatch{SlippageTolerance: &slippage}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.patch.Validate()
			if tc.wantErr {
				assert.True(t, IsCode(err, ErrorCodeValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResultPatches(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	p := ActionResult(ActionSell, at)
	assert.Equal(t, ActionSell, *p.LastAction)
	assert.Equal(t, at, *p.LastActionTime)
	assert.Equal(t, "", *p.LastError)

	p = ErrorResult("Buy failed: boom", at)
	assert.Nil(t, p.LastAction)
	assert.Equal(t, "Buy failed: boom", *p.LastError)
	assert.Equal(t, at, *p.LastErrorTime)
}

func TestErrorCodes(t *testing.T) {
	cause := errors.New("rpc down")
	err := fmt.Errorf("quote: %w", NewExchangeError("swap failed", cause))

	assert.Equal(t, ErrorCodeExchange, CodeOf(err))
	assert.True(t, IsCode(err, ErrorCodeExchange))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "quote: swap failed: rpc down", err.Error())

	assert.Equal(t, ErrorCodeInternal, CodeOf(errors.New("plain")))
	assert.False(t, IsCode(nil, ErrorCodeInternal))
}
