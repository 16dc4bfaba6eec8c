package models

import (
	"fmt"
	"time"
)

// Strategy selects which side(s) a wallet trades on each cycle.
type Strategy string

const (
	StrategyBuy   Strategy = "buy"
	StrategySell  Strategy = "sell"
	StrategyMixed Strategy = "mixed"
)

// Valid reports whether s is one of the known strategies.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyBuy, StrategySell, StrategyMixed:
		return true
	}
	return false
}

// Action is the side of a completed trade. The zero value means no action yet.
type Action string

const (
	ActionNone Action = ""
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// Trading parameter defaults, applied when a wallet leaves a field unset.
const (
	DefaultBuyAmount         = 0.01
	DefaultSellPercentage    = 100.0
	DefaultSlippageTolerance = 0.5
	DefaultIntervalMs        = int64(60000)
)

// Wallet is the durable state of one trading participant.
type Wallet struct {
	ID                string     `gorm:"primaryKey" json:"id"`
	Name              string     `json:"name"`
	Address           string     `gorm:"not null;index" json:"address"`
	PrivateKey        string     `gorm:"not null" json:"-"`
	TokenAddress      string     `json:"tokenAddress"`
	Strategy          Strategy   `gorm:"default:mixed" json:"strategy"`
	Active            bool       `gorm:"index" json:"active"`
	IntervalMs        int64      `json:"intervalMs"`
	BuyAmount         float64    `json:"buyAmount"`
	SellPercentage    float64    `json:"sellPercentage"`
	SlippageTolerance float64    `json:"slippageTolerance"`
	LastAction        Action     `json:"lastAction"`
	LastActionTime    *time.Time `json:"lastActionTime,omitempty"`
	LastError         string     `json:"lastError,omitempty"`
	LastErrorTime     *time.Time `json:"lastErrorTime,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// EffectiveBuyAmount returns the native amount spent per buy.
func (w *Wallet) EffectiveBuyAmount() float64 {
	if w.BuyAmount <= 0 {
		return DefaultBuyAmount
	}
	return w.BuyAmount
}

// EffectiveSellPercentage returns the share of the token balance sold per sell.
func (w *Wallet) EffectiveSellPercentage() float64 {
	if w.SellPercentage <= 0 {
		return DefaultSellPercentage
	}
	return w.SellPercentage
}

// EffectiveSlippage returns the slippage tolerance in percent.
func (w *Wallet) EffectiveSlippage() float64 {
	if w.SlippageTolerance <= 0 {
		return DefaultSlippageTolerance
	}
	return w.SlippageTolerance
}

// WalletPatch is a partial update. Nil fields are left untouched.
type WalletPatch struct {
	Name              *string
	TokenAddress      *string
	Strategy          *Strategy
	Active            *bool
	IntervalMs        *int64
	BuyAmount         *float64
	SellPercentage    *float64
	SlippageTolerance *float64

	LastAction     *Action
	LastActionTime *time.Time
	LastError      *string
	LastErrorTime  *time.Time
}

// Columns converts the patch into a column map suitable for a single UPDATE.
func (p WalletPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.TokenAddress != nil {
		cols["token_address"] = *p.TokenAddress
	}
	if p.Strategy != nil {
		cols["strategy"] = *p.Strategy
	}
	if p.Active != nil {
		cols["active"] = *p.Active
	}
	if p.IntervalMs != nil {
		cols["interval_ms"] = *p.IntervalMs
	}
	if p.BuyAmount != nil {
		cols["buy_amount"] = *p.BuyAmount
	}
	if p.SellPercentage != nil {
		cols["sell_percentage"] = *p.SellPercentage
	}
	if p.SlippageTolerance != nil {
		cols["slippage_tolerance"] = *p.SlippageTolerance
	}
	if p.LastAction != nil {
		cols["last_action"] = *p.LastAction
	}
	if p.LastActionTime != nil {
		cols["last_action_time"] = *p.LastActionTime
	}
	if p.LastError != nil {
		cols["last_error"] = *p.LastError
	}
	if p.LastErrorTime != nil {
		cols["last_error_time"] = *p.LastErrorTime
	}
	return cols
}

// Validate checks the user-editable fields of the patch.
func (p WalletPatch) Validate() error {
	if p.Strategy != nil && !p.Strategy.Valid() {
		return NewValidationError(fmt.Sprintf("invalid strategy %q", *p.Strategy))
	}
	if p.IntervalMs != nil && *p.IntervalMs < 0 {
		return NewValidationError("interval must not be negative")
	}
	if p.BuyAmount != nil && *p.BuyAmount < 0 {
		return NewValidationError("buy amount must not be negative")
	}
	if p.SellPercentage != nil && (*p.SellPercentage < 0 || *p.SellPercentage > 100) {
		return NewValidationError("sell percentage must be between 0 and 100")
	}
	if p.SlippageTolerance != nil && (*p.SlippageTolerance < 0 || *p.SlippageTolerance >= 100) {
		return NewValidationError("slippage tolerance must be between 0 and 100")
	}
	return nil
}

// ActionResult builds the patch recorded after a successful cycle.
func ActionResult(action Action, at time.Time) WalletPatch {
	noErr := ""
	return WalletPatch{LastAction: &action, LastActionTime: &at, LastError: &noErr}
}

// ErrorResult builds the patch recorded after a failed cycle.
func ErrorResult(msg string, at time.Time) WalletPatch {
	return WalletPatch{LastError: &msg, LastErrorTime: &at}
}
