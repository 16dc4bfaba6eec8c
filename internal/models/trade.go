package models

import "gorm.io/gorm"

// Trade records one swap attempt made by the strategy engine.
type Trade struct {
	gorm.Model
	WalletID     string  `gorm:"index" json:"wallet_id"`
	Action       Action  `json:"action"`
	TokenAddress string  `json:"token_address"`
	AmountIn     float64 `json:"amount_in"`
	ExpectedOut  float64 `json:"expected_out"`
	MinAmountOut float64 `json:"min_amount_out"`
	PriceSource  string  `json:"price_source,omitempty"`
	TxHash       string  `json:"tx_hash,omitempty"`
	Success      bool    `json:"success"`
	Error        string  `json:"error,omitempty"`
	Timestamp    int64   `gorm:"index" json:"timestamp"` // unix millis
}
