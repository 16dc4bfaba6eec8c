// Package chain talks to an EVM chain through a Uniswap-v2-style router.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

// NativeDecimals is the precision of the chain's native asset.
const NativeDecimals = 18

// Direction of a swap relative to the native asset.
type Direction string

const (
	DirectionBuy  Direction = "buy"  // native -> token
	DirectionSell Direction = "sell" // token -> native
)

// SwapRequest describes one exact-input swap. Amounts are in whole units.
type SwapRequest struct {
	Direction    Direction
	Token        string
	AmountIn     decimal.Decimal
	MinAmountOut decimal.Decimal
	Account      string
	Deadline     time.Time
}

// Receipt is the confirmed outcome of a swap.
type Receipt struct {
	TxHash      string
	BlockNumber uint64
	GasUsed     uint64
}

// ExchangeClient is the chain capability used by the trading engine.
type ExchangeClient interface {
	// Quote returns the output in whole units of the last path element for amountIn
	// whole units of the first.
	Quote(ctx context.Context, path []string, amountIn decimal.Decimal) (decimal.Decimal, error)
	// Swap submits the swap and returns once it is mined.
	Swap(ctx context.Context, req SwapRequest) (Receipt, error)
	BalanceOf(ctx context.Context, account, token string) (decimal.Decimal, error)
	NativeBalance(ctx context.Context, account string) (decimal.Decimal, error)
	WrappedNative() string
}

// KeySource resolves the signing key for an account.
type KeySource interface {
	PrivateKey(ctx context.Context, address string) (string, error)
}

// IsAddress reports whether s is a 20-byte hex address.
func IsAddress(s string) bool {
	return common.IsHexAddress(s)
}

// AddressFromPrivateKey derives the checksummed account address of a hex private key.
func AddressFromPrivateKey(hexKey string) (string, error) {
	pk, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return "", fmt.Errorf("invalid private key: %w", err)
	}
	return crypto.PubkeyToAddress(pk.PublicKey).Hex(), nil
}

// ToBaseUnits converts a whole-unit amount to integer base units, truncating
// any precision beyond decimals.
func ToBaseUnits(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Floor().BigInt()
}

// FromBaseUnits converts integer base units to a whole-unit amount.
func FromBaseUnits(amount *big.Int, decimals int32) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -decimals)
}

func toAddresses(path []string) ([]common.Address, error) {
	out := make([]common.Address, len(path))
	for i, p := range path {
		if !common.IsHexAddress(p) {
			return nil, fmt.Errorf("invalid address in path: %q", p)
		}
		out[i] = common.HexToAddress(p)
	}
	return out, nil
}
