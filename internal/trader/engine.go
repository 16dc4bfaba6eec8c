package trader

import (
	"context"
	"fmt"
	"time"

	"hot-swap-bot-go/internal/chain"
	"hot-swap-bot-go/internal/logger"
	"hot-swap-bot-go/internal/models"
	"hot-swap-bot-go/internal/price"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// WalletStore is keyed access to wallet records.
type WalletStore interface {
	Get(ctx context.Context, id string) (*models.Wallet, error)
	List(ctx context.Context) ([]models.Wallet, error)
	Update(ctx context.Context, id string, patch models.WalletPatch) (*models.Wallet, error)
}

// TradeRecorder appends swap attempts to the trade log.
type TradeRecorder interface {
	RecordTrade(ctx context.Context, trade *models.Trade) error
}

// PriceResolver resolves a token price in the native asset.
type PriceResolver interface {
	ResolvePrice(ctx context.Context, tokenAddress string) (price.Resolution, error)
}

// Result is the outcome of one strategy cycle.
type Result struct {
	Success bool          `json:"success"`
	Action  models.Action `json:"action,omitempty"`
	TxRef   string        `json:"txHash,omitempty"`
	Message string        `json:"message"`
	Err     error         `json:"-"`
}

// EngineOptions holds the swap execution settings.
type EngineOptions struct {
	SwapDeadline time.Duration
}

// Engine executes one buy or sell per call for a wallet.
type Engine struct {
	logger   *zap.Logger
	store    WalletStore
	trades   TradeRecorder
	exchange chain.ExchangeClient
	prices   PriceResolver
	opts     EngineOptions
	now      func() time.Time
}

// NewEngine creates a new trading engine.
func NewEngine(logger *zap.Logger, store WalletStore, trades TradeRecorder, exchange chain.ExchangeClient, prices PriceResolver, opts EngineOptions) *Engine {
	if opts.SwapDeadline <= 0 {
		opts.SwapDeadline = 20 * time.Minute
	}
	return &Engine{
		logger:   logger.Named("engine"),
		store:    store,
		trades:   trades,
		exchange: exchange,
		prices:   prices,
		opts:     opts,
		now:      time.Now,
	}
}

// Execute runs the wallet's strategy once. Preconditions are checked before
// any exchange call. Every outcome past the preconditions is recorded on the
// wallet, even when ctx is cancelled mid-swap.
func (e *Engine) Execute(ctx context.Context, walletID string) Result {
	l := logger.ForWallet(e.logger, walletID)

	w, err := e.store.Get(ctx, walletID)
	if err != nil {
		return Result{Message: err.Error(), Err: err}
	}
	if !w.Active {
		err := models.NewValidationError("Wallet is not active")
		return Result{Message: err.Error(), Err: err}
	}
	if w.TokenAddress == "" {
		return e.fail(ctx, l, w, models.NewValidationError("Token address not set"), "")
	}

	action, err := NextAction(w.Strategy, w.LastAction)
	if err != nil {
		return e.fail(ctx, l, w, err, "")
	}

	l = l.With(zap.String("action", string(action)), zap.String("token", w.TokenAddress))
	if action == models.ActionBuy {
		return e.buy(ctx, l, w)
	}
	return e.sell(ctx, l, w)
}

func (e *Engine) buy(ctx context.Context, l *zap.Logger, w *models.Wallet) Result {
	amount := decimal.NewFromFloat(w.EffectiveBuyAmount())
	trade := e.newTrade(w, models.ActionBuy, amount)

	path := []string{e.exchange.WrappedNative(), w.TokenAddress}
	expected, err := e.expectedOut(ctx, l, trade, path, amount, func(p decimal.Decimal) decimal.Decimal {
		return amount.Div(p)
	})
	if err != nil {
		return e.failTrade(ctx, l, w, trade, err, "Buy failed: ")
	}

	return e.swap(ctx, l, w, trade, chain.DirectionBuy, amount, expected)
}

func (e *Engine) sell(ctx context.Context, l *zap.Logger, w *models.Wallet) Result {
	balance, err := e.exchange.BalanceOf(ctx, w.Address, w.TokenAddress)
	if err != nil {
		trade := e.newTrade(w, models.ActionSell, decimal.Zero)
		return e.failTrade(ctx, l, w, trade, models.NewExchangeError("failed to read token balance", err), "Sell failed: ")
	}

	amount, err := SellAmount(balance, w.EffectiveSellPercentage())
	trade := e.newTrade(w, models.ActionSell, amount)
	if err != nil {
		return e.failTrade(ctx, l, w, trade, err, "Sell failed: ")
	}

	path := []string{w.TokenAddress, e.exchange.WrappedNative()}
	expected, err := e.expectedOut(ctx, l, trade, path, amount, func(p decimal.Decimal) decimal.Decimal {
		return amount.Mul(p)
	})
	if err != nil {
		return e.failTrade(ctx, l, w, trade, err, "Sell failed: ")
	}

	return e.swap(ctx, l, w, trade, chain.DirectionSell, amount, expected)
}

// expectedOut asks the router for a quote and falls back to the resolved
// token price when the quote is unavailable.
func (e *Engine) expectedOut(ctx context.Context, l *zap.Logger, trade *models.Trade, path []string, amount decimal.Decimal, fromPrice func(decimal.Decimal) decimal.Decimal) (decimal.Decimal, error) {
	out, err := e.exchange.Quote(ctx, path, amount)
	if err == nil && out.IsPositive() {
		trade.PriceSource = "router"
		return out, nil
	}
	l.Warn("Router quote unavailable, resolving price", zap.Error(err))

	res, err := e.prices.ResolvePrice(ctx, trade.TokenAddress)
	if err != nil {
		return decimal.Zero, err
	}
	trade.PriceSource = string(res.Source)
	return fromPrice(decimal.NewFromFloat(res.Price)), nil
}

func (e *Engine) swap(ctx context.Context, l *zap.Logger, w *models.Wallet, trade *models.Trade, dir chain.Direction, amount, expected decimal.Decimal) Result {
	minOut := MinAmountOut(expected, w.EffectiveSlippage())
	trade.ExpectedOut, _ = expected.Float64()
	trade.MinAmountOut, _ = minOut.Float64()

	prefix := "Buy failed: "
	if dir == chain.DirectionSell {
		prefix = "Sell failed: "
	}

	l.Info("Executing swap",
		zap.String("amount_in", amount.String()),
		zap.String("expected_out", expected.String()),
		zap.String("min_out", minOut.String()),
		zap.String("price_source", trade.PriceSource))

	receipt, err := e.exchange.Swap(ctx, chain.SwapRequest{
		Direction:    dir,
		Token:        w.TokenAddress,
		AmountIn:     amount,
		MinAmountOut: minOut,
		Account:      w.Address,
		Deadline:     e.now().Add(e.opts.SwapDeadline),
	})
	if err != nil {
		return e.failTrade(ctx, l, w, trade, models.NewExchangeError("swap failed", err), prefix)
	}

	trade.Success = true
	trade.TxHash = receipt.TxHash
	e.record(ctx, l, trade)

	action := trade.Action
	if _, err := e.store.Update(context.WithoutCancel(ctx), w.ID, models.ActionResult(action, e.now())); err != nil {
		l.Error("Failed to record action on wallet", zap.Error(err))
	}

	var msg string
	if action == models.ActionBuy {
		msg = fmt.Sprintf("Bought tokens with %s native", amount.String())
	} else {
		msg = fmt.Sprintf("Sold %s tokens", amount.String())
	}
	l.Info("Swap completed", zap.String("tx", receipt.TxHash))
	return Result{Success: true, Action: action, TxRef: receipt.TxHash, Message: msg}
}

func (e *Engine) newTrade(w *models.Wallet, action models.Action, amount decimal.Decimal) *models.Trade {
	amountIn, _ := amount.Float64()
	return &models.Trade{
		WalletID:     w.ID,
		Action:       action,
		TokenAddress: w.TokenAddress,
		AmountIn:     amountIn,
		Timestamp:    e.now().UnixMilli(),
	}
}

func (e *Engine) failTrade(ctx context.Context, l *zap.Logger, w *models.Wallet, trade *models.Trade, err error, prefix string) Result {
	trade.Error = err.Error()
	e.record(ctx, l, trade)
	res := e.fail(ctx, l, w, err, prefix)
	res.Action = trade.Action
	return res
}

// fail records the error on the wallet and returns the failed result.
func (e *Engine) fail(ctx context.Context, l *zap.Logger, w *models.Wallet, err error, prefix string) Result {
	msg := prefix + err.Error()
	l.Warn("Strategy cycle failed", zap.String("error_code", string(models.CodeOf(err))), zap.String("message", msg))
	if _, uerr := e.store.Update(context.WithoutCancel(ctx), w.ID, models.ErrorResult(msg, e.now())); uerr != nil {
		l.Error("Failed to record error on wallet", zap.Error(uerr))
	}
	return Result{Message: msg, Err: err}
}

func (e *Engine) record(ctx context.Context, l *zap.Logger, trade *models.Trade) {
	if e.trades == nil {
		return
	}
	if err := e.trades.RecordTrade(context.WithoutCancel(ctx), trade); err != nil {
		l.Error("Failed to save trade record", zap.Error(err))
	}
}

// TradingData is a snapshot of a wallet's balances and token price.
type TradingData struct {
	WalletID      string            `json:"walletId"`
	Address       string            `json:"address"`
	TokenAddress  string            `json:"tokenAddress,omitempty"`
	NativeBalance string            `json:"nativeBalance"`
	TokenBalance  string            `json:"tokenBalance,omitempty"`
	Price         *price.Resolution `json:"price,omitempty"`
	PriceError    string            `json:"priceError,omitempty"`
	LastAction    models.Action     `json:"lastAction"`
	LastError     string            `json:"lastError,omitempty"`
}

// TradingData reads the wallet's balances and resolves its token price.
// A missing price is reported in PriceError rather than failing the call.
func (e *Engine) TradingData(ctx context.Context, walletID string) (*TradingData, error) {
	w, err := e.store.Get(ctx, walletID)
	if err != nil {
		return nil, err
	}

	native, err := e.exchange.NativeBalance(ctx, w.Address)
	if err != nil {
		return nil, models.NewExchangeError("failed to read native balance", err)
	}

	data := &TradingData{
		WalletID:      w.ID,
		Address:       w.Address,
		TokenAddress:  w.TokenAddress,
		NativeBalance: native.String(),
		LastAction:    w.LastAction,
		LastError:     w.LastError,
	}
	if w.TokenAddress == "" {
		return data, nil
	}

	balance, err := e.exchange.BalanceOf(ctx, w.Address, w.TokenAddress)
	if err != nil {
		return nil, models.NewExchangeError("failed to read token balance", err)
	}
	data.TokenBalance = balance.String()

	res, err := e.prices.ResolvePrice(ctx, w.TokenAddress)
	if err != nil {
		data.PriceError = err.Error()
	} else {
		data.Price = &res
	}
	return data, nil
}
