package trader

import (
	"context"
	"testing"

	"hot-swap-bot-go/internal/chain"
	"hot-swap-bot-go/internal/database"
	"hot-swap-bot-go/internal/models"
	"hot-swap-bot-go/internal/price"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testKey     = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	testAddress = "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"
	testToken   = "0x0E09FaBB73Bd3Ade0a17ECC321fD13a19e81cE82"
	testWrapped = "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"
)

// MockExchange is a mock implementation of chain.ExchangeClient.
type MockExchange struct {
	mock.Mock
}

var _ chain.ExchangeClient = (*MockExchange)(nil)

func (m *MockExchange) Quote(ctx context.Context, path []string, amountIn decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(path, amountIn)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockExchange) Swap(ctx context.Context, req chain.SwapRequest) (chain.Receipt, error) {
	args := m.Called(req)
	return args.Get(0).(chain.Receipt), args.Error(1)
}

func (m *MockExchange) BalanceOf(ctx context.Context, account, token string) (decimal.Decimal, error) {
	args := m.Called(account, token)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockExchange) NativeBalance(ctx context.Context, account string) (decimal.Decimal, error) {
	args := m.Called(account)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockExchange) WrappedNative() string { return testWrapped }

// MockPriceResolver is a mock implementation of PriceResolver.
type MockPriceResolver struct {
	mock.Mock
}

func (m *MockPriceResolver) ResolvePrice(ctx context.Context, tokenAddress string) (price.Resolution, error) {
	args := m.Called(tokenAddress)
	return args.Get(0).(price.Resolution), args.Error(1)
}

// dec is a matcher for decimal arguments compared by value.
func dec(s string) interface{} {
	want := decimal.RequireFromString(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}

// setupStore creates a wallet store backed by a fresh in-memory database.
func setupStore(t *testing.T) *database.WalletStore {
	db, err := database.NewDatabase("file::memory:")
	require.NoError(t, err)
	return database.NewWalletStore(db)
}

// setupTest creates an engine over an in-memory store with mocked chain and prices.
func setupTest(t *testing.T) (*database.WalletStore, *MockExchange, *MockPriceResolver, *Engine) {
	store := setupStore(t)
	exchange := new(MockExchange)
	prices := new(MockPriceResolver)
	engine := newTestEngine(store, exchange, prices)
	return store, exchange, prices, engine
}

func newTestEngine(store *database.WalletStore, exchange chain.ExchangeClient, prices PriceResolver) *Engine {
	return NewEngine(zap.NewNop(), store, store, exchange, prices, EngineOptions{})
}

func createWallet(t *testing.T, store *database.WalletStore, id string, mutate func(w *models.Wallet)) *models.Wallet {
	w := &models.Wallet{
		ID:           id,
		Address:      testAddress,
		PrivateKey:   testKey,
		TokenAddress: testToken,
		Strategy:     models.StrategyMixed,
		Active:       true,
		IntervalMs:   60000,
	}
	if mutate != nil {
		mutate(w)
	}
	require.NoError(t, store.Create(context.Background(), w))
	return w
}
