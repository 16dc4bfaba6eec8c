package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hot-swap-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	wallets  []models.Wallet
	trades   []models.Trade
	err      error
	walletID string
	limit    int
}

func (f *fakeStore) List(ctx context.Context) ([]models.Wallet, error) {
	return f.wallets, f.err
}

func (f *fakeStore) Trades(ctx context.Context, walletID string, limit int) ([]models.Trade, error) {
	f.walletID, f.limit = walletID, limit
	return f.trades, f.err
}

func TestStatisticsHandler(t *testing.T) {
	// Arrange
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Hour).UnixMilli()
	old := now.Add(-48 * time.Hour).UnixMilli()
	store := &fakeStore{trades: []models.Trade{
		{Action: models.ActionBuy, Success: true, AmountIn: 0.01, Timestamp: recent},
		{Action: models.ActionSell, Success: false, Timestamp: recent},
		{Action: models.ActionBuy, Success: true, AmountIn: 0.02, Timestamp: old},
		{Action: models.ActionSell, Success: true, Timestamp: old},
	}}
	h := NewAPIHandler(zap.NewNop(), store)
	h.now = func() time.Time { return now }

	// Act
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/statistics", nil))

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	var resp StatisticsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	assert.Equal(t, int64(4), resp.AllTime.TotalTrades)
	assert.Equal(t, int64(3), resp.AllTime.SuccessfulTrades)
	assert.Equal(t, int64(2), resp.AllTime.Buys)
	assert.Equal(t, int64(1), resp.AllTime.Sells)
	assert.InDelta(t, 0.75, resp.AllTime.SuccessRate, 1e-9)
	assert.InDelta(t, 0.03, resp.AllTime.NativeSpent, 1e-9)

	assert.Equal(t, int64(2), resp.Since24h.TotalTrades)
	assert.InDelta(t, 0.5, resp.Since24h.SuccessRate, 1e-9)
}

func TestTradesHandler(t *testing.T) {
	t.Run("Filters", func(t *testing.T) {
		store := &fakeStore{trades: []models.Trade{{WalletID: "w1"}}}
		h := NewAPIHandler(zap.NewNop(), store)

		rec := httptest.NewRecorder()
		h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trades?wallet_id=w1&limit=5", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "w1", store.walletID)
		assert.Equal(t, 5, store.limit)
	})

	t.Run("BadLimit", func(t *testing.T) {
		h := NewAPIHandler(zap.NewNop(), &fakeStore{})

		rec := httptest.NewRecorder()
		h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trades?limit=-1", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("StoreError", func(t *testing.T) {
		h := NewAPIHandler(zap.NewNop(), &fakeStore{err: errors.New("disk I/O error")})

		rec := httptest.NewRecorder()
		h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trades", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestWalletsHandlerOmitsKeys(t *testing.T) {
	store := &fakeStore{wallets: []models.Wallet{{
		ID:         "w1",
		Address:    "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23",
		PrivateKey: "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318",
		Strategy:   models.StrategyMixed,
		Active:     true,
	}}}
	h := NewAPIHandler(zap.NewNop(), store)

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/wallets", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "4c0883a6")
	var out []WalletSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	require.Len(t, out, 1)
	assert.Equal(t, "mixed", out[0].Strategy)
}
