package database

import (
	"context"
	"testing"
	"time"

	"hot-swap-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupStore creates a store backed by a fresh in-memory database.
func setupStore(t *testing.T) *WalletStore {
	db, err := NewDatabase("file::memory:")
	require.NoError(t, err)
	return NewWalletStore(db)
}

func newWallet(id string) *models.Wallet {
	return &models.Wallet{
		ID:           id,
		Address:      "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23",
		PrivateKey:   "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318",
		TokenAddress: "0x0E09FaBB73Bd3Ade0a17ECC321fD13a19e81cE82",
		Strategy:     models.StrategyMixed,
		IntervalMs:   60000,
	}
}

func TestWalletStore_CreateGetList(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newWallet("w1")))
	require.NoError(t, store.Create(ctx, newWallet("w2")))

	got, err := store.Get(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, "w1", got.ID)
	assert.Equal(t, models.StrategyMixed, got.Strategy)
	assert.Equal(t, models.ActionNone, got.LastAction)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestWalletStore_GetMissing(t *testing.T) {
	store := setupStore(t)

	_, err := store.Get(context.Background(), "nope")

	assert.True(t, models.IsCode(err, models.ErrorCodeNotFound))
}

func TestWalletStore_Update(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, newWallet("w1")))

	t.Run("RecordsActionAndClearsError", func(t *testing.T) {
		_, err := store.Update(ctx, "w1", models.ErrorResult("Buy failed: boom", time.Now()))
		require.NoError(t, err)

		now := time.Now()
		got, err := store.Update(ctx, "w1", models.ActionResult(models.ActionBuy, now))

		require.NoError(t, err)
		assert.Equal(t, models.ActionBuy, got.LastAction)
		assert.Empty(t, got.LastError)
		require.NotNil(t, got.LastActionTime)
		assert.WithinDuration(t, now, *got.LastActionTime, time.Second)
	})

	t.Run("PartialSettings", func(t *testing.T) {
		active := true
		interval := int64(30000)

		got, err := store.Update(ctx, "w1", models.WalletPatch{Active: &active, IntervalMs: &interval})

		require.NoError(t, err)
		assert.True(t, got.Active)
		assert.Equal(t, int64(30000), got.IntervalMs)
		assert.Equal(t, models.ActionBuy, got.LastAction, "untouched fields keep their values")
	})

	t.Run("Missing", func(t *testing.T) {
		active := false
		_, err := store.Update(ctx, "missing", models.WalletPatch{Active: &active})
		assert.True(t, models.IsCode(err, models.ErrorCodeNotFound))
	})
}

func TestWalletStore_DeleteAndKeys(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	w := newWallet("w1")
	require.NoError(t, store.Create(ctx, w))

	key, err := store.PrivateKey(ctx, "0x2C7536E3605D9C16A7A3D7B1898E529396A65C23")
	require.NoError(t, err)
	assert.Equal(t, w.PrivateKey, key)

	require.NoError(t, store.Delete(ctx, "w1"))
	assert.True(t, models.IsCode(store.Delete(ctx, "w1"), models.ErrorCodeNotFound))

	_, err = store.PrivateKey(ctx, w.Address)
	assert.True(t, models.IsCode(err, models.ErrorCodeNotFound))
}

func TestWalletStore_Trades(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordTrade(ctx, &models.Trade{WalletID: "w1", Action: models.ActionBuy, Success: true, Timestamp: 1}))
	require.NoError(t, store.RecordTrade(ctx, &models.Trade{WalletID: "w1", Action: models.ActionSell, Success: false, Timestamp: 2}))
	require.NoError(t, store.RecordTrade(ctx, &models.Trade{WalletID: "w2", Action: models.ActionBuy, Success: true, Timestamp: 3}))

	trades, err := store.Trades(ctx, "w1", 0)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, models.ActionSell, trades[0].Action, "most recent first")

	all, err := store.Trades(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "w2", all[0].WalletID)
}
