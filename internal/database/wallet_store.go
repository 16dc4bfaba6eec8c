package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hot-swap-bot-go/internal/models"

	"gorm.io/gorm"
)

// WalletStore persists wallet records and their trade history.
type WalletStore struct {
	db *gorm.DB
}

// NewWalletStore creates a WalletStore on top of an open database.
func NewWalletStore(db *gorm.DB) *WalletStore {
	return &WalletStore{db: db}
}

// Get returns the wallet with the given id, or a NotFound error.
func (s *WalletStore) Get(ctx context.Context, id string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := s.db.WithContext(ctx).First(&wallet, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFound(fmt.Sprintf("wallet %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet %s: %w", id, err)
	}
	return &wallet, nil
}

// List returns every wallet ordered by creation time.
func (s *WalletStore) List(ctx context.Context) ([]models.Wallet, error) {
	var wallets []models.Wallet
	if err := s.db.WithContext(ctx).Order("created_at asc").Find(&wallets).Error; err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, nil
}

// Update applies a partial update in a single statement and returns the fresh record.
func (s *WalletStore) Update(ctx context.Context, id string, patch models.WalletPatch) (*models.Wallet, error) {
	cols := patch.Columns()
	if len(cols) > 0 {
		cols["updated_at"] = time.Now()
		res := s.db.WithContext(ctx).Model(&models.Wallet{}).Where("id = ?", id).Updates(cols)
		if res.Error != nil {
			return nil, fmt.Errorf("failed to update wallet %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, models.NewNotFound(fmt.Sprintf("wallet %s not found", id))
		}
	}
	return s.Get(ctx, id)
}

// Create inserts a new wallet.
func (s *WalletStore) Create(ctx context.Context, wallet *models.Wallet) error {
	if err := s.db.WithContext(ctx).Create(wallet).Error; err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

// Delete removes a wallet. Its trade history is kept.
func (s *WalletStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Wallet{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete wallet %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFound(fmt.Sprintf("wallet %s not found", id))
	}
	return nil
}

// PrivateKey returns the signing key of the wallet owning the given address.
func (s *WalletStore) PrivateKey(ctx context.Context, address string) (string, error) {
	var wallet models.Wallet
	err := s.db.WithContext(ctx).Select("private_key").Where("LOWER(address) = LOWER(?)", address).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", models.NewNotFound(fmt.Sprintf("no wallet for address %s", address))
	}
	if err != nil {
		return "", fmt.Errorf("failed to load key for %s: %w", address, err)
	}
	return wallet.PrivateKey, nil
}

// RecordTrade appends a swap attempt to the trade history.
func (s *WalletStore) RecordTrade(ctx context.Context, trade *models.Trade) error {
	if err := s.db.WithContext(ctx).Create(trade).Error; err != nil {
		return fmt.Errorf("failed to save trade record: %w", err)
	}
	return nil
}

// Trades returns the trade history, most recent first. An empty walletID returns all wallets.
func (s *WalletStore) Trades(ctx context.Context, walletID string, limit int) ([]models.Trade, error) {
	q := s.db.WithContext(ctx).Order("timestamp desc")
	if walletID != "" {
		q = q.Where("wallet_id = ?", walletID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var trades []models.Trade
	if err := q.Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to get trades: %w", err)
	}
	return trades, nil
}
