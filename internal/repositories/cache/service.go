// Package cache wraps Redis for read-path caching. Only projections end
// up here (wallets, balances); the transaction log is never cached and
// every ledger write invalidates the wallet's keys.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"finwell/internal/models"

	"github.com/redis/go-redis/v9"
)

type Service struct {
	client *redis.Client
	ttl    time.Duration
}

func NewService(client *redis.Client, defaultTTL time.Duration) *Service {
	return &Service{
		client: client,
		ttl:    defaultTTL,
	}
}

// Base operations
func (s *Service) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *Service) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

// Get unmarshals the cached value into dest, reporting whether the key
// was present.
func (s *Service) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *Service) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// Key generation
func walletKey(walletID uint) string {
	return fmt.Sprintf("wallet:id:%d", walletID)
}

func balanceKey(walletID uint) string {
	return fmt.Sprintf("wallet:balance:%d", walletID)
}

// Wallet caching
func (s *Service) CacheWallet(ctx context.Context, wallet *models.CreditWallet) error {
	return s.Set(ctx, walletKey(wallet.ID), wallet)
}

func (s *Service) GetWallet(ctx context.Context, walletID uint) (*models.CreditWallet, bool, error) {
	var wallet models.CreditWallet
	found, err := s.Get(ctx, walletKey(walletID), &wallet)
	if err != nil || !found {
		return nil, false, err
	}
	return &wallet, true, nil
}

// Balance caching. Balances are cached only for read endpoints; debit
// authorization always projects from the transaction log.
func (s *Service) CacheBalance(ctx context.Context, walletID uint, balance int64) error {
	return s.Set(ctx, balanceKey(walletID), balance)
}

func (s *Service) GetBalance(ctx context.Context, walletID uint) (int64, bool, error) {
	var balance int64
	found, err := s.Get(ctx, balanceKey(walletID), &balance)
	return balance, found, err
}

// InvalidateWallet drops every cached projection of a wallet.
func (s *Service) InvalidateWallet(ctx context.Context, walletID uint) error {
	return s.Delete(ctx, walletKey(walletID), balanceKey(walletID))
}

func (s *Service) FlushAll(ctx context.Context) error {
	return s.client.FlushAll(ctx).Err()
}

func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

func (s *Service) Close() error {
	return s.client.Close()
}
