package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finwell/internal/models"
	"finwell/internal/repositories"

	"github.com/sirupsen/logrus"
)

type service struct {
	repo    repositories.WalletRepository
	cache   Cache
	metrics MetricsCollector
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewService creates a new wallet service.
func NewService(
	repo repositories.WalletRepository,
	cache Cache,
	metrics MetricsCollector,
	log logrus.FieldLogger,
) Service {
	if repo == nil {
		panic("repo is required")
	}
	if cache == nil {
		panic("cache is required")
	}
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &service{
		repo:    repo,
		cache:   cache,
		metrics: metrics,
		log:     log,
		now:     time.Now,
	}
}

func (s *service) GetWallet(ctx context.Context, walletID uint) (*models.CreditWallet, error) {
	if cached, found, _ := s.cache.GetWallet(ctx, walletID); found {
		return cached, nil
	}

	w, err := s.repo.GetByID(walletID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	if err := s.cache.CacheWallet(ctx, w); err != nil {
		s.log.WithError(err).Warn("failed to cache wallet")
	}
	return w, nil
}

func (s *service) ListWallets(ctx context.Context, ownerType models.OwnerType, ownerID uint) ([]models.CreditWallet, error) {
	return s.repo.ListByOwner(ownerType, ownerID)
}

// Balance projects the wallet balance from its transaction log. A
// wallet past its expiry projects to zero: the positive entries are
// still in the log but no longer authorize debits.
func (s *service) Balance(ctx context.Context, walletID uint) (int64, error) {
	w, err := s.GetWallet(ctx, walletID)
	if err != nil {
		return 0, err
	}
	if w.Expired(s.now()) {
		return 0, nil
	}

	if balance, found, _ := s.cache.GetBalance(ctx, walletID); found {
		return balance, nil
	}

	balance, err := s.repo.SumDeltas(walletID)
	if err != nil {
		return 0, fmt.Errorf("failed to project balance: %w", err)
	}

	if err := s.cache.CacheBalance(ctx, walletID, balance); err != nil {
		s.log.WithError(err).Warn("failed to cache balance")
	}
	return balance, nil
}

// Consume debits the wallet for real usage. The wallet row is locked
// for the duration of the check-then-append, so two concurrent calls
// against the same balance serialize and the second sees the debited
// log. Nothing is written on any failure path.
func (s *service) Consume(ctx context.Context, walletID uint, amount int64, reason, reference string, actor Actor) (*models.CreditTransaction, error) {
	started := s.now()
	defer func() {
		s.metrics.RecordOperationDuration("consume", time.Since(started))
	}()

	if amount <= 0 {
		s.metrics.RecordError("consume", "invalid_amount")
		return nil, ErrInvalidAmount
	}

	var txn *models.CreditTransaction
	err := s.withRetry(ctx, "consume", func() error {
		txn = nil
		return s.repo.ExecuteInTransaction(func(tx repositories.WalletRepository) error {
			w, err := tx.LockByID(walletID)
			if err != nil {
				if errors.Is(err, repositories.ErrWalletNotFound) {
					return ErrWalletNotFound
				}
				return err
			}

			if actor.Role == models.RoleEmployee && (w.OwnerType != models.OwnerTypeUser || w.OwnerID != actor.UserID) {
				return ErrUnauthorized
			}

			if w.Expired(s.now()) {
				return ErrWalletExpired
			}

			balance, err := tx.SumDeltas(walletID)
			if err != nil {
				return err
			}
			if balance < amount {
				return ErrInsufficientBalance
			}

			txn = &models.CreditTransaction{
				WalletID:  walletID,
				Delta:     -amount,
				Reason:    reason,
				Reference: reference,
				CreatedBy: actor.UserID,
			}
			if err := tx.AppendTransaction(txn); err != nil {
				return err
			}
			return tx.SetCachedBalance(walletID, balance-amount)
		})
	})
	if err != nil {
		s.metrics.RecordError("consume", errType(err))
		return nil, err
	}

	if err := s.cache.InvalidateWallet(ctx, walletID); err != nil {
		s.log.WithError(err).Warn("failed to invalidate wallet cache")
	}
	s.metrics.RecordTransaction("consume", amount)
	return txn, nil
}

func (s *service) History(ctx context.Context, walletID uint, limit, offset int) ([]models.CreditTransaction, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	if _, err := s.GetWallet(ctx, walletID); err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(walletID, limit, offset)
}

func (s *service) withRetry(ctx context.Context, operation string, fn func() error) error {
	return Retry(ctx, s.log, operation, fn)
}

// Retry re-runs fn on serialization or deadlock failures with a bounded
// backoff. Those failures roll the whole transaction back, so no write
// can be duplicated by the retry. Every other error is returned as-is.
// The issuance and allocation services share this helper.
func Retry(ctx context.Context, log logrus.FieldLogger, operation string, fn func() error) error {
	if log == nil {
		log = logrus.StandardLogger()
	}

	var err error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		if attempt > 0 {
			log.WithFields(logrus.Fields{
				"operation": operation,
				"attempt":   attempt,
			}).Warn("retrying after serialization conflict")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(RetryBackoff << uint(attempt-1)):
			}
		}

		err = fn()
		if err == nil || !repositories.IsSerializationError(err) {
			return err
		}
	}
	return fmt.Errorf("%w: %s after %d attempts: %v", ErrConcurrencyConflict, operation, MaxRetries, err)
}

func errType(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrWalletNotFound):
		return "wallet_not_found"
	case errors.Is(err, ErrWalletExpired):
		return "wallet_expired"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrConcurrencyConflict):
		return "concurrency_conflict"
	default:
		return "internal"
	}
}
