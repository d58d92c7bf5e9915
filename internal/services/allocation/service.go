// Package allocation implements the org-to-employee credit transfer.
// The debit on the organization wallet and the credit on the employee
// wallet are one atomic unit: either both rows land in the ledger or
// neither does, so allocation can only move existing supply, never
// manufacture it.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finwell/internal/models"
	"finwell/internal/repositories"
	"finwell/internal/services/wallet"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// nowFunc is swapped in tests exercising expiry.
var nowFunc = time.Now

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrUserNotInOrganization  = errors.New("user does not belong to an organization")
	ErrOrgWalletNotFound      = errors.New("organization wallet not found")
	ErrInsufficientOrgBalance = errors.New("insufficient organization balance")
	ErrUnauthorized           = errors.New("actor may not allocate for this organization")
)

// Result is the pair of ledger entries one allocation writes. The
// entries share a reference so either side of the transfer can be
// traced to the other.
type Result struct {
	Debit  *models.CreditTransaction `json:"debit"`
	Credit *models.CreditTransaction `json:"credit"`
}

type Service interface {
	Allocate(ctx context.Context, userID uint, kind models.CreditKind, amount int64, reason string, actor wallet.Actor) (*Result, error)
}

type service struct {
	wallets repositories.WalletRepository
	users   repositories.UserRepository
	cache   wallet.Cache
	metrics wallet.MetricsCollector
	log     logrus.FieldLogger
}

func NewService(
	wallets repositories.WalletRepository,
	users repositories.UserRepository,
	cache wallet.Cache,
	metrics wallet.MetricsCollector,
	log logrus.FieldLogger,
) Service {
	if wallets == nil {
		panic("wallet repository is required")
	}
	if users == nil {
		panic("user repository is required")
	}
	if metrics == nil {
		metrics = wallet.NoopMetricsCollector{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &service{
		wallets: wallets,
		users:   users,
		cache:   cache,
		metrics: metrics,
		log:     log,
	}
}

// Allocate moves credits from the employee's organization wallet to the
// employee's own wallet.
//
// Lock order is always org wallet first, then user wallet. Consumption
// locks only user wallets, so no two transactions acquire the same pair
// in opposite order and the pair cannot deadlock. The org balance is
// checked before the employee wallet is even created: a failed
// allocation against an unfunded org leaves no trace, not even an empty
// wallet row.
func (s *service) Allocate(ctx context.Context, userID uint, kind models.CreditKind, amount int64, reason string, actor wallet.Actor) (*Result, error) {
	if amount <= 0 {
		s.metrics.RecordError("allocate", "invalid_amount")
		return nil, wallet.ErrInvalidAmount
	}
	if !models.ValidCreditKind(kind) {
		return nil, fmt.Errorf("%w: unknown credit kind %q", wallet.ErrInvalidAmount, kind)
	}

	user, err := s.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	if user.OrganizationID == nil {
		return nil, ErrUserNotInOrganization
	}
	orgID := *user.OrganizationID

	// HR may only allocate within their own organization; admins may
	// allocate anywhere.
	if actor.Role != models.RoleAdmin && !actor.SameOrg(orgID) {
		s.metrics.RecordError("allocate", "unauthorized")
		return nil, ErrUnauthorized
	}

	var result *Result
	var orgWalletID, userWalletID uint
	err = wallet.Retry(ctx, s.log, "allocate", func() error {
		result = nil
		return s.wallets.ExecuteInTransaction(func(tx repositories.WalletRepository) error {
			orgWallet, err := tx.GetByOwner(models.OwnerTypeOrg, orgID, kind)
			if err != nil {
				if errors.Is(err, repositories.ErrWalletNotFound) {
					return ErrOrgWalletNotFound
				}
				return err
			}
			if _, err := tx.LockByID(orgWallet.ID); err != nil {
				return err
			}

			orgBalance, err := tx.SumDeltas(orgWallet.ID)
			if err != nil {
				return err
			}
			if orgWallet.Expired(nowFunc()) {
				orgBalance = 0
			}
			if orgBalance < amount {
				return ErrInsufficientOrgBalance
			}

			userWallet, err := tx.GetOrCreate(models.OwnerTypeUser, userID, kind)
			if err != nil {
				return err
			}
			if _, err := tx.LockByID(userWallet.ID); err != nil {
				return err
			}
			userBalance, err := tx.SumDeltas(userWallet.ID)
			if err != nil {
				return err
			}

			ref := uuid.NewString()
			debit := &models.CreditTransaction{
				WalletID:  orgWallet.ID,
				Delta:     -amount,
				Reason:    models.ReasonAllocationDebit,
				Reference: ref,
				CreatedBy: actor.UserID,
			}
			credit := &models.CreditTransaction{
				WalletID:  userWallet.ID,
				Delta:     amount,
				Reason:    models.ReasonAllocationCredit,
				Reference: ref,
				CreatedBy: actor.UserID,
			}
			if reason != "" {
				debit.Reason = models.ReasonAllocationDebit + ": " + reason
				credit.Reason = models.ReasonAllocationCredit + ": " + reason
			}

			if err := tx.AppendTransaction(debit); err != nil {
				return err
			}
			if err := tx.AppendTransaction(credit); err != nil {
				return err
			}
			if err := tx.SetCachedBalance(orgWallet.ID, orgBalance-amount); err != nil {
				return err
			}
			if err := tx.SetCachedBalance(userWallet.ID, userBalance+amount); err != nil {
				return err
			}

			orgWalletID, userWalletID = orgWallet.ID, userWallet.ID
			result = &Result{Debit: debit, Credit: credit}
			return nil
		})
	})
	if err != nil {
		s.metrics.RecordError("allocate", allocErrType(err))
		return nil, err
	}

	if s.cache != nil {
		for _, id := range []uint{orgWalletID, userWalletID} {
			if err := s.cache.InvalidateWallet(ctx, id); err != nil {
				s.log.WithError(err).Warn("failed to invalidate wallet cache")
			}
		}
	}

	s.log.WithFields(logrus.Fields{
		"organization_id": orgID,
		"user_id":         userID,
		"credit_kind":     kind,
		"amount":          amount,
		"actor":           actor.UserID,
	}).Info("allocated credits")
	s.metrics.RecordTransaction("allocate", amount)
	return result, nil
}

func allocErrType(err error) string {
	switch {
	case errors.Is(err, ErrOrgWalletNotFound):
		return "org_wallet_not_found"
	case errors.Is(err, ErrInsufficientOrgBalance):
		return "insufficient_org_balance"
	case errors.Is(err, wallet.ErrConcurrencyConflict):
		return "concurrency_conflict"
	default:
		return "internal"
	}
}
