// Package issuance implements admin-originated creation of credit
// supply on organization wallets. Issuance is the only way (besides a
// confirmed purchase, which goes through the same path) that credits
// enter the system; allocation and consumption only move or burn them.
package issuance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finwell/internal/models"
	"finwell/internal/repositories"
	"finwell/internal/services/wallet"

	"github.com/sirupsen/logrus"
)

var ErrOrganizationNotFound = errors.New("organization not found")

// Service issues credits to organization wallets. IssueOrgCredits is
// the direct admin top-up; IssuePurchasedCredits is the same movement
// recorded against a paid credit pack order.
type Service interface {
	IssueOrgCredits(ctx context.Context, orgID uint, kind models.CreditKind, amount int64, expiresAt *time.Time, actor wallet.Actor) (*models.CreditTransaction, error)
	IssuePurchasedCredits(ctx context.Context, orgID uint, kind models.CreditKind, amount int64, orderRef string, actor wallet.Actor) (*models.CreditTransaction, error)
}

type service struct {
	wallets repositories.WalletRepository
	orgs    repositories.OrganizationRepository
	cache   wallet.Cache
	metrics wallet.MetricsCollector
	log     logrus.FieldLogger
}

func NewService(
	wallets repositories.WalletRepository,
	orgs repositories.OrganizationRepository,
	cache wallet.Cache,
	metrics wallet.MetricsCollector,
	log logrus.FieldLogger,
) Service {
	if wallets == nil {
		panic("wallet repository is required")
	}
	if orgs == nil {
		panic("organization repository is required")
	}
	if metrics == nil {
		metrics = wallet.NoopMetricsCollector{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &service{
		wallets: wallets,
		orgs:    orgs,
		cache:   cache,
		metrics: metrics,
		log:     log,
	}
}

// IssueOrgCredits credits the organization wallet for the given kind,
// creating the wallet on first issuance. The optional expiry is stamped
// onto the wallet; expired wallets project to zero balance at read time
// while their history stays intact.
func (s *service) IssueOrgCredits(ctx context.Context, orgID uint, kind models.CreditKind, amount int64, expiresAt *time.Time, actor wallet.Actor) (*models.CreditTransaction, error) {
	return s.issue(ctx, orgID, kind, amount, expiresAt, models.ReasonIssuance, "", actor)
}

// IssuePurchasedCredits records a paid credit pack order as supply on
// the organization wallet, referencing the order so the purchase and
// its ledger entry reconcile.
func (s *service) IssuePurchasedCredits(ctx context.Context, orgID uint, kind models.CreditKind, amount int64, orderRef string, actor wallet.Actor) (*models.CreditTransaction, error) {
	return s.issue(ctx, orgID, kind, amount, nil, models.ReasonPurchase, orderRef, actor)
}

func (s *service) issue(ctx context.Context, orgID uint, kind models.CreditKind, amount int64, expiresAt *time.Time, reason, reference string, actor wallet.Actor) (*models.CreditTransaction, error) {
	if amount <= 0 {
		s.metrics.RecordError("issue", "invalid_amount")
		return nil, wallet.ErrInvalidAmount
	}
	if !models.ValidCreditKind(kind) {
		return nil, fmt.Errorf("%w: unknown credit kind %q", wallet.ErrInvalidAmount, kind)
	}

	if _, err := s.orgs.GetByID(orgID); err != nil {
		if errors.Is(err, repositories.ErrOrganizationNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to resolve organization: %w", err)
	}

	var txn *models.CreditTransaction
	var walletID uint
	err := wallet.Retry(ctx, s.log, "issue", func() error {
		txn = nil
		return s.wallets.ExecuteInTransaction(func(tx repositories.WalletRepository) error {
			// A referenced issuance (purchase) is idempotent: if the
			// ledger already holds the entry for this reference, a
			// replayed request returns it instead of issuing twice.
			if reference != "" {
				existing, err := tx.GetTransactionByReference(reference, reason)
				if err == nil {
					txn = existing
					walletID = existing.WalletID
					return nil
				}
				if !errors.Is(err, repositories.ErrTransactionNotFound) {
					return err
				}
			}

			w, err := tx.GetOrCreate(models.OwnerTypeOrg, orgID, kind)
			if err != nil {
				return err
			}
			walletID = w.ID

			if _, err := tx.LockByID(w.ID); err != nil {
				return err
			}

			if expiresAt != nil {
				if err := tx.SetExpiry(w.ID, expiresAt); err != nil {
					return err
				}
			}

			balance, err := tx.SumDeltas(w.ID)
			if err != nil {
				return err
			}

			txn = &models.CreditTransaction{
				WalletID:  w.ID,
				Delta:     amount,
				Reason:    reason,
				Reference: reference,
				CreatedBy: actor.UserID,
			}
			if err := tx.AppendTransaction(txn); err != nil {
				return err
			}
			return tx.SetCachedBalance(w.ID, balance+amount)
		})
	})
	if err != nil {
		s.metrics.RecordError("issue", "internal")
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateWallet(ctx, walletID); err != nil {
			s.log.WithError(err).Warn("failed to invalidate wallet cache")
		}
	}

	s.log.WithFields(logrus.Fields{
		"organization_id": orgID,
		"credit_kind":     kind,
		"amount":          amount,
		"actor":           actor.UserID,
	}).Info("issued organization credits")
	s.metrics.RecordTransaction("issue", amount)
	return txn, nil
}
