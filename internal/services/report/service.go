// Package report aggregates the ledger for admin dashboards. The core
// figure is conservation per credit kind: everything held by org and
// user wallets plus everything consumed must equal everything issued,
// because allocation only ever moves existing supply.
package report

import (
	"time"

	"finwell/internal/models"
	"finwell/internal/repositories"
)

// KindReport is the ledger aggregate for one credit kind plus the
// conservation verdict.
type KindReport struct {
	repositories.KindTotals
	Conserved bool `json:"conserved"`
}

type CreditReport struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Kinds       []KindReport `json:"kinds"`
}

type Service interface {
	CreditReport() (*CreditReport, error)
	OrganizationWallets(orgID uint) ([]models.CreditWallet, error)
}

type service struct {
	wallets repositories.WalletRepository
}

func NewService(wallets repositories.WalletRepository) Service {
	return &service{wallets: wallets}
}

func (s *service) CreditReport() (*CreditReport, error) {
	report := &CreditReport{GeneratedAt: time.Now()}

	for _, kind := range []models.CreditKind{models.CreditKindSession, models.CreditKindWebinar} {
		totals, err := s.wallets.KindTotals(kind)
		if err != nil {
			return nil, err
		}
		report.Kinds = append(report.Kinds, KindReport{
			KindTotals: *totals,
			Conserved:  totals.OrgHeld+totals.UserHeld+totals.Consumed == totals.Issued,
		})
	}
	return report, nil
}

func (s *service) OrganizationWallets(orgID uint) ([]models.CreditWallet, error) {
	return s.wallets.ListByOwner(models.OwnerTypeOrg, orgID)
}
