package report

import (
	"context"
	"testing"

	"finwell/internal/models"
	"finwell/internal/repositories/repotest"
	"finwell/internal/services/allocation"
	"finwell/internal/services/issuance"
	"finwell/internal/services/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCreditReport_FullLedgerFlow drives the ledger through a complete
// issue, allocate, consume cycle and checks the aggregate report.
func TestCreditReport_FullLedgerFlow(t *testing.T) {
	wallets := repotest.NewWalletRepo()
	users := repotest.NewUserRepo()
	orgs := repotest.NewOrgRepo()
	cache := repotest.NewCache()
	ctx := context.Background()

	require.NoError(t, orgs.Create(&models.Organization{Name: "Acme Corp"}))
	orgID := uint(1)
	employee := &models.User{
		Email:          "employee@acme.example",
		Password:       "x",
		Name:           "Employee",
		Role:           models.RoleEmployee,
		OrganizationID: &orgID,
	}
	require.NoError(t, users.Create(employee))

	issuer := issuance.NewService(wallets, orgs, cache, nil, nil)
	allocator := allocation.NewService(wallets, users, cache, nil, nil)
	walletSvc := wallet.NewService(wallets, cache, nil, nil)
	reportSvc := NewService(wallets)

	adminActor := wallet.Actor{UserID: 1, Role: models.RoleAdmin}
	hrActor := wallet.Actor{UserID: 2, Role: models.RoleHR, OrganizationID: &orgID}

	// Admin funds the org with 100 session credits.
	_, err := issuer.IssueOrgCredits(ctx, orgID, models.CreditKindSession, 100, nil, adminActor)
	require.NoError(t, err)

	// HR moves 10 of them to the employee.
	alloc, err := allocator.Allocate(ctx, employee.ID, models.CreditKindSession, 10, "", hrActor)
	require.NoError(t, err)
	userWalletID := alloc.Credit.WalletID

	// The employee books 3 sessions.
	employeeActor := wallet.Actor{UserID: employee.ID, Role: models.RoleEmployee, OrganizationID: &orgID}
	_, err = walletSvc.Consume(ctx, userWalletID, 3, models.ReasonConsumption, "booking-1", employeeActor)
	require.NoError(t, err)

	// 8 more would overdraw the remaining 7 and is rejected.
	_, err = walletSvc.Consume(ctx, userWalletID, 8, models.ReasonConsumption, "booking-2", employeeActor)
	require.ErrorIs(t, err, wallet.ErrInsufficientBalance)

	balance, err := walletSvc.Balance(ctx, userWalletID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), balance)

	report, err := reportSvc.CreditReport()
	require.NoError(t, err)
	require.Len(t, report.Kinds, 2)

	session := report.Kinds[0]
	assert.Equal(t, models.CreditKindSession, session.Kind)
	assert.Equal(t, int64(100), session.Issued)
	assert.Equal(t, int64(90), session.OrgHeld)
	assert.Equal(t, int64(7), session.UserHeld)
	assert.Equal(t, int64(3), session.Consumed)
	assert.True(t, session.Conserved)

	webinar := report.Kinds[1]
	assert.Equal(t, models.CreditKindWebinar, webinar.Kind)
	assert.Zero(t, webinar.Issued)
	assert.True(t, webinar.Conserved)
}

func TestOrganizationWallets(t *testing.T) {
	wallets := repotest.NewWalletRepo()
	_, err := wallets.GetOrCreate(models.OwnerTypeOrg, 1, models.CreditKindSession)
	require.NoError(t, err)
	_, err = wallets.GetOrCreate(models.OwnerTypeOrg, 1, models.CreditKindWebinar)
	require.NoError(t, err)
	_, err = wallets.GetOrCreate(models.OwnerTypeUser, 5, models.CreditKindSession)
	require.NoError(t, err)

	svc := NewService(wallets)
	out, err := svc.OrganizationWallets(1)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}
