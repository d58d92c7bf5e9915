package issuance

import (
	"context"
	"testing"
	"time"

	"finwell/internal/models"
	"finwell/internal/repositories/repotest"
	"finwell/internal/services/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (Service, *repotest.WalletRepo, *repotest.OrgRepo) {
	t.Helper()
	wallets := repotest.NewWalletRepo()
	orgs := repotest.NewOrgRepo()
	require.NoError(t, orgs.Create(&models.Organization{Name: "Acme Corp"}))
	return NewService(wallets, orgs, repotest.NewCache(), nil, nil), wallets, orgs
}

func admin() wallet.Actor {
	return wallet.Actor{UserID: 1, Role: models.RoleAdmin}
}

func TestService_IssueOrgCredits(t *testing.T) {
	svc, wallets, _ := newTestService(t)
	ctx := context.Background()

	txn, err := svc.IssueOrgCredits(ctx, 1, models.CreditKindSession, 100, nil, admin())
	require.NoError(t, err)
	require.NotNil(t, txn)
	assert.Equal(t, int64(100), txn.Delta)
	assert.Equal(t, models.ReasonIssuance, txn.Reason)
	assert.Equal(t, uint(1), txn.CreatedBy)

	w, err := wallets.GetByOwner(models.OwnerTypeOrg, 1, models.CreditKindSession)
	require.NoError(t, err)
	assert.Nil(t, w.ExpiresAt)

	// A second issuance lands on the same wallet row.
	_, err = svc.IssueOrgCredits(ctx, 1, models.CreditKindSession, 50, nil, admin())
	require.NoError(t, err)
	assert.Equal(t, 1, wallets.WalletCount())

	sum, err := wallets.SumDeltas(w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), sum)
}

func TestService_IssueOrgCredits_WithExpiry(t *testing.T) {
	svc, wallets, _ := newTestService(t)
	ctx := context.Background()

	expiry := time.Now().Add(30 * 24 * time.Hour)
	_, err := svc.IssueOrgCredits(ctx, 1, models.CreditKindWebinar, 20, &expiry, admin())
	require.NoError(t, err)

	w, err := wallets.GetByOwner(models.OwnerTypeOrg, 1, models.CreditKindWebinar)
	require.NoError(t, err)
	require.NotNil(t, w.ExpiresAt)
	assert.WithinDuration(t, expiry, *w.ExpiresAt, time.Second)
}

func TestService_IssueOrgCredits_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	t.Run("non-positive amount", func(t *testing.T) {
		_, err := svc.IssueOrgCredits(ctx, 1, models.CreditKindSession, 0, nil, admin())
		assert.ErrorIs(t, err, wallet.ErrInvalidAmount)
	})

	t.Run("unknown credit kind", func(t *testing.T) {
		_, err := svc.IssueOrgCredits(ctx, 1, models.CreditKind("GYM"), 10, nil, admin())
		assert.ErrorIs(t, err, wallet.ErrInvalidAmount)
	})

	t.Run("unknown organization", func(t *testing.T) {
		_, err := svc.IssueOrgCredits(ctx, 77, models.CreditKindSession, 10, nil, admin())
		assert.ErrorIs(t, err, ErrOrganizationNotFound)
	})
}

func TestService_IssuePurchasedCredits_Idempotent(t *testing.T) {
	svc, wallets, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.IssuePurchasedCredits(ctx, 1, models.CreditKindSession, 40, "order-abc", admin())
	require.NoError(t, err)
	assert.Equal(t, models.ReasonPurchase, first.Reason)
	assert.Equal(t, "order-abc", first.Reference)

	// A replay with the same order reference returns the original entry
	// and issues nothing new.
	replay, err := svc.IssuePurchasedCredits(ctx, 1, models.CreditKindSession, 40, "order-abc", admin())
	require.NoError(t, err)
	assert.Equal(t, first.ID, replay.ID)

	sum, err := wallets.SumDeltas(first.WalletID)
	require.NoError(t, err)
	assert.Equal(t, int64(40), sum)
	assert.Len(t, wallets.Transactions(), 1)
}
