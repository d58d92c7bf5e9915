package allocation

import (
	"context"
	"sync"
	"testing"
	"time"

	"finwell/internal/models"
	"finwell/internal/repositories/repotest"
	"finwell/internal/services/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc     Service
	wallets *repotest.WalletRepo
	users   *repotest.UserRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	wallets := repotest.NewWalletRepo()
	users := repotest.NewUserRepo()
	return &fixture{
		svc:     NewService(wallets, users, repotest.NewCache(), nil, nil),
		wallets: wallets,
		users:   users,
	}
}

func (f *fixture) addUser(t *testing.T, orgID uint) *models.User {
	t.Helper()
	u := &models.User{
		Email:          "employee@example.com",
		Password:       "x",
		Name:           "Employee",
		Role:           models.RoleEmployee,
		OrganizationID: &orgID,
	}
	require.NoError(t, f.users.Create(u))
	return u
}

func (f *fixture) fundOrg(t *testing.T, orgID uint, amount int64) *models.CreditWallet {
	t.Helper()
	w, err := f.wallets.GetOrCreate(models.OwnerTypeOrg, orgID, models.CreditKindSession)
	require.NoError(t, err)
	require.NoError(t, f.wallets.AppendTransaction(&models.CreditTransaction{
		WalletID: w.ID,
		Delta:    amount,
		Reason:   models.ReasonIssuance,
	}))
	return w
}

func hrActor(orgID uint) wallet.Actor {
	return wallet.Actor{UserID: 100, Role: models.RoleHR, OrganizationID: &orgID}
}

func TestService_Allocate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := f.addUser(t, 1)
	orgWallet := f.fundOrg(t, 1, 100)

	result, err := f.svc.Allocate(ctx, user.ID, models.CreditKindSession, 10, "Q3 coaching", hrActor(1))
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, int64(-10), result.Debit.Delta)
	assert.Equal(t, int64(10), result.Credit.Delta)
	assert.Equal(t, orgWallet.ID, result.Debit.WalletID)
	assert.NotEqual(t, result.Debit.WalletID, result.Credit.WalletID)
	// Both legs carry the same reference so the transfer reconciles.
	assert.NotEmpty(t, result.Debit.Reference)
	assert.Equal(t, result.Debit.Reference, result.Credit.Reference)
	assert.Contains(t, result.Debit.Reason, "Q3 coaching")

	orgBalance, _ := f.wallets.SumDeltas(orgWallet.ID)
	assert.Equal(t, int64(90), orgBalance)
	userBalance, _ := f.wallets.SumDeltas(result.Credit.WalletID)
	assert.Equal(t, int64(10), userBalance)
}

func TestService_Allocate_InsufficientOrgBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := f.addUser(t, 1)
	f.fundOrg(t, 1, 5)

	_, err := f.svc.Allocate(ctx, user.ID, models.CreditKindSession, 8, "", hrActor(1))
	assert.ErrorIs(t, err, ErrInsufficientOrgBalance)

	// The failed allocation wrote nothing, not even an empty employee
	// wallet row.
	assert.Equal(t, 1, f.wallets.WalletCount())
	assert.Len(t, f.wallets.Transactions(), 1)
}

func TestService_Allocate_ExpiredOrgWalletHasNoSpend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := f.addUser(t, 1)
	orgWallet := f.fundOrg(t, 1, 100)
	past := time.Now().Add(-time.Hour)
	require.NoError(t, f.wallets.SetExpiry(orgWallet.ID, &past))

	_, err := f.svc.Allocate(ctx, user.ID, models.CreditKindSession, 1, "", hrActor(1))
	assert.ErrorIs(t, err, ErrInsufficientOrgBalance)
}

func TestService_Allocate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.addUser(t, 1)
	f.fundOrg(t, 1, 100)

	t.Run("non-positive amount", func(t *testing.T) {
		_, err := f.svc.Allocate(ctx, user.ID, models.CreditKindSession, 0, "", hrActor(1))
		assert.ErrorIs(t, err, wallet.ErrInvalidAmount)
	})

	t.Run("unknown credit kind", func(t *testing.T) {
		_, err := f.svc.Allocate(ctx, user.ID, models.CreditKind("MASSAGE"), 1, "", hrActor(1))
		assert.ErrorIs(t, err, wallet.ErrInvalidAmount)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.svc.Allocate(ctx, 999, models.CreditKindSession, 1, "", hrActor(1))
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("no org wallet for kind", func(t *testing.T) {
		_, err := f.svc.Allocate(ctx, user.ID, models.CreditKindWebinar, 1, "", hrActor(1))
		assert.ErrorIs(t, err, ErrOrgWalletNotFound)
	})

	t.Run("hr from another organization", func(t *testing.T) {
		_, err := f.svc.Allocate(ctx, user.ID, models.CreditKindSession, 1, "", hrActor(2))
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("admin may allocate across organizations", func(t *testing.T) {
		_, err := f.svc.Allocate(ctx, user.ID, models.CreditKindSession, 1, "", wallet.Actor{UserID: 1, Role: models.RoleAdmin})
		assert.NoError(t, err)
	})
}

func TestService_Allocate_UserWithoutOrganization(t *testing.T) {
	f := newFixture(t)
	u := &models.User{Email: "admin@example.com", Password: "x", Name: "Admin", Role: models.RoleAdmin}
	require.NoError(t, f.users.Create(u))

	_, err := f.svc.Allocate(context.Background(), u.ID, models.CreditKindSession, 1, "", wallet.Actor{UserID: 1, Role: models.RoleAdmin})
	assert.ErrorIs(t, err, ErrUserNotInOrganization)
}

func TestService_Allocate_ConcurrentAllocationsConserveSupply(t *testing.T) {
	f := newFixture(t)
	user := f.addUser(t, 1)
	orgWallet := f.fundOrg(t, 1, 10)
	actor := hrActor(1)

	const attempts = 15
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Allocate(context.Background(), user.ID, models.CreditKindSession, 1, "", actor)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientOrgBalance)
		}
	}
	assert.Equal(t, 10, ok)

	orgBalance, _ := f.wallets.SumDeltas(orgWallet.ID)
	assert.Equal(t, int64(0), orgBalance)

	totals, err := f.wallets.KindTotals(models.CreditKindSession)
	require.NoError(t, err)
	assert.Equal(t, totals.Issued, totals.OrgHeld+totals.UserHeld+totals.Consumed)
}
