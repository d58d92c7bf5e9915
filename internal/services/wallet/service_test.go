package wallet

import (
	"context"
	"sync"
	"testing"
	"time"

	"finwell/internal/models"
	"finwell/internal/repositories/repotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (Service, *repotest.WalletRepo, *repotest.Cache) {
	t.Helper()
	repo := repotest.NewWalletRepo()
	cache := repotest.NewCache()
	return NewService(repo, cache, nil, nil), repo, cache
}

func seedWallet(t *testing.T, repo *repotest.WalletRepo, ownerType models.OwnerType, ownerID uint, balance int64) *models.CreditWallet {
	t.Helper()
	w, err := repo.GetOrCreate(ownerType, ownerID, models.CreditKindSession)
	require.NoError(t, err)
	if balance != 0 {
		require.NoError(t, repo.AppendTransaction(&models.CreditTransaction{
			WalletID: w.ID,
			Delta:    balance,
			Reason:   models.ReasonAllocationCredit,
		}))
	}
	return w
}

func TestService_Balance(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	w := seedWallet(t, repo, models.OwnerTypeUser, 1, 100)
	require.NoError(t, repo.AppendTransaction(&models.CreditTransaction{
		WalletID: w.ID,
		Delta:    -30,
		Reason:   models.ReasonConsumption,
	}))

	balance, err := svc.Balance(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(70), balance)
}

func TestService_Balance_ServesFromCache(t *testing.T) {
	svc, repo, cache := newTestService(t)
	ctx := context.Background()

	w := seedWallet(t, repo, models.OwnerTypeUser, 1, 50)

	balance, err := svc.Balance(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)

	// A direct append without invalidation is not visible until the
	// cache entry is dropped.
	require.NoError(t, repo.AppendTransaction(&models.CreditTransaction{
		WalletID: w.ID,
		Delta:    25,
		Reason:   models.ReasonAllocationCredit,
	}))

	balance, err = svc.Balance(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)

	require.NoError(t, cache.InvalidateWallet(ctx, w.ID))
	balance, err = svc.Balance(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(75), balance)
}

func TestService_Balance_ExpiredWalletProjectsZero(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	w := seedWallet(t, repo, models.OwnerTypeUser, 1, 40)
	past := time.Now().Add(-time.Hour)
	require.NoError(t, repo.SetExpiry(w.ID, &past))

	balance, err := svc.Balance(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	// The log itself is untouched.
	sum, err := repo.SumDeltas(w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(40), sum)
}

func TestService_Balance_WalletNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Balance(context.Background(), 99)
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestService_Consume(t *testing.T) {
	owner := Actor{UserID: 1, Role: models.RoleEmployee}

	tests := []struct {
		name    string
		setup   func(t *testing.T, repo *repotest.WalletRepo) uint
		amount  int64
		actor   Actor
		wantErr error
	}{
		{
			name: "successful consumption",
			setup: func(t *testing.T, repo *repotest.WalletRepo) uint {
				return seedWallet(t, repo, models.OwnerTypeUser, 1, 10).ID
			},
			amount: 3,
			actor:  owner,
		},
		{
			name: "exact balance drains wallet",
			setup: func(t *testing.T, repo *repotest.WalletRepo) uint {
				return seedWallet(t, repo, models.OwnerTypeUser, 1, 5).ID
			},
			amount: 5,
			actor:  owner,
		},
		{
			name: "insufficient balance",
			setup: func(t *testing.T, repo *repotest.WalletRepo) uint {
				return seedWallet(t, repo, models.OwnerTypeUser, 1, 2).ID
			},
			amount:  3,
			actor:   owner,
			wantErr: ErrInsufficientBalance,
		},
		{
			name: "zero amount rejected",
			setup: func(t *testing.T, repo *repotest.WalletRepo) uint {
				return seedWallet(t, repo, models.OwnerTypeUser, 1, 10).ID
			},
			amount:  0,
			actor:   owner,
			wantErr: ErrInvalidAmount,
		},
		{
			name: "negative amount rejected",
			setup: func(t *testing.T, repo *repotest.WalletRepo) uint {
				return seedWallet(t, repo, models.OwnerTypeUser, 1, 10).ID
			},
			amount:  -4,
			actor:   owner,
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "unknown wallet",
			setup:   func(t *testing.T, repo *repotest.WalletRepo) uint { return 42 },
			amount:  1,
			actor:   owner,
			wantErr: ErrWalletNotFound,
		},
		{
			name: "expired wallet",
			setup: func(t *testing.T, repo *repotest.WalletRepo) uint {
				w := seedWallet(t, repo, models.OwnerTypeUser, 1, 10)
				past := time.Now().Add(-time.Minute)
				require.NoError(t, repo.SetExpiry(w.ID, &past))
				return w.ID
			},
			amount:  1,
			actor:   owner,
			wantErr: ErrWalletExpired,
		},
		{
			name: "employee cannot consume another user's wallet",
			setup: func(t *testing.T, repo *repotest.WalletRepo) uint {
				return seedWallet(t, repo, models.OwnerTypeUser, 2, 10).ID
			},
			amount:  1,
			actor:   owner,
			wantErr: ErrUnauthorized,
		},
		{
			name: "employee cannot consume an org wallet",
			setup: func(t *testing.T, repo *repotest.WalletRepo) uint {
				return seedWallet(t, repo, models.OwnerTypeOrg, 1, 10).ID
			},
			amount:  1,
			actor:   owner,
			wantErr: ErrUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newTestService(t)
			walletID := tt.setup(t, repo)
			before, _ := repo.SumDeltas(walletID)

			txn, err := svc.Consume(context.Background(), walletID, tt.amount, models.ReasonConsumption, "session-1", tt.actor)

			after, _ := repo.SumDeltas(walletID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, txn)
				// Failed debits leave the log untouched.
				assert.Equal(t, before, after)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, txn)
			assert.Equal(t, -tt.amount, txn.Delta)
			assert.Equal(t, models.ReasonConsumption, txn.Reason)
			assert.Equal(t, "session-1", txn.Reference)
			assert.Equal(t, tt.actor.UserID, txn.CreatedBy)
			assert.Equal(t, before-tt.amount, after)
		})
	}
}

func TestService_Consume_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	svc, repo, _ := newTestService(t)
	w := seedWallet(t, repo, models.OwnerTypeUser, 1, 5)
	actor := Actor{UserID: 1, Role: models.RoleEmployee}

	const attempts = 20
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Consume(context.Background(), w.ID, 1, models.ReasonConsumption, "", actor)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, insufficient int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, ErrInsufficientBalance):
			insufficient++
		}
	}
	assert.Equal(t, 5, ok)
	assert.Equal(t, attempts-5, insufficient)

	sum, err := repo.SumDeltas(w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sum)
}

func TestService_History(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	w := seedWallet(t, repo, models.OwnerTypeUser, 1, 0)
	for i := 1; i <= 5; i++ {
		require.NoError(t, repo.AppendTransaction(&models.CreditTransaction{
			WalletID: w.ID,
			Delta:    int64(i),
			Reason:   models.ReasonAllocationCredit,
		}))
	}

	t.Run("newest first with limit and offset", func(t *testing.T) {
		txs, err := svc.History(ctx, w.ID, 2, 1)
		require.NoError(t, err)
		require.Len(t, txs, 2)
		assert.Equal(t, int64(4), txs[0].Delta)
		assert.Equal(t, int64(3), txs[1].Delta)
	})

	t.Run("limit is capped", func(t *testing.T) {
		txs, err := svc.History(ctx, w.ID, MaxHistoryLimit*10, 0)
		require.NoError(t, err)
		assert.Len(t, txs, 5)
	})

	t.Run("unknown wallet", func(t *testing.T) {
		_, err := svc.History(ctx, 99, 10, 0)
		assert.ErrorIs(t, err, ErrWalletNotFound)
	})
}
