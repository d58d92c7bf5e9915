package purchase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"finwell/internal/models"
	"finwell/internal/repositories/repotest"
	"finwell/internal/services/issuance"
	"finwell/internal/services/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	calls int
	fail  bool
}

func (g *fakeGateway) CreatePaymentIntent(price models.Money, orderRef string) (string, string, error) {
	g.calls++
	if g.fail {
		return "", "", errors.New("gateway unavailable")
	}
	return fmt.Sprintf("pi_%d", g.calls), fmt.Sprintf("secret_%d", g.calls), nil
}

type fixture struct {
	svc     Service
	orders  *repotest.OrderRepo
	wallets *repotest.WalletRepo
	gateway *fakeGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	orders := repotest.NewOrderRepo()
	wallets := repotest.NewWalletRepo()
	orgs := repotest.NewOrgRepo()
	require.NoError(t, orgs.Create(&models.Organization{Name: "Acme Corp"}))
	issuer := issuance.NewService(wallets, orgs, repotest.NewCache(), nil, nil)
	gateway := &fakeGateway{}
	return &fixture{
		svc:     NewService(orders, orgs, issuer, gateway, nil),
		orders:  orders,
		wallets: wallets,
		gateway: gateway,
	}
}

func hrActor(orgID uint) wallet.Actor {
	return wallet.Actor{UserID: 7, Role: models.RoleHR, OrganizationID: &orgID}
}

func mustMoney(t *testing.T, amount int64) models.Money {
	t.Helper()
	m, err := models.NewMoney(amount, "EUR")
	require.NoError(t, err)
	return m
}

func TestService_CreateOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, secret, err := f.svc.CreateOrder(ctx, 1, models.CreditKindSession, 50, mustMoney(t, 49900), hrActor(1))
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "secret_1", secret)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, "pi_1", order.PaymentIntentID)
	assert.NotEmpty(t, order.OrderRef)
	assert.Nil(t, order.IssuedAt)

	// No credits move until the gateway confirms payment.
	_, err = f.wallets.GetByOwner(models.OwnerTypeOrg, 1, models.CreditKindSession)
	assert.Error(t, err)
}

func TestService_CreateOrder_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	price := mustMoney(t, 1000)

	t.Run("non-positive quantity", func(t *testing.T) {
		_, _, err := f.svc.CreateOrder(ctx, 1, models.CreditKindSession, 0, price, hrActor(1))
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("hr from another organization", func(t *testing.T) {
		_, _, err := f.svc.CreateOrder(ctx, 1, models.CreditKindSession, 5, price, hrActor(2))
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("gateway failure creates no order", func(t *testing.T) {
		f.gateway.fail = true
		defer func() { f.gateway.fail = false }()
		_, _, err := f.svc.CreateOrder(ctx, 1, models.CreditKindSession, 5, price, hrActor(1))
		assert.Error(t, err)
		_, err = f.orders.GetByPaymentIntent("pi_99")
		assert.Error(t, err)
	})
}

func TestService_HandlePaymentSucceeded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, _, err := f.svc.CreateOrder(ctx, 1, models.CreditKindSession, 50, mustMoney(t, 49900), hrActor(1))
	require.NoError(t, err)

	require.NoError(t, f.svc.HandlePaymentSucceeded(ctx, order.PaymentIntentID))

	paid, err := f.orders.GetByOrderRef(order.OrderRef)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, paid.Status)
	require.NotNil(t, paid.IssuedAt)

	w, err := f.wallets.GetByOwner(models.OwnerTypeOrg, 1, models.CreditKindSession)
	require.NoError(t, err)
	sum, _ := f.wallets.SumDeltas(w.ID)
	assert.Equal(t, int64(50), sum)

	txn, err := f.wallets.GetTransactionByReference(order.OrderRef, models.ReasonPurchase)
	require.NoError(t, err)
	assert.Equal(t, int64(50), txn.Delta)
}

func TestService_HandlePaymentSucceeded_ReplayIssuesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, _, err := f.svc.CreateOrder(ctx, 1, models.CreditKindSession, 50, mustMoney(t, 49900), hrActor(1))
	require.NoError(t, err)

	require.NoError(t, f.svc.HandlePaymentSucceeded(ctx, order.PaymentIntentID))
	require.NoError(t, f.svc.HandlePaymentSucceeded(ctx, order.PaymentIntentID))
	require.NoError(t, f.svc.HandlePaymentSucceeded(ctx, order.PaymentIntentID))

	w, err := f.wallets.GetByOwner(models.OwnerTypeOrg, 1, models.CreditKindSession)
	require.NoError(t, err)
	sum, _ := f.wallets.SumDeltas(w.ID)
	assert.Equal(t, int64(50), sum)
	assert.Len(t, f.wallets.Transactions(), 1)
}

func TestService_HandlePaymentSucceeded_UnknownIntent(t *testing.T) {
	f := newFixture(t)
	err := f.svc.HandlePaymentSucceeded(context.Background(), "pi_missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestService_HandlePaymentFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, _, err := f.svc.CreateOrder(ctx, 1, models.CreditKindSession, 50, mustMoney(t, 49900), hrActor(1))
	require.NoError(t, err)

	require.NoError(t, f.svc.HandlePaymentFailed(ctx, order.PaymentIntentID))

	failed, err := f.orders.GetByOrderRef(order.OrderRef)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusFailed, failed.Status)
	assert.Len(t, f.wallets.Transactions(), 0)

	// A late failure event after payment succeeded does not downgrade
	// the order.
	paidOrder, _, err := f.svc.CreateOrder(ctx, 1, models.CreditKindWebinar, 5, mustMoney(t, 9900), hrActor(1))
	require.NoError(t, err)
	require.NoError(t, f.svc.HandlePaymentSucceeded(ctx, paidOrder.PaymentIntentID))
	require.NoError(t, f.svc.HandlePaymentFailed(ctx, paidOrder.PaymentIntentID))

	still, err := f.orders.GetByOrderRef(paidOrder.OrderRef)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, still.Status)
}
