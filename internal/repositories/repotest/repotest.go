// Package repotest provides in-memory repository implementations for
// service tests. The fakes keep the same contracts as the GORM-backed
// repositories: wallet transactions serialize against each other the
// way row locks serialize them in Postgres, so concurrency tests
// exercise the check-then-append paths against real shared state.
package repotest

import (
	"context"
	"sync"
	"time"

	"finwell/internal/models"
	"finwell/internal/repositories"

	"github.com/jackc/pgx/v5/pgconn"
)

// WalletRepo is an in-memory repositories.WalletRepository.
type WalletRepo struct {
	mu      sync.Mutex
	txMu    sync.Mutex
	nextID  uint
	wallets map[uint]*models.CreditWallet
	txs     []*models.CreditTransaction

	// BeginHook runs at the start of each ExecuteInTransaction, after
	// the transaction lock is held. Tests use it to interleave work.
	BeginHook func()
}

func NewWalletRepo() *WalletRepo {
	return &WalletRepo{
		nextID:  1,
		wallets: make(map[uint]*models.CreditWallet),
	}
}

func (r *WalletRepo) GetOrCreate(ownerType models.OwnerType, ownerID uint, kind models.CreditKind) (*models.CreditWallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateLocked(ownerType, ownerID, kind), nil
}

func (r *WalletRepo) getOrCreateLocked(ownerType models.OwnerType, ownerID uint, kind models.CreditKind) *models.CreditWallet {
	for _, w := range r.wallets {
		if w.OwnerType == ownerType && w.OwnerID == ownerID && w.Kind == kind {
			cp := *w
			return &cp
		}
	}
	w := &models.CreditWallet{
		ID:        r.nextID,
		OwnerType: ownerType,
		OwnerID:   ownerID,
		Kind:      kind,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	r.nextID++
	r.wallets[w.ID] = w
	cp := *w
	return &cp
}

func (r *WalletRepo) GetByID(id uint) (*models.CreditWallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, repositories.ErrWalletNotFound
	}
	cp := *w
	return &cp, nil
}

func (r *WalletRepo) GetByOwner(ownerType models.OwnerType, ownerID uint, kind models.CreditKind) (*models.CreditWallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.wallets {
		if w.OwnerType == ownerType && w.OwnerID == ownerID && w.Kind == kind {
			cp := *w
			return &cp, nil
		}
	}
	return nil, repositories.ErrWalletNotFound
}

func (r *WalletRepo) ListByOwner(ownerType models.OwnerType, ownerID uint) ([]models.CreditWallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.CreditWallet
	for _, w := range r.wallets {
		if w.OwnerType == ownerType && w.OwnerID == ownerID {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (r *WalletRepo) LockByID(id uint) (*models.CreditWallet, error) {
	return r.GetByID(id)
}

func (r *WalletRepo) SetExpiry(id uint, expiresAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok {
		return repositories.ErrWalletNotFound
	}
	w.ExpiresAt = expiresAt
	return nil
}

func (r *WalletRepo) AppendTransaction(tx *models.CreditTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx.ID = uint(len(r.txs) + 1)
	tx.CreatedAt = time.Now()
	cp := *tx
	r.txs = append(r.txs, &cp)
	return nil
}

func (r *WalletRepo) SumDeltas(walletID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, tx := range r.txs {
		if tx.WalletID == walletID {
			sum += tx.Delta
		}
	}
	return sum, nil
}

func (r *WalletRepo) SetCachedBalance(walletID uint, balance int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return repositories.ErrWalletNotFound
	}
	w.Balance = balance
	w.UpdatedAt = time.Now()
	return nil
}

func (r *WalletRepo) ListTransactions(walletID uint, limit, offset int) ([]models.CreditTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []models.CreditTransaction
	for i := len(r.txs) - 1; i >= 0; i-- { // newest first
		if r.txs[i].WalletID == walletID {
			all = append(all, *r.txs[i])
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *WalletRepo) GetTransactionByReference(reference, reason string) (*models.CreditTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.txs {
		if tx.Reference == reference && tx.Reason == reason {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, repositories.ErrTransactionNotFound
}

func (r *WalletRepo) KindTotals(kind models.CreditKind) (*repositories.KindTotals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	totals := &repositories.KindTotals{Kind: kind}
	for _, tx := range r.txs {
		w, ok := r.wallets[tx.WalletID]
		if !ok || w.Kind != kind {
			continue
		}
		switch w.OwnerType {
		case models.OwnerTypeOrg:
			totals.OrgHeld += tx.Delta
			if tx.Delta > 0 && (tx.Reason == models.ReasonIssuance || tx.Reason == models.ReasonPurchase) {
				totals.Issued += tx.Delta
			}
		case models.OwnerTypeUser:
			totals.UserHeld += tx.Delta
			if tx.Delta < 0 {
				totals.Consumed += -tx.Delta
			}
		}
	}
	return totals, nil
}

// ExecuteInTransaction serializes the way row locks do in Postgres:
// every mutating service path locks the wallet rows it reads before
// writing, so two overlapping transactions on the same wallet never
// both see the pre-debit balance.
func (r *WalletRepo) ExecuteInTransaction(fn func(repositories.WalletRepository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	if r.BeginHook != nil {
		r.BeginHook()
	}
	return fn(r)
}

// Transactions returns a snapshot of the full ledger, oldest first.
func (r *WalletRepo) Transactions() []models.CreditTransaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.CreditTransaction, len(r.txs))
	for i, tx := range r.txs {
		out[i] = *tx
	}
	return out
}

// WalletCount reports how many wallet rows exist.
func (r *WalletRepo) WalletCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.wallets)
}

// UserRepo is an in-memory repositories.UserRepository.
type UserRepo struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*models.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{nextID: 1, users: make(map[uint]*models.User)}
}

func (r *UserRepo) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return &pgconn.PgError{Code: "23505", ConstraintName: "idx_users_email"}
		}
	}
	user.ID = r.nextID
	r.nextID++
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *UserRepo) GetByID(id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) GetByEmail(email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *UserRepo) ListByOrganization(orgID uint) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, u := range r.users {
		if u.OrganizationID != nil && *u.OrganizationID == orgID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *UserRepo) Update(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repositories.ErrUserNotFound
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *UserRepo) GetTokenVersion(userID uint) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return 0, repositories.ErrUserNotFound
	}
	return u.TokenVersion, nil
}

func (r *UserRepo) IncrementTokenVersion(userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.TokenVersion++
	return nil
}

// OrgRepo is an in-memory repositories.OrganizationRepository.
type OrgRepo struct {
	mu     sync.Mutex
	nextID uint
	orgs   map[uint]*models.Organization
}

func NewOrgRepo() *OrgRepo {
	return &OrgRepo{nextID: 1, orgs: make(map[uint]*models.Organization)}
}

func (r *OrgRepo) Create(org *models.Organization) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	org.ID = r.nextID
	r.nextID++
	cp := *org
	r.orgs[org.ID] = &cp
	return nil
}

func (r *OrgRepo) GetByID(id uint) (*models.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orgs[id]
	if !ok {
		return nil, repositories.ErrOrganizationNotFound
	}
	cp := *o
	return &cp, nil
}

// OrderRepo is an in-memory repositories.OrderRepository.
type OrderRepo struct {
	mu     sync.Mutex
	nextID uint
	orders map[uint]*models.CreditOrder
}

func NewOrderRepo() *OrderRepo {
	return &OrderRepo{nextID: 1, orders: make(map[uint]*models.CreditOrder)}
}

func (r *OrderRepo) Create(order *models.CreditOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order.ID = r.nextID
	r.nextID++
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *OrderRepo) GetByOrderRef(ref string) (*models.CreditOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.OrderRef == ref {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repositories.ErrOrderNotFound
}

func (r *OrderRepo) GetByPaymentIntent(intentID string) (*models.CreditOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.PaymentIntentID == intentID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repositories.ErrOrderNotFound
}

func (r *OrderRepo) LockByPaymentIntent(intentID string) (*models.CreditOrder, error) {
	return r.GetByPaymentIntent(intentID)
}

func (r *OrderRepo) Update(order *models.CreditOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; !ok {
		return repositories.ErrOrderNotFound
	}
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *OrderRepo) ExecuteInTransaction(fn func(repositories.OrderRepository) error) error {
	return fn(r)
}

// Cache is an in-memory stand-in for the Redis cache service. It
// matches the wallet service's Cache interface.
type Cache struct {
	mu       sync.Mutex
	wallets  map[uint]*models.CreditWallet
	balances map[uint]int64
}

func NewCache() *Cache {
	return &Cache{
		wallets:  make(map[uint]*models.CreditWallet),
		balances: make(map[uint]int64),
	}
}

func (c *Cache) GetWallet(ctx context.Context, walletID uint) (*models.CreditWallet, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.wallets[walletID]
	if !ok {
		return nil, false, nil
	}
	cp := *w
	return &cp, true, nil
}

func (c *Cache) CacheWallet(ctx context.Context, wallet *models.CreditWallet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *wallet
	c.wallets[wallet.ID] = &cp
	return nil
}

func (c *Cache) GetBalance(ctx context.Context, walletID uint) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.balances[walletID]
	return b, ok, nil
}

func (c *Cache) CacheBalance(ctx context.Context, walletID uint, balance int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[walletID] = balance
	return nil
}

func (c *Cache) InvalidateWallet(ctx context.Context, walletID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.wallets, walletID)
	delete(c.balances, walletID)
	return nil
}
