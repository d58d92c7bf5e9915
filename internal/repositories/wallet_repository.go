package repositories

import (
	"time"

	"finwell/internal/models"
)

// KindTotals aggregates the ledger for one credit kind. Issued counts
// every supply-creating credit on ORG wallets; OrgHeld and UserHeld are
// the projected balances by owner type; Consumed is the total debited
// from USER wallets by usage.
type KindTotals struct {
	Kind     models.CreditKind `json:"credit_kind"`
	Issued   int64             `json:"issued"`
	OrgHeld  int64             `json:"org_held"`
	UserHeld int64             `json:"user_held"`
	Consumed int64             `json:"consumed"`
}

// WalletRepository is the persistence contract for the credit ledger.
// The transaction log is append-only: there is deliberately no update
// or delete operation for transactions.
//
// LockByID takes a row-level lock and is only meaningful inside
// ExecuteInTransaction; every mutating service path locks the wallet
// rows it touches before checking the projected balance.
type WalletRepository interface {
	GetOrCreate(ownerType models.OwnerType, ownerID uint, kind models.CreditKind) (*models.CreditWallet, error)
	GetByID(id uint) (*models.CreditWallet, error)
	GetByOwner(ownerType models.OwnerType, ownerID uint, kind models.CreditKind) (*models.CreditWallet, error)
	ListByOwner(ownerType models.OwnerType, ownerID uint) ([]models.CreditWallet, error)
	LockByID(id uint) (*models.CreditWallet, error)
	SetExpiry(id uint, expiresAt *time.Time) error

	AppendTransaction(tx *models.CreditTransaction) error
	SumDeltas(walletID uint) (int64, error)
	SetCachedBalance(walletID uint, balance int64) error
	ListTransactions(walletID uint, limit, offset int) ([]models.CreditTransaction, error)
	GetTransactionByReference(reference, reason string) (*models.CreditTransaction, error)

	KindTotals(kind models.CreditKind) (*KindTotals, error)

	ExecuteInTransaction(fn func(WalletRepository) error) error
}
