package wallet

import (
	"context"

	"finwell/internal/models"
)

// Service defines the user-facing ledger operations.
type Service interface {
	// Lookup
	GetWallet(ctx context.Context, walletID uint) (*models.CreditWallet, error)
	ListWallets(ctx context.Context, ownerType models.OwnerType, ownerID uint) ([]models.CreditWallet, error)

	// Balance projection (expiry-adjusted)
	Balance(ctx context.Context, walletID uint) (int64, error)

	// Consumption debit
	Consume(ctx context.Context, walletID uint, amount int64, reason, reference string, actor Actor) (*models.CreditTransaction, error)

	// Transaction history
	History(ctx context.Context, walletID uint, limit, offset int) ([]models.CreditTransaction, error)
}
