package wallet

import (
	"context"

	"finwell/internal/models"
)

// Actor is the identity performing a ledger operation, as supplied by
// the authentication layer. Services receive it explicitly; nothing is
// read from ambient state.
type Actor struct {
	UserID         uint
	Role           string
	OrganizationID *uint
}

// SameOrg reports whether the actor belongs to the given organization.
func (a Actor) SameOrg(orgID uint) bool {
	return a.OrganizationID != nil && *a.OrganizationID == orgID
}

// Cache is the read-path cache the service invalidates on every write.
type Cache interface {
	GetWallet(ctx context.Context, walletID uint) (*models.CreditWallet, bool, error)
	CacheWallet(ctx context.Context, wallet *models.CreditWallet) error
	GetBalance(ctx context.Context, walletID uint) (int64, bool, error)
	CacheBalance(ctx context.Context, walletID uint, balance int64) error
	InvalidateWallet(ctx context.Context, walletID uint) error
}
