package models

import (
	"time"
)

// OwnerType identifies who holds a credit wallet.
type OwnerType string

const (
	OwnerTypeOrg  OwnerType = "ORG"
	OwnerTypeUser OwnerType = "USER"
)

// CreditKind is the category of entitlement a wallet holds.
type CreditKind string

const (
	CreditKindSession CreditKind = "SESSION_1_1"
	CreditKindWebinar CreditKind = "WEBINAR"
)

// ValidCreditKind reports whether k is a known credit kind.
func ValidCreditKind(k CreditKind) bool {
	return k == CreditKindSession || k == CreditKindWebinar
}

// CreditWallet is a balance holder keyed by (owner_type, owner_id,
// credit_kind). The triple is unique; wallets are created on first
// issuance or allocation targeting the triple and never deleted, only
// drained to zero.
//
// Balance is a cached projection of the wallet's transaction log. It is
// maintained in the same database transaction as every append, but debit
// authorization always recomputes the balance from the log.
type CreditWallet struct {
	ID        uint       `gorm:"primarykey" json:"id"`
	OwnerType OwnerType  `gorm:"not null;uniqueIndex:idx_wallet_owner_kind" json:"owner_type"`
	OwnerID   uint       `gorm:"not null;uniqueIndex:idx_wallet_owner_kind" json:"owner_id"`
	Kind      CreditKind `gorm:"column:credit_kind;not null;uniqueIndex:idx_wallet_owner_kind" json:"credit_kind"`
	Balance   int64      `gorm:"not null;default:0" json:"balance"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (CreditWallet) TableName() string { return "credit_wallets" }

// Expired reports whether the wallet is past its expiry at the given
// instant. Wallets without an expiry never expire.
func (w *CreditWallet) Expired(now time.Time) bool {
	return w.ExpiresAt != nil && w.ExpiresAt.Before(now)
}
