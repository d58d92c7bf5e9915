package models

import (
	"time"
)

// Transaction reasons. Free text is allowed in Reason, but the ledger's
// own write paths always use one of these so reports can classify rows.
const (
	ReasonIssuance         = "admin issuance"
	ReasonPurchase         = "credit pack purchase"
	ReasonAllocationDebit  = "allocation debit"
	ReasonAllocationCredit = "allocation credit"
	ReasonConsumption      = "consumption"
	ReasonReversal         = "reversal"
)

// CreditTransaction is one immutable ledger entry. Positive delta is a
// credit, negative a debit. Rows are append-only: nothing in the code
// base updates or deletes them, and corrections are written as reversing
// entries.
type CreditTransaction struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	WalletID  uint      `gorm:"not null;index" json:"wallet_id"`
	Delta     int64     `gorm:"not null" json:"delta"`
	Reason    string    `gorm:"not null" json:"reason"`
	Reference string    `gorm:"index" json:"reference,omitempty"`
	CreatedBy uint      `gorm:"not null" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

func (CreditTransaction) TableName() string { return "credit_transactions" }
