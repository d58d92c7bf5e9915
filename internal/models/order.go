package models

import (
	"time"

	"gorm.io/gorm"
)

// Credit order states. Orders move pending → paid (webhook) or
// pending → failed; a paid order is issued exactly once.
const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"
	OrderStatusFailed  = "failed"
)

// CreditOrder records an organization's purchase of a credit pack
// through the payment gateway. IssuedAt is set when the paid order has
// been turned into an issuance on the org wallet, which makes the
// webhook idempotent: a replayed payment event finds IssuedAt non-nil
// and does nothing.
type CreditOrder struct {
	gorm.Model
	OrderRef        string     `gorm:"uniqueIndex;not null" json:"order_ref"`
	OrganizationID  uint       `gorm:"not null;index" json:"organization_id"`
	Kind            CreditKind `gorm:"column:credit_kind;not null" json:"credit_kind"`
	Quantity        int64      `gorm:"not null" json:"quantity"`
	PriceAmount     int64      `gorm:"not null" json:"price_amount"` // minor units
	PriceCurrency   string     `gorm:"not null" json:"price_currency"`
	Status          string     `gorm:"not null;default:'pending'" json:"status"`
	PaymentIntentID string     `gorm:"uniqueIndex" json:"payment_intent_id"`
	CreatedBy       uint       `gorm:"not null" json:"created_by"`
	IssuedAt        *time.Time `json:"issued_at,omitempty"`
}

func (CreditOrder) TableName() string { return "credit_orders" }

// Price returns the order price as a typed amount.
func (o *CreditOrder) Price() Money {
	return Money{Amount: o.PriceAmount, Currency: o.PriceCurrency}
}
