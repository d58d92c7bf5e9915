package models

import (
	"gorm.io/gorm"
)

// Organization is a tenant. HR accounts and employees belong to exactly
// one organization; the organization owns the ORG credit wallets that
// admin issuance and credit purchases fund.
type Organization struct {
	gorm.Model
	Name   string `gorm:"uniqueIndex;not null" json:"name"`
	Status string `gorm:"default:'active'" json:"status"`
}
