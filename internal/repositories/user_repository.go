package repositories

import (
	"finwell/internal/models"
)

// UserRepository covers account lookup and provisioning for all roles.
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	ListByOrganization(orgID uint) ([]models.User, error)
	Update(user *models.User) error
	GetTokenVersion(userID uint) (int, error)
	IncrementTokenVersion(userID uint) error
}

// OrganizationRepository covers tenant provisioning.
type OrganizationRepository interface {
	Create(org *models.Organization) error
	GetByID(id uint) (*models.Organization, error)
}

// OrderRepository persists credit pack purchases. Orders are mutated
// only through status transitions; the ledger rows they produce live in
// the transaction log.
type OrderRepository interface {
	Create(order *models.CreditOrder) error
	GetByOrderRef(ref string) (*models.CreditOrder, error)
	GetByPaymentIntent(intentID string) (*models.CreditOrder, error)
	LockByPaymentIntent(intentID string) (*models.CreditOrder, error)
	Update(order *models.CreditOrder) error
	ExecuteInTransaction(fn func(OrderRepository) error) error
}
