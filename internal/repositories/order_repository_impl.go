package repositories

import (
	"fmt"

	"finwell/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(order *models.CreditOrder) error {
	if err := r.db.Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *orderRepository) GetByOrderRef(ref string) (*models.CreditOrder, error) {
	var order models.CreditOrder
	if err := r.db.Where("order_ref = ?", ref).First(&order).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func (r *orderRepository) GetByPaymentIntent(intentID string) (*models.CreditOrder, error) {
	var order models.CreditOrder
	if err := r.db.Where("payment_intent_id = ?", intentID).First(&order).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order by payment intent: %w", err)
	}
	return &order, nil
}

// LockByPaymentIntent loads the order under SELECT ... FOR UPDATE so
// concurrent webhook deliveries for the same payment serialize. Only
// meaningful inside ExecuteInTransaction.
func (r *orderRepository) LockByPaymentIntent(intentID string) (*models.CreditOrder, error) {
	var order models.CreditOrder
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("payment_intent_id = ?", intentID).
		First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	return &order, nil
}

func (r *orderRepository) Update(order *models.CreditOrder) error {
	if err := r.db.Save(order).Error; err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}

func (r *orderRepository) ExecuteInTransaction(fn func(OrderRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&orderRepository{db: tx})
	})
}
