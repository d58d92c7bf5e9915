// Package purchase sells credit packs to organizations through the
// payment gateway. An order is created pending alongside a payment
// intent; the gateway's webhook confirms payment, which issues the
// purchased credits onto the org wallet exactly once.
package purchase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finwell/internal/models"
	"finwell/internal/repositories"
	"finwell/internal/services/issuance"
	"finwell/internal/services/wallet"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	ErrOrderNotFound   = errors.New("order not found")
	ErrUnauthorized    = errors.New("actor may not purchase for this organization")
)

type Service interface {
	// CreateOrder opens a pending order and returns it with the payment
	// client secret the frontend completes the charge with.
	CreateOrder(ctx context.Context, orgID uint, kind models.CreditKind, quantity int64, price models.Money, actor wallet.Actor) (*models.CreditOrder, string, error)

	// HandlePaymentSucceeded is driven by the gateway webhook. Replays
	// are safe: a paid-and-issued order is left untouched.
	HandlePaymentSucceeded(ctx context.Context, paymentIntentID string) error

	// HandlePaymentFailed marks the order failed; no credits move.
	HandlePaymentFailed(ctx context.Context, paymentIntentID string) error
}

type service struct {
	orders  repositories.OrderRepository
	orgs    repositories.OrganizationRepository
	issuer  issuance.Service
	gateway PaymentGateway
	log     logrus.FieldLogger
}

func NewService(
	orders repositories.OrderRepository,
	orgs repositories.OrganizationRepository,
	issuer issuance.Service,
	gateway PaymentGateway,
	log logrus.FieldLogger,
) Service {
	if orders == nil {
		panic("order repository is required")
	}
	if issuer == nil {
		panic("issuance service is required")
	}
	if gateway == nil {
		panic("payment gateway is required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &service{
		orders:  orders,
		orgs:    orgs,
		issuer:  issuer,
		gateway: gateway,
		log:     log,
	}
}

func (s *service) CreateOrder(ctx context.Context, orgID uint, kind models.CreditKind, quantity int64, price models.Money, actor wallet.Actor) (*models.CreditOrder, string, error) {
	if quantity <= 0 {
		return nil, "", ErrInvalidQuantity
	}
	if !models.ValidCreditKind(kind) {
		return nil, "", fmt.Errorf("unknown credit kind %q", kind)
	}
	if actor.Role != models.RoleAdmin && !actor.SameOrg(orgID) {
		return nil, "", ErrUnauthorized
	}

	if _, err := s.orgs.GetByID(orgID); err != nil {
		return nil, "", err
	}

	orderRef := uuid.NewString()
	intentID, clientSecret, err := s.gateway.CreatePaymentIntent(price, orderRef)
	if err != nil {
		return nil, "", err
	}

	order := &models.CreditOrder{
		OrderRef:        orderRef,
		OrganizationID:  orgID,
		Kind:            kind,
		Quantity:        quantity,
		PriceAmount:     price.Amount,
		PriceCurrency:   price.Currency,
		Status:          models.OrderStatusPending,
		PaymentIntentID: intentID,
		CreatedBy:       actor.UserID,
	}
	if err := s.orders.Create(order); err != nil {
		return nil, "", err
	}

	s.log.WithFields(logrus.Fields{
		"order_ref":       orderRef,
		"organization_id": orgID,
		"credit_kind":     kind,
		"quantity":        quantity,
		"price":           price.String(),
	}).Info("created credit pack order")
	return order, clientSecret, nil
}

func (s *service) HandlePaymentSucceeded(ctx context.Context, paymentIntentID string) error {
	return s.orders.ExecuteInTransaction(func(otx repositories.OrderRepository) error {
		order, err := otx.LockByPaymentIntent(paymentIntentID)
		if err != nil {
			if errors.Is(err, repositories.ErrOrderNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		if order.IssuedAt != nil {
			s.log.WithField("order_ref", order.OrderRef).Debug("payment webhook replay ignored")
			return nil
		}

		// Issuance is keyed on the order reference, so even if this
		// transaction fails to commit after the issue, a webhook retry
		// finds the existing ledger entry instead of issuing again.
		system := wallet.Actor{UserID: order.CreatedBy, Role: models.RoleAdmin}
		if _, err := s.issuer.IssuePurchasedCredits(ctx, order.OrganizationID, order.Kind, order.Quantity, order.OrderRef, system); err != nil {
			return fmt.Errorf("failed to issue purchased credits: %w", err)
		}

		now := time.Now()
		order.Status = models.OrderStatusPaid
		order.IssuedAt = &now
		if err := otx.Update(order); err != nil {
			return err
		}

		s.log.WithFields(logrus.Fields{
			"order_ref":       order.OrderRef,
			"organization_id": order.OrganizationID,
			"quantity":        order.Quantity,
		}).Info("credit pack paid and issued")
		return nil
	})
}

func (s *service) HandlePaymentFailed(ctx context.Context, paymentIntentID string) error {
	return s.orders.ExecuteInTransaction(func(otx repositories.OrderRepository) error {
		order, err := otx.LockByPaymentIntent(paymentIntentID)
		if err != nil {
			if errors.Is(err, repositories.ErrOrderNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if order.Status != models.OrderStatusPending {
			return nil
		}
		order.Status = models.OrderStatusFailed
		if err := otx.Update(order); err != nil {
			return err
		}
		s.log.WithField("order_ref", order.OrderRef).Warn("credit pack payment failed")
		return nil
	})
}
