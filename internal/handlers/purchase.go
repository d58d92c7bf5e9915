package handlers

import (
	"encoding/json"
	"errors"
	"os"

	"finwell/internal/models"
	"finwell/internal/services/purchase"
	"finwell/internal/utils"
	"finwell/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/webhook"
)

type PurchaseHandler struct {
	purchaseService purchase.Service
	log             logrus.FieldLogger
}

func NewPurchaseHandler(purchaseService purchase.Service, log logrus.FieldLogger) *PurchaseHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PurchaseHandler{
		purchaseService: purchaseService,
		log:             log,
	}
}

// CreateOrder opens a credit pack order and returns the client secret
// for completing the payment.
func (h *PurchaseHandler) CreateOrder(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		OrganizationID uint              `json:"organization_id"`
		Kind           models.CreditKind `json:"credit_kind"`
		Quantity       int64             `json:"quantity"`
		PriceAmount    int64             `json:"price_amount"`
		PriceCurrency  string            `json:"price_currency"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	if err := validation.ValidateCreditKind(input.Kind); err != nil {
		return utils.BadRequest(c, err.Error())
	}

	price, err := models.NewMoney(input.PriceAmount, input.PriceCurrency)
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}

	order, clientSecret, err := h.purchaseService.CreateOrder(c.Context(), input.OrganizationID, input.Kind, input.Quantity, price, actorFromClaims(claims))
	if err != nil {
		switch {
		case errors.Is(err, purchase.ErrInvalidQuantity):
			return utils.BadRequest(c, "Quantity must be greater than 0")
		case errors.Is(err, purchase.ErrUnauthorized):
			return utils.Forbidden(c, "Cannot purchase for this organization")
		default:
			return utils.InternalError(c, "Failed to create order")
		}
	}

	return utils.Created(c, fiber.Map{
		"order":         order,
		"client_secret": clientSecret,
	})
}

// StripeWebhook receives payment events from the gateway. The payload
// signature is verified before anything is trusted.
func (h *PurchaseHandler) StripeWebhook(c *fiber.Ctx) error {
	secret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	event, err := webhook.ConstructEvent(c.Body(), c.Get("Stripe-Signature"), secret)
	if err != nil {
		h.log.WithError(err).Warn("rejected webhook with bad signature")
		return utils.BadRequest(c, "invalid signature")
	}

	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
	default:
		// Not ours to handle; acknowledge so the gateway stops retrying.
		return utils.Success(c, fiber.Map{"received": true})
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return utils.BadRequest(c, "malformed event payload")
	}

	if event.Type == "payment_intent.succeeded" {
		err = h.purchaseService.HandlePaymentSucceeded(c.Context(), intent.ID)
	} else {
		err = h.purchaseService.HandlePaymentFailed(c.Context(), intent.ID)
	}
	if err != nil {
		if errors.Is(err, purchase.ErrOrderNotFound) {
			// Unknown intent: not an order of ours, ack and move on.
			return utils.Success(c, fiber.Map{"received": true})
		}
		h.log.WithError(err).WithField("payment_intent", intent.ID).Error("webhook processing failed")
		return utils.InternalError(c, "webhook processing failed")
	}

	return utils.Success(c, fiber.Map{"received": true})
}
