package purchase

import (
	"fmt"
	"os"

	"finwell/internal/models"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/paymentintent"
)

// PaymentGateway abstracts the payment provider so the service can be
// tested without network calls.
type PaymentGateway interface {
	CreatePaymentIntent(price models.Money, orderRef string) (intentID, clientSecret string, err error)
}

type stripeGateway struct{}

// NewStripeGateway configures the Stripe client from the environment.
func NewStripeGateway() PaymentGateway {
	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
	return &stripeGateway{}
}

func (g *stripeGateway) CreatePaymentIntent(price models.Money, orderRef string) (string, string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(price.Amount),
		Currency: stripe.String(price.Currency),
	}
	params.AddMetadata("order_ref", orderRef)

	intent, err := paymentintent.New(params)
	if err != nil {
		return "", "", fmt.Errorf("stripe payment intent failed: %w", err)
	}
	return intent.ID, intent.ClientSecret, nil
}
