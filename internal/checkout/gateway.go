package checkout

import (
	"context"
	"fmt"

	"github.com/abgdnv/shopfront/pkg/config"
	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

// StripeGateway creates hosted checkout sessions via the Stripe API.
// Calls are wrapped in a circuit breaker so that a misbehaving upstream
// stops consuming request capacity.
type StripeGateway struct {
	api     *client.API
	breaker *gobreaker.CircuitBreaker[string]
}

// NewStripeGateway creates a gateway authenticated with the given secret key.
func NewStripeGateway(apiKey string, cfg config.CircuitBreakerConfig) *StripeGateway {
	api := &client.API{}
	api.Init(apiKey, nil)

	settings := gobreaker.Settings{
		Name:        "stripe-checkout",
		MaxRequests: 3,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > cfg.ConsecutiveFailures
		},
	}
	return &StripeGateway{
		api:     api,
		breaker: gobreaker.NewCircuitBreaker[string](settings),
	}
}

// CreateSession creates a one-time card payment session and returns its
// redirect URL.
func (g *StripeGateway) CreateSession(ctx context.Context, p SessionParams) (string, error) {
	return g.breaker.Execute(func() (string, error) {
		params := &stripe.CheckoutSessionParams{
			Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
			PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
			SuccessURL:         stripe.String(p.SuccessURL),
			CancelURL:          stripe.String(p.CancelURL),
		}
		params.Context = ctx
		for _, li := range p.LineItems {
			params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(li.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(li.Name),
					},
					UnitAmount: stripe.Int64(li.UnitAmount),
				},
				Quantity: stripe.Int64(li.Quantity),
			})
		}

		sess, err := g.api.CheckoutSessions.New(params)
		if err != nil {
			return "", fmt.Errorf("stripe session creation failed: %w", err)
		}
		return sess.URL, nil
	})
}
