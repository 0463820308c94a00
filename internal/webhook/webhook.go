// Package webhook verifies signed payment gateway events and dispatches on
// event type.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abgdnv/shopfront/internal/messaging"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

var (
	// ErrNotConfigured is returned when the signing secret or the gateway
	// credential is missing.
	ErrNotConfigured = errors.New("webhook is not configured")

	// ErrInvalidSignature is returned when the payload does not match the
	// signature header.
	ErrInvalidSignature = errors.New("invalid signature")
)

// EventHandler defines the webhook operation exposed to transports.
type EventHandler interface {
	// Handle verifies the signature over payload and processes the event.
	// A verified event is always accepted, whatever its type; only
	// checkout.session.completed has an observable effect.
	Handle(ctx context.Context, payload []byte, sigHeader string) error
}

// Service implements EventHandler using the gateway's shared signing secret.
type Service struct {
	webhookSecret string
	apiKey        string
	publisher     messaging.Publisher
	logger        *slog.Logger
}

// NewService creates a webhook service. Both secrets must be non-empty for
// Handle to do anything but fail with ErrNotConfigured.
func NewService(webhookSecret, apiKey string, publisher messaging.Publisher, logger *slog.Logger) *Service {
	return &Service{
		webhookSecret: webhookSecret,
		apiKey:        apiKey,
		publisher:     publisher,
		logger:        logger.With("component", "webhook"),
	}
}

// Handle verifies and dispatches one delivery. Verification failure rejects
// the delivery outright; nothing is partially processed.
func (s *Service) Handle(ctx context.Context, payload []byte, sigHeader string) error {
	if s.webhookSecret == "" || s.apiKey == "" {
		return ErrNotConfigured
	}

	// verification must not depend on the sender's API version; accounts on
	// older versions still sign correctly
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if event.Type == stripe.EventTypeCheckoutSessionCompleted {
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			// the delivery is authentic, so still acknowledge it
			s.logger.WarnContext(ctx, "Failed to decode checkout session payload", "error", err)
			return nil
		}
		s.logger.InfoContext(ctx, "Checkout complete", "session_id", session.ID)
		completed := messaging.CheckoutCompletedEvent{
			SessionID:   session.ID,
			CompletedAt: time.Now().UTC(),
		}
		if err := s.publisher.Publish(ctx, completed); err != nil {
			// publishing is best effort; the gateway must still get its ack
			s.logger.ErrorContext(ctx, "Failed to publish checkout completed event", "error", err)
		}
		return nil
	}

	// unknown event kinds are acknowledged so the gateway stops redelivering
	s.logger.DebugContext(ctx, "Ignoring webhook event", "type", event.Type)
	return nil
}
