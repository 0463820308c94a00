// Package messaging defines the event contracts and publishers used to fan
// out payment lifecycle events.
package messaging

import (
	"context"
)

// CheckoutCompletedSubject is the JetStream subject for completed checkout sessions.
const CheckoutCompletedSubject = "checkout.completed"

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
