package messaging

import (
	"encoding/json"
	"time"
)

// CheckoutCompletedEvent is published when the payment gateway reports a
// checkout session as completed.
type CheckoutCompletedEvent struct {
	SessionID   string    `json:"session_id"`
	CompletedAt time.Time `json:"completed_at"`
}

func (e CheckoutCompletedEvent) Subject() string {
	return CheckoutCompletedSubject
}

func (e CheckoutCompletedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
