// Package checkout validates untrusted cart contents against the catalog and
// creates payment sessions with the gateway.
package checkout

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned when the gateway credential is missing.
	ErrNotConfigured = errors.New("payment gateway is not configured")

	// ErrEmptyCart is returned when a checkout request contains no items.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrUnknownProduct is the sentinel wrapped by UnknownProductError.
	ErrUnknownProduct = errors.New("unknown product")
)

// UnknownProductError identifies the offending product ID of a rejected
// checkout request. Matches ErrUnknownProduct via errors.Is.
type UnknownProductError struct {
	ID string
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("unknown product: %s", e.ID)
}

func (e *UnknownProductError) Unwrap() error {
	return ErrUnknownProduct
}
