package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/abgdnv/shopfront/internal/catalog"
)

// Currency is the only currency this shop sells in, in minor units.
const Currency = "eur"

// Quantity is a requested quantity from an untrusted client.
type Quantity int64

// UnmarshalJSON accepts integers, fractional values and numeric strings,
// integer-parsing all of them the way loose form input arrives. Anything
// unparseable decodes as zero, which CreateSession later coerces to one.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*q = Quantity(n)
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*q = Quantity(f)
		return nil
	}
	*q = 0
	return nil
}

// RequestedItem is one (id, qty) pair from an untrusted client. Any price a
// client attaches to the request is never decoded, let alone honored.
type RequestedItem struct {
	ID  string   `json:"id"`
	Qty Quantity `json:"qty"`
}

// LineItem is a trusted line derived from the catalog.
type LineItem struct {
	Currency   string
	Name       string
	UnitAmount int64
	Quantity   int64
}

// SessionParams describes one hosted checkout session to create.
type SessionParams struct {
	LineItems  []LineItem
	SuccessURL string
	CancelURL  string
}

// SessionGateway creates hosted checkout sessions with the payment provider
// and returns the redirect URL.
type SessionGateway interface {
	CreateSession(ctx context.Context, params SessionParams) (string, error)
}

// SessionService defines the checkout operation exposed to transports.
type SessionService interface {
	// CreateSession validates the requested items against the catalog and
	// creates a payment session. Returns the gateway's redirect URL.
	// Returns ErrNotConfigured, ErrEmptyCart or an UnknownProductError
	// without calling the gateway when the request cannot proceed.
	CreateSession(ctx context.Context, items []RequestedItem) (string, error)
}

// Service implements SessionService on top of the catalog and a gateway.
type Service struct {
	catalog    *catalog.Catalog
	gateway    SessionGateway
	configured bool
	baseURL    string
	logger     *slog.Logger
}

// NewService creates a checkout service. configured reports whether the
// gateway credential is present; when false, CreateSession fails fast
// before touching the network.
func NewService(c *catalog.Catalog, gateway SessionGateway, configured bool, baseURL string, logger *slog.Logger) *Service {
	return &Service{
		catalog:    c,
		gateway:    gateway,
		configured: configured,
		baseURL:    baseURL,
		logger:     logger.With("component", "checkout"),
	}
}

// CreateSession re-derives trusted line items from the catalog and asks the
// gateway for a session. All-or-nothing: one unknown ID rejects the whole
// request before any gateway call.
func (s *Service) CreateSession(ctx context.Context, items []RequestedItem) (string, error) {
	if !s.configured {
		return "", ErrNotConfigured
	}
	if len(items) == 0 {
		return "", ErrEmptyCart
	}

	lineItems := make([]LineItem, 0, len(items))
	for _, item := range items {
		product, ok := s.catalog.Lookup(item.ID)
		if !ok {
			return "", &UnknownProductError{ID: item.ID}
		}
		qty := int64(item.Qty)
		if qty < 1 {
			// absent, zero and negative quantities all coerce to 1
			qty = 1
		}
		lineItems = append(lineItems, LineItem{
			Currency:   Currency,
			Name:       product.Name,
			UnitAmount: product.Price,
			Quantity:   qty,
		})
	}

	url, err := s.gateway.CreateSession(ctx, SessionParams{
		LineItems:  lineItems,
		SuccessURL: s.baseURL + "/success",
		CancelURL:  s.baseURL + "/cancel",
	})
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	s.logger.InfoContext(ctx, "Checkout session created", "items", len(lineItems))
	return url, nil
}
