// Package rest provides HTTP handlers for the storefront API.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/abgdnv/shopfront/internal/cart"
	"github.com/abgdnv/shopfront/internal/catalog"
	"github.com/abgdnv/shopfront/internal/checkout"
	"github.com/abgdnv/shopfront/internal/webhook"
	"github.com/abgdnv/shopfront/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const sessionCookie = "cart_session"

// maxWebhookBytes caps webhook payload reads; gateway events are small.
const maxWebhookBytes = 64 * 1024

type Handler struct {
	catalog      *catalog.Catalog
	carts        *cart.Manager
	checkout     checkout.SessionService
	webhooks     webhook.EventHandler
	exposeErrors bool
	validate     *validator.Validate
	logger       *slog.Logger
}

// NewHandler creates the storefront API handler. exposeErrors controls
// whether upstream error detail is echoed to clients (non-production only).
func NewHandler(c *catalog.Catalog, carts *cart.Manager, checkoutSvc checkout.SessionService, webhooks webhook.EventHandler, exposeErrors bool, logger *slog.Logger) *Handler {
	return &Handler{
		catalog:      c,
		carts:        carts,
		checkout:     checkoutSvc,
		webhooks:     webhooks,
		exposeErrors: exposeErrors,
		validate:     validator.New(),
		logger:       logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the storefront service.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Post("/checkout", h.CreateCheckoutSession)
		r.Post("/webhooks/stripe", h.StripeWebhook)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddCartItem)

			r.Route("/items/{id}", func(r chi.Router) {
				r.Delete("/", h.RemoveCartItem)
				r.Post("/increment", h.IncrementCartItem)
				r.Post("/decrement", h.DecrementCartItem)
			})
		})
	})

	r.Get("/healthz", h.HealthCheck)
}

// ListProducts returns the full catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	web.RespondJSON(w, mLogger, http.StatusOK, h.catalog.List())
}

// checkoutRequest is the untrusted checkout body. Unknown fields (such as a
// client-attached price) are ignored by decoding.
type checkoutRequest struct {
	Items []checkout.RequestedItem `json:"items"`
}

// CreateCheckoutSession validates the requested cart lines and returns the
// gateway's redirect URL.
func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// a malformed body is handled like an empty one
		mLogger.DebugContext(r.Context(), "Malformed checkout body treated as empty cart", "error", err)
		req.Items = nil
	}

	mLogger.DebugContext(r.Context(), "Received checkout request", "items", len(req.Items))
	url, err := h.checkout.CreateSession(r.Context(), req.Items)
	if err != nil {
		var unknown *checkout.UnknownProductError
		switch {
		case errors.Is(err, checkout.ErrNotConfigured):
			mLogger.ErrorContext(r.Context(), "Checkout requested but Stripe is not configured")
			web.RespondError(w, mLogger, http.StatusInternalServerError, "Stripe is not configured")
		case errors.Is(err, checkout.ErrEmptyCart):
			mLogger.WarnContext(r.Context(), "Checkout requested with empty cart")
			web.RespondError(w, mLogger, http.StatusBadRequest, "Cart is empty")
		case errors.As(err, &unknown):
			mLogger.WarnContext(r.Context(), "Checkout requested with unknown product", "ID", unknown.ID)
			web.RespondError(w, mLogger, http.StatusBadRequest, fmt.Sprintf("Unknown product: %s", unknown.ID))
		default:
			mLogger.ErrorContext(r.Context(), "Error creating checkout session", "error", err)
			message := "Failed to create checkout session"
			if h.exposeErrors {
				message = fmt.Sprintf("%s: %v", message, err)
			}
			web.RespondError(w, mLogger, http.StatusInternalServerError, message)
		}
		return
	}
	mLogger.InfoContext(r.Context(), "Checkout session created")
	web.RespondJSON(w, mLogger, http.StatusOK, map[string]string{"url": url})
}

// StripeWebhook verifies and dispatches one gateway event delivery.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		mLogger.WarnContext(r.Context(), "Failed to read webhook payload", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Failed to read request body")
		return
	}

	if err := h.webhooks.Handle(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		switch {
		case errors.Is(err, webhook.ErrNotConfigured):
			mLogger.ErrorContext(r.Context(), "Webhook received but secrets are not configured")
			web.RespondError(w, mLogger, http.StatusServiceUnavailable, "Webhook not configured")
		case errors.Is(err, webhook.ErrInvalidSignature):
			mLogger.WarnContext(r.Context(), "Webhook signature verification failed", "error", err)
			web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid signature")
		default:
			mLogger.ErrorContext(r.Context(), "Error handling webhook", "error", err)
			web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to handle webhook")
		}
		return
	}
	// the gateway's retry policy keys on this acknowledgment
	w.WriteHeader(http.StatusOK)
}

// cartResponse is the cart snapshot returned by all cart endpoints.
type cartResponse struct {
	Items []cart.Line `json:"items"`
	Total int64       `json:"total"`
}

// cartItemDto is the body for adding a product to the cart.
type cartItemDto struct {
	ID string `json:"id" validate:"required"`
}

// GetCart returns the current session's cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	store, ok := h.sessionCart(w, r, mLogger)
	if !ok {
		return
	}
	h.respondCart(w, mLogger, store)
}

// AddCartItem adds one unit of a product to the session's cart.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)

	var dto cartItemDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			errorResponse := make(map[string]string)
			for _, fieldErr := range validationErrors {
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
			mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
			web.RespondJSON(w, mLogger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
			return
		}
		mLogger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}

	product, found := h.catalog.Lookup(dto.ID)
	if !found {
		mLogger.WarnContext(r.Context(), "Product not found", "ID", dto.ID)
		web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Unknown product: %s", dto.ID))
		return
	}

	store, ok := h.sessionCart(w, r, mLogger)
	if !ok {
		return
	}
	store.Add(product)
	mLogger.DebugContext(r.Context(), "Product added to cart", "ID", product.ID)
	h.respondCart(w, mLogger, store)
}

// IncrementCartItem raises the quantity of a cart line by one.
func (h *Handler) IncrementCartItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	store, ok := h.sessionCart(w, r, mLogger)
	if !ok {
		return
	}
	store.Increment(r.PathValue("id"))
	h.respondCart(w, mLogger, store)
}

// DecrementCartItem lowers the quantity of a cart line by one, floored at one.
func (h *Handler) DecrementCartItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	store, ok := h.sessionCart(w, r, mLogger)
	if !ok {
		return
	}
	store.Decrement(r.PathValue("id"))
	h.respondCart(w, mLogger, store)
}

// RemoveCartItem drops a line from the session's cart.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	store, ok := h.sessionCart(w, r, mLogger)
	if !ok {
		return
	}
	store.Remove(r.PathValue("id"))
	h.respondCart(w, mLogger, store)
}

// ClearCart empties the session's cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	store, ok := h.sessionCart(w, r, mLogger)
	if !ok {
		return
	}
	store.Clear()
	h.respondCart(w, mLogger, store)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// sessionCart resolves the cart store for the request's session, creating a
// session cookie on first contact.
func (h *Handler) sessionCart(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger) (*cart.Store, bool) {
	var sessionID string
	if c, err := r.Cookie(sessionCookie); err == nil {
		if _, parseErr := uuid.Parse(c.Value); parseErr == nil {
			sessionID = c.Value
		}
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sessionID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	store, err := h.carts.Store(sessionID)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error opening cart store", "session_id", sessionID, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to access cart")
		return nil, false
	}
	return store, true
}

func (h *Handler) respondCart(w http.ResponseWriter, mLogger *slog.Logger, store *cart.Store) {
	items := store.Items()
	if items == nil {
		items = []cart.Line{}
	}
	web.RespondJSON(w, mLogger, http.StatusOK, cartResponse{Items: items, Total: store.Total()})
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
