// Package app contains the application setup for the shopfront service.
package app

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/shopfront/internal/cart"
	"github.com/abgdnv/shopfront/internal/catalog"
	"github.com/abgdnv/shopfront/internal/checkout"
	"github.com/abgdnv/shopfront/internal/config"
	"github.com/abgdnv/shopfront/internal/messaging"
	"github.com/abgdnv/shopfront/internal/transport/rest"
	"github.com/abgdnv/shopfront/internal/webhook"
	"github.com/abgdnv/shopfront/pkg/server"
	"github.com/go-chi/chi/v5"
)

type Dependencies struct {
	Catalog      *catalog.Catalog
	Carts        *cart.Manager
	Checkout     checkout.SessionService
	Webhooks     webhook.EventHandler
	ExposeErrors bool
	Logger       *slog.Logger
}

func SetupDependencies(cfg *config.Config, publisher messaging.Publisher, logger *slog.Logger) *Dependencies {
	cat := catalog.Default()
	gateway := checkout.NewStripeGateway(cfg.Stripe.Key, cfg.CircuitBreaker)
	checkoutSvc := checkout.NewService(cat, gateway, cfg.Stripe.Key != "", cfg.App.BaseURL, logger)
	webhookSvc := webhook.NewService(cfg.Stripe.WebhookSecret, cfg.Stripe.Key, publisher, logger)

	return &Dependencies{
		Catalog:      cat,
		Carts:        cart.NewManager(cfg.App.DataDir, logger),
		Checkout:     checkoutSvc,
		Webhooks:     webhookSvc,
		ExposeErrors: !cfg.App.IsProduction(),
		Logger:       logger,
	}
}

// SetupHttpHandler initializes the HTTP routes for the shopfront application.
// Used by tests to set up the HTTP handler with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the shopfront application.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	handler := rest.NewHandler(deps.Catalog, deps.Carts, deps.Checkout, deps.Webhooks, deps.ExposeErrors, deps.Logger)
	handler.RegisterRoutes(mux)
}

// SetupHttpServer creates and configures an HTTP server for the shopfront application.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {

	mux := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux)
}
