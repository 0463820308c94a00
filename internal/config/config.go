// Package config defines the shopfront service configuration.
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/abgdnv/shopfront/pkg/config"
	"github.com/abgdnv/shopfront/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

const (
	defaultBaseURL     = "http://localhost:3000"
	defaultEnvironment = "production"
	defaultDataDir     = "data"

	defaultBreakerFailures = uint32(5)
	defaultBreakerTimeout  = 30 * time.Second
)

type Config struct {
	HTTPServer     config.HTTPConfig           `koanf:"server"`
	Log            config.LogConfig            `koanf:"log"`
	PProf          config.PProfConfig          `koanf:"pprof"`
	Shutdown       config.ShutdownConfig       `koanf:"shutdown"`
	App            AppConfig                   `koanf:"app"`
	Stripe         StripeConfig                `koanf:"stripe"`
	CircuitBreaker config.CircuitBreakerConfig `koanf:"circuitbreaker"`
	Events         EventsConfig                `koanf:"events"`
}

// AppConfig holds storefront-level settings.
type AppConfig struct {
	// BaseURL is the public URL the success/cancel redirects are derived from.
	BaseURL string `koanf:"baseurl"`
	// Environment controls whether upstream error detail reaches clients.
	// Anything other than "production" is treated as a development mode.
	Environment string `koanf:"environment"`
	// DataDir is where per-session cart slots are kept.
	DataDir string `koanf:"datadir"`
}

func (c *AppConfig) Validate() error {
	if c.BaseURL == "" {
		log.Println("Using default value for app.baseurl")
		c.BaseURL = defaultBaseURL
	}
	if c.Environment == "" {
		log.Println("Using default value for app.environment")
		c.Environment = defaultEnvironment
	}
	if c.DataDir == "" {
		log.Println("Using default value for app.datadir")
		c.DataDir = defaultDataDir
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	return nil
}

// IsProduction reports whether internal error detail must stay server-side.
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

// StripeConfig holds the gateway credential and the webhook signing secret.
// Both may be empty: the affected operations then fail per-request with their
// "not configured" errors instead of preventing startup.
type StripeConfig struct {
	Key           string `koanf:"key"`
	WebhookSecret string `koanf:"webhooksecret"`
}

func (c *StripeConfig) Validate() error {
	return nil
}

// EventsConfig controls publishing of checkout lifecycle events.
type EventsConfig struct {
	Enabled bool              `koanf:"enabled"`
	NATS    config.NATSConfig `koanf:"nats"`
}

func (c *EventsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return c.NATS.Validate()
}

func (c *Config) String() string {
	var b strings.Builder

	b.WriteString("\n--- Server Configuration ---\n")
	b.WriteString(fmt.Sprintf("  server.port: %d\n", c.HTTPServer.Port))
	b.WriteString(fmt.Sprintf("  server.maxHeaderBytes: %d\n", c.HTTPServer.MaxHeaderBytes))
	b.WriteString(fmt.Sprintf("  server.timeout.read: %v\n", c.HTTPServer.Timeout.Read))
	b.WriteString(fmt.Sprintf("  server.timeout.write: %v\n", c.HTTPServer.Timeout.Write))
	b.WriteString(fmt.Sprintf("  server.timeout.idle: %v\n", c.HTTPServer.Timeout.Idle))
	b.WriteString(fmt.Sprintf("  server.timeout.readHeader: %v\n", c.HTTPServer.Timeout.ReadHeader))

	b.WriteString("\n--- Application ---\n")
	b.WriteString(fmt.Sprintf("  app.baseurl: %s\n", c.App.BaseURL))
	b.WriteString(fmt.Sprintf("  app.environment: %s\n", c.App.Environment))
	b.WriteString(fmt.Sprintf("  app.datadir: %s\n", c.App.DataDir))

	b.WriteString("\n--- Stripe ---\n")
	b.WriteString(fmt.Sprintf("  stripe.key: %s\n", maskSecret(c.Stripe.Key)))
	b.WriteString(fmt.Sprintf("  stripe.webhooksecret: %s\n", maskSecret(c.Stripe.WebhookSecret)))

	b.WriteString("\n--- Circuit Breaker ---\n")
	b.WriteString(fmt.Sprintf("  circuitbreaker.consecutivefailures: %d\n", c.CircuitBreaker.ConsecutiveFailures))
	b.WriteString(fmt.Sprintf("  circuitbreaker.opentimeout: %v\n", c.CircuitBreaker.OpenTimeout))

	b.WriteString("\n--- Events ---\n")
	b.WriteString(fmt.Sprintf("  events.enabled: %t\n", c.Events.Enabled))
	if c.Events.Enabled {
		b.WriteString(fmt.Sprintf("  events.nats.url: %s\n", c.Events.NATS.Url))
		b.WriteString(fmt.Sprintf("  events.nats.timeout: %s\n", c.Events.NATS.Timeout))
	}

	b.WriteString("\n--- Observability & Logging ---\n")
	b.WriteString(fmt.Sprintf("  log.level: %s\n", c.Log.Level))
	b.WriteString(fmt.Sprintf("  pprof.enabled: %t\n", c.PProf.Enabled))
	b.WriteString(fmt.Sprintf("  pprof.address: %s\n", c.PProf.Addr))

	b.WriteString("\n--- Application Behavior ---\n")
	b.WriteString(fmt.Sprintf("  shutdown.timeout: %s\n", c.Shutdown.Timeout))

	return b.String()
}

func maskSecret(s string) string {
	if s == "" {
		return "<not configured>"
	}
	return "****"
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if err := c.HTTPServer.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	if err := c.Shutdown.Validate(); err != nil {
		return err
	}
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Stripe.Validate(); err != nil {
		return err
	}
	if err := c.Events.Validate(); err != nil {
		return err
	}
	if c.CircuitBreaker.ConsecutiveFailures == 0 {
		log.Println("Using default value for circuitbreaker.consecutivefailures")
		c.CircuitBreaker.ConsecutiveFailures = defaultBreakerFailures
	}
	if c.CircuitBreaker.OpenTimeout <= 0 {
		log.Println("Using default value for circuitbreaker.opentimeout")
		c.CircuitBreaker.OpenTimeout = defaultBreakerTimeout
	}
	return nil
}
