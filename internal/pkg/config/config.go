package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ManuelReschke/BizDesk/internal/pkg/env"
)

// Config holds the secrets and endpoints the entitlement pipeline cannot run
// without. None of these have defaults.
type Config struct {
	DatabaseDSN         string `env:"DB_DSN" validate:"required"`
	StoreServiceKey     string `env:"STORE_SERVICE_KEY" validate:"required"`
	IdentityAdminKey    string `env:"IDENTITY_ADMIN_KEY" validate:"required"`
	StripeSecretKey     string `env:"STRIPE_SECRET_KEY" validate:"required"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET" validate:"required"`

	// Optional settings.
	QueryURL string
}

// MissingError lists required configuration keys that were not provided.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return "missing required configuration: " + strings.Join(e.Keys, ", ")
}

// IsMissing reports whether err is a configuration absence rather than a runtime failure.
func IsMissing(err error) bool {
	var missing *MissingError
	return errors.As(err, &missing)
}

// Load reads the configuration through env.GetEnv and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseDSN:         strings.TrimSpace(env.GetEnv("DB_DSN", "")),
		StoreServiceKey:     strings.TrimSpace(env.GetEnv("STORE_SERVICE_KEY", "")),
		IdentityAdminKey:    strings.TrimSpace(env.GetEnv("IDENTITY_ADMIN_KEY", "")),
		StripeSecretKey:     strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		StripeWebhookSecret: strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
		QueryURL:            strings.TrimSpace(env.GetEnv("ENTITLEMENT_QUERY_URL", "")),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate returns a *MissingError naming every absent required key.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	missing := &MissingError{}
	for _, fe := range verrs {
		missing.Keys = append(missing.Keys, envKey(fe.StructField()))
	}
	return missing
}

func envKey(field string) string {
	if f, ok := reflect.TypeOf(Config{}).FieldByName(field); ok {
		if key := f.Tag.Get("env"); key != "" {
			return key
		}
	}
	return field
}
