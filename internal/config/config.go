package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// FIREBASE_PROJECT_ID wins over GOOGLE_CLOUD_PROJECT
	ProjectID          string `env:"FIREBASE_PROJECT_ID"`
	GoogleCloudProject string `env:"GOOGLE_CLOUD_PROJECT"`
	ServiceAccountJSON string `env:"FIREBASE_SERVICE_ACCOUNT_JSON"`
	CredentialsFile    string `env:"GOOGLE_APPLICATION_CREDENTIALS"`

	Port           string   `env:"PORT" envDefault:"8080"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:3001"`

	StorageBucket                string `env:"FIREBASE_STORAGE_BUCKET"`
	SignedURLServiceAccountEmail string `env:"SIGNED_URL_SERVICE_ACCOUNT_EMAIL"`

	// Public profile pages live at PublicBaseURL + "/" + slug.
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:3001"`

	TokenSecret string        `env:"CARDHOLDER_TOKEN_SECRET"`
	TokenIssuer string        `env:"CARDHOLDER_TOKEN_ISSUER" envDefault:"cardlink"`
	TokenTTL    time.Duration `env:"CARDHOLDER_TOKEN_TTL" envDefault:"168h"`

	RedisURL         string        `env:"REDIS_URL"`
	ViewDedupeWindow time.Duration `env:"VIEW_DEDUPE_WINDOW" envDefault:"30m"`

	// Billing is disabled when STRIPE_SECRET_KEY is empty.
	StripeSecretKey            string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret        string `env:"STRIPE_WEBHOOK_SECRET"`
	StripePriceProMonthly      string `env:"STRIPE_PRICE_PRO_MONTHLY"`
	StripePriceProYearly       string `env:"STRIPE_PRICE_PRO_YEARLY"`
	StripePriceBusinessMonthly string `env:"STRIPE_PRICE_BUSINESS_MONTHLY"`
	StripePriceBusinessYearly  string `env:"STRIPE_PRICE_BUSINESS_YEARLY"`
}

// Load reads .env (when present) and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return parse(env.Options{})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.ProjectID == "" {
		cfg.ProjectID = cfg.GoogleCloudProject
	}
	if cfg.StorageBucket == "" && cfg.ProjectID != "" {
		cfg.StorageBucket = cfg.ProjectID + ".appspot.com"
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")

	allowed := []string{}
	for _, o := range cfg.AllowedOrigins {
		o = strings.TrimSpace(o)
		if o != "" {
			allowed = append(allowed, o)
		}
	}
	cfg.AllowedOrigins = allowed

	if cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("CARDHOLDER_TOKEN_TTL must be positive")
	}
	return cfg, nil
}

func (c Config) BillingEnabled() bool {
	return c.StripeSecretKey != ""
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}
