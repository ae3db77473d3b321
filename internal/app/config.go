package app

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Config holds the complete application configuration, loadable from
// environment variables (STOREFRONT_ prefix), flags, or YAML config files.
type Config struct {
	APIBaseURL     string        `default:"http://localhost:5000/api" usage:"Backend API base URL" flag:"api-base-url"`
	RequestTimeout time.Duration `default:"10s" usage:"Per-request timeout for backend calls" flag:"request-timeout"`
	RestoreTimeout time.Duration `default:"3s"  usage:"Budget for restoring a persisted session before going anonymous" flag:"restore-timeout"`
	DeliveryFee    string        `default:"10"  usage:"Flat delivery fee added to every order" flag:"delivery-fee"`
	StateDir       string        `usage:"Directory for persisted session and catalog cache (defaults under the user config dir)" flag:"state-dir"`
	Health         HealthConfig

	deliveryFee decimal.Decimal
}

// HealthConfig controls the periodic backend availability probe.
type HealthConfig struct {
	Interval time.Duration `default:"30s" usage:"Backend probe interval"`
	Timeout  time.Duration `default:"5s"  usage:"Backend probe timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STOREFRONT",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	fee, err := decimal.NewFromString(cfg.DeliveryFee)
	if err != nil {
		return nil, errors.Wrap(err, "parse delivery fee")
	}
	if fee.IsNegative() {
		return nil, errors.New("delivery fee must not be negative")
	}
	cfg.deliveryFee = fee

	return &cfg, nil
}

// DeliveryFeeAmount returns the parsed flat delivery fee.
func (c *Config) DeliveryFeeAmount() decimal.Decimal {
	return c.deliveryFee
}

// applyDefaults fills values that need runtime lookups: the plain API_URL
// variable used by deployment platforms, and the per-user state directory.
func (c *Config) applyDefaults() error {
	if v := os.Getenv("API_URL"); v != "" && c.APIBaseURL == "http://localhost:5000/api" {
		c.APIBaseURL = v
	}
	if c.StateDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return errors.Wrap(err, "resolve user config dir")
		}
		c.StateDir = filepath.Join(base, "storefront")
	}
	return nil
}
