package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/cart-pricing/internal/domain/notify"
	"github.com/xenking/cart-pricing/internal/domain/pricing"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (CART_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL, in-memory store when empty (CART_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (CART_API_KEY_PEPPER)" flag:"api-key-pepper"`
	SeedAPIKey   string `usage:"API key registered at startup by the in-memory store" flag:"seed-api-key"`
	// Policies lists extra flat-rate policies as kind=factor, e.g. vip=0.80.
	Policies  []string `usage:"Extra discount policies (kind=factor)"`
	Notify    NotifyConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// NotifyConfig selects notification transports.
type NotifyConfig struct {
	Default      string `default:"email" usage:"Channel used when a user's preferred one is unavailable"`
	KafkaBrokers string `usage:"Comma separated Kafka brokers, enables the kafka channel" flag:"kafka-brokers"`
	KafkaTopic   string `default:"order-notifications" usage:"Kafka topic for notifications" flag:"kafka-topic"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files
// and the given command line arguments, then applies platform defaults.
func LoadConfig(args []string) (*Config, error) {
	if args == nil {
		args = []string{}
	}
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CART",
		Args:      args,
		Files:     []string{"config.yaml", "/etc/cart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's CART_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	switch notify.Channel(c.Notify.Default) {
	case notify.ChannelEmail, notify.ChannelSMS:
	case notify.ChannelKafka:
		if c.Notify.KafkaBrokers == "" {
			return errors.New("notify: kafka default channel requires kafka brokers")
		}
	default:
		return errors.Errorf("notify: unknown default channel %q", c.Notify.Default)
	}
	if _, err := c.Registry(); err != nil {
		return err
	}
	return nil
}

// Registry builds the policy registry: the canonical regular and premium
// policies plus any configured extras.
func (c *Config) Registry() (*pricing.Registry, error) {
	extra := make([]pricing.Policy, 0, len(c.Policies))
	for _, def := range c.Policies {
		p, err := pricing.ParseFlatRate(def)
		if err != nil {
			return nil, errors.Wrap(err, "policies")
		}
		extra = append(extra, p)
	}
	return pricing.NewRegistry(extra...), nil
}
