package app

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/cart-pricing/internal/domain/pricing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATABASE_URL", "PORT",
		"CART_ADDR", "CART_DATABASE_URL", "CART_POLICIES",
		"CART_NOTIFY_DEFAULT", "CART_NOTIFY_KAFKA_BROKERS",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, defaultAddr, cfg.Addr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "email", cfg.Notify.Default)
	assert.Equal(t, "order-notifications", cfg.Notify.KafkaTopic)
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 15*time.Second, cfg.Graceful.ShutdownTimeout)

	reg, err := cfg.Registry()
	require.NoError(t, err)
	assert.Equal(t, []pricing.Kind{pricing.Premium, pricing.Regular}, reg.Kinds())
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/cart")
	t.Setenv("PORT", "9090")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/cart", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
}

func TestLoadConfig_PrefixedWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://platform/cart")
	t.Setenv("CART_DATABASE_URL", "postgres://explicit/cart")
	t.Setenv("CART_ADDR", "127.0.0.1:7000")
	t.Setenv("PORT", "9090")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://explicit/cart", cfg.DatabaseURL)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
}

func TestLoadConfig_Policies(t *testing.T) {
	clearEnv(t)
	t.Setenv("CART_POLICIES", "vip=0.80")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	reg, err := cfg.Registry()
	require.NoError(t, err)
	p, err := reg.Lookup("vip")
	require.NoError(t, err)
	assert.Equal(t, "80.00", p.Apply(decimal.NewFromInt(100)).StringFixed(2))
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"BadPolicy", map[string]string{"CART_POLICIES": "vip"}},
		{"NegativeFactor", map[string]string{"CART_POLICIES": "vip=-1"}},
		{"UnknownChannel", map[string]string{"CART_NOTIFY_DEFAULT": "pigeon"}},
		{"KafkaWithoutBrokers", map[string]string{"CART_NOTIFY_DEFAULT": "kafka"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig(nil)
			require.Error(t, err)
		})
	}
}

func TestNewNotifier(t *testing.T) {
	router, closeFn, err := newNotifier(&Config{Notify: NotifyConfig{Default: "sms"}})
	require.NoError(t, err)
	defer closeFn()
	assert.Len(t, router.Channels(), 2)

	router, closeFn, err = newNotifier(&Config{Notify: NotifyConfig{
		Default:      "kafka",
		KafkaBrokers: "localhost:9092",
		KafkaTopic:   "orders",
	}})
	require.NoError(t, err)
	defer closeFn()
	assert.Len(t, router.Channels(), 3)
}
