package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LEDGER_ADMIN", "SP-ADMIN")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8082", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, uint64(5), cfg.Ledger.PlatformFeePercent)
	assert.Equal(t, uint64(1000000), cfg.Ledger.MinTicketPrice)
	assert.GreaterOrEqual(t, cfg.Ledger.Faucet, cfg.Ledger.MinTicketPrice)
	assert.Empty(t, cfg.Warnings())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, AuthJWT, cfg.Auth.Mode)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "LEDGER_ADMIN=SP-FROM-FILE\nAUTH_MODE=header\nKAFKA_BROKERS=a:9092,b:9092\nLEDGER_BLOCK_INTERVAL=2s\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	// godotenv does not override variables that are already set
	for _, key := range []string{"LEDGER_ADMIN", "AUTH_MODE", "KAFKA_BROKERS", "LEDGER_BLOCK_INTERVAL"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "SP-FROM-FILE", cfg.Ledger.Admin)
	assert.Equal(t, AuthHeader, cfg.Auth.Mode)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 2*time.Second, cfg.Ledger.BlockInterval)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingEnvFileIsIgnored(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Ledger:   LedgerConfig{Admin: "SP-ADMIN", PlatformFeePercent: 5},
			Database: DatabaseConfig{Driver: "sqlite"},
			Auth:     AuthConfig{Mode: AuthJWT, JWTSecret: "x"},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"missing admin", func(c *Config) { c.Ledger.Admin = " " }, "LEDGER_ADMIN"},
		{"fee above 100", func(c *Config) { c.Ledger.PlatformFeePercent = 101 }, "LEDGER_PLATFORM_FEE_PERCENT"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }, "DB_DRIVER"},
		{"jwt without secret", func(c *Config) { c.Auth.JWTSecret = "" }, "JWT_SECRET"},
		{"oidc without issuer", func(c *Config) { c.Auth.Mode = AuthOIDC }, "OIDC_ISSUER"},
		{"unknown auth mode", func(c *Config) { c.Auth.Mode = "basic" }, "AUTH_MODE"},
		{"kafka without brokers", func(c *Config) { c.Kafka.Enabled = true }, "KAFKA_BROKERS"},
	}

	assert.NoError(t, valid().Validate())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestWarnings(t *testing.T) {
	tests := []struct {
		name   string
		ledger LedgerConfig
		redis  RedisConfig
		want   []string
	}{
		{"funded", LedgerConfig{Faucet: 100, MinTicketPrice: 10}, RedisConfig{}, nil},
		{"no faucet", LedgerConfig{Faucet: 0, MinTicketPrice: 10}, RedisConfig{}, []string{"LEDGER_FAUCET is 0"}},
		{"faucet below price", LedgerConfig{Faucet: 5, MinTicketPrice: 10}, RedisConfig{}, []string{"below LEDGER_MIN_TICKET_PRICE"}},
		{"redis replicas", LedgerConfig{Faucet: 100, MinTicketPrice: 10}, RedisConfig{Addr: "redis:6379"}, []string{"REDIS_ADDR"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := &Config{Ledger: tc.ledger, Redis: tc.redis}
			warns := c.Warnings()
			require.Len(t, warns, len(tc.want))
			for i, want := range tc.want {
				assert.Contains(t, warns[i], want)
			}
		})
	}
}
