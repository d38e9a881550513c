package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Ledger   LedgerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Log      LogConfig
}

type ServerConfig struct {
	Addr         string        `env:"SERVER_ADDR" envDefault:":8082"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
}

type LedgerConfig struct {
	// Admin is fixed for the lifetime of the process.
	Admin              string        `env:"LEDGER_ADMIN"`
	PlatformFeePercent uint64        `env:"LEDGER_PLATFORM_FEE_PERCENT" envDefault:"5"`
	MinTicketPrice     uint64        `env:"LEDGER_MIN_TICKET_PRICE" envDefault:"1000000"`
	StartHeight        uint64        `env:"LEDGER_START_HEIGHT" envDefault:"1"`
	BlockInterval      time.Duration `env:"LEDGER_BLOCK_INTERVAL" envDefault:"10s"`
	// Faucet credits every new identity on the simulated chain once.
	Faucet   uint64        `env:"LEDGER_FAUCET" envDefault:"100000000"`
	LockTTL  time.Duration `env:"LEDGER_LOCK_TTL" envDefault:"10s"`
	QRSecret string        `env:"QR_SECRET"`
}

type DatabaseConfig struct {
	Driver       string        `env:"DB_DRIVER" envDefault:"sqlite"`
	DSN          string        `env:"DB_DSN" envDefault:"file:ticket-ledger.db?cache=shared"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"25"`
	MaxLifetime  time.Duration `env:"DB_MAX_LIFETIME" envDefault:"5m"`
	// InMemory swaps the database for the arena store.
	InMemory bool `env:"DB_IN_MEMORY" envDefault:"false"`
}

type RedisConfig struct {
	// Addr enables the distributed writer lock when set.
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type KafkaConfig struct {
	Enabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	GroupID string   `env:"KAFKA_GROUP_ID" envDefault:"ledger-audit"`
}

type AuthConfig struct {
	// Mode is one of jwt, oidc or header.
	Mode       string `env:"AUTH_MODE" envDefault:"jwt"`
	JWTSecret  string `env:"JWT_SECRET"`
	OIDCIssuer string `env:"OIDC_ISSUER"`
	// AllowPrincipalHeader trusts X-Principal. Development only.
	AllowPrincipalHeader bool `env:"AUTH_ALLOW_PRINCIPAL_HEADER" envDefault:"false"`
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	Dir   string `env:"LOG_DIR" envDefault:"logs"`
}

const (
	AuthJWT    = "jwt"
	AuthOIDC   = "oidc"
	AuthHeader = "header"
)

// Load reads envFile if it exists, then the process environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Ledger.Admin) == "" {
		errs = append(errs, errors.New("LEDGER_ADMIN is required"))
	}
	if c.Ledger.PlatformFeePercent > 100 {
		errs = append(errs, fmt.Errorf("LEDGER_PLATFORM_FEE_PERCENT must be at most 100, got %d", c.Ledger.PlatformFeePercent))
	}
	if c.Ledger.BlockInterval < 0 {
		errs = append(errs, errors.New("LEDGER_BLOCK_INTERVAL must not be negative"))
	}

	switch c.Database.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not one of sqlite, postgres, mysql", c.Database.Driver))
	}

	switch c.Auth.Mode {
	case AuthJWT:
		if c.Auth.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required when AUTH_MODE=jwt"))
		}
	case AuthOIDC:
		if c.Auth.OIDCIssuer == "" {
			errs = append(errs, errors.New("OIDC_ISSUER is required when AUTH_MODE=oidc"))
		}
	case AuthHeader:
	default:
		errs = append(errs, fmt.Errorf("AUTH_MODE %q is not one of jwt, oidc, header", c.Auth.Mode))
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED=true"))
	}

	return errors.Join(errs...)
}

// Warnings lists settings that are valid but leave the standalone server
// in a state that is easy to misread.
func (c *Config) Warnings() []string {
	var warns []string
	switch {
	case c.Ledger.Faucet == 0:
		warns = append(warns, "LEDGER_FAUCET is 0: nothing credits balances on the simulated chain, every purchase will fail with insufficient balance")
	case c.Ledger.Faucet < c.Ledger.MinTicketPrice:
		warns = append(warns, fmt.Sprintf("LEDGER_FAUCET %d is below LEDGER_MIN_TICKET_PRICE %d: no principal can afford a ticket", c.Ledger.Faucet, c.Ledger.MinTicketPrice))
	}
	if c.Redis.Addr != "" {
		warns = append(warns, "REDIS_ADDR is set but every replica runs its own simulated chain: balances and heights are not shared between replicas")
	}
	return warns
}
