package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"ticket-ledger/internal/api"
	"ticket-ledger/internal/auth"
	"ticket-ledger/internal/config"
	"ticket-ledger/internal/engine"
	"ticket-ledger/internal/kafka"
	"ticket-ledger/internal/ledger"
	"ticket-ledger/internal/lock"
	"ticket-ledger/internal/logger"
	"ticket-ledger/internal/models"
	"ticket-ledger/internal/storage"
	"ticket-ledger/internal/storage/bunstore"
	"ticket-ledger/internal/storage/memstore"
	"ticket-ledger/internal/tickets/qr"
)

type flags struct {
	envFile     string
	addr        string
	migrateOnly bool
	inMemory    bool
}

func main() {
	var f flags
	flagSet := pflag.NewFlagSet("ticket-ledger", pflag.ContinueOnError)
	flagSet.StringVar(&f.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	flagSet.StringVar(&f.addr, "addr", "", "listen address (overrides SERVER_ADDR)")
	flagSet.BoolVar(&f.migrateOnly, "migrate-only", false, "apply database migrations and exit")
	flagSet.BoolVar(&f.inMemory, "in-memory", false, "keep ledger state in memory instead of a database")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load(f.envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}
	if f.inMemory {
		cfg.Database.InMemory = true
	}

	log, err := logger.NewLogger(logger.Options{
		Dir:     cfg.Log.Dir,
		Service: "ticket-ledger",
		Level:   logger.ParseLevel(cfg.Log.Level),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Close()

	if err := cfg.Validate(); err != nil {
		log.Fatal("CONFIG", err.Error())
	}
	for _, warn := range cfg.Warnings() {
		log.Warn("CONFIG", warn)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, f, log); err != nil {
		log.Error("APP", err.Error())
		log.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, f flags, log *logger.Logger) error {
	store, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer store.Close()
	if f.migrateOnly {
		log.Info("DATABASE", "Migrations applied, exiting")
		return nil
	}

	chain := ledger.NewSimulated(cfg.Ledger.StartHeight)
	chain.SetFaucet(cfg.Ledger.Faucet)

	opts := engine.Options{
		Store:  store,
		Chain:  chain,
		Admin:  cfg.Ledger.Admin,
		Locker: lock.NewMutex(),
		Logger: log,
	}

	if cfg.Redis.Addr != "" {
		client, err := lock.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			return err
		}
		defer client.Close()
		opts.Locker = lock.NewRedis(client, cfg.Ledger.LockTTL)
		log.Info("LOCK", "Using Redis writer lease")
	}

	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(ctx, cfg.Kafka.Brokers, kafka.LedgerTopics(), log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Could not ensure topics: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer producer.Close()
		opts.Publisher = producer
	}

	if cfg.Ledger.QRSecret != "" {
		gen, err := qr.NewQRGenerator(cfg.Ledger.QRSecret)
		if err != nil {
			return fmt.Errorf("init QR generator: %w", err)
		}
		opts.QR = gen
	} else {
		log.Warn("QR", "QR_SECRET not set, ticket QR codes are disabled")
	}

	eng, err := engine.New(opts)
	if err != nil {
		return err
	}
	if _, err := eng.Bootstrap(ctx, models.Policy{
		PlatformFeePercent: cfg.Ledger.PlatformFeePercent,
		MinTicketPrice:     cfg.Ledger.MinTicketPrice,
	}); err != nil {
		return fmt.Errorf("bootstrap policy: %w", err)
	}

	authn, err := authMiddleware(ctx, cfg.Auth, log)
	if err != nil {
		return err
	}

	if cfg.Ledger.BlockInterval > 0 {
		go chain.Run(ctx, cfg.Ledger.BlockInterval)
		log.Info("CHAIN", fmt.Sprintf("Simulated chain mining every %s from height %d", cfg.Ledger.BlockInterval, cfg.Ledger.StartHeight))
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(api.NewHandler(eng, log), authn),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP", "Ticket ledger running on "+cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	case <-ctx.Done():
		log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info("HTTP", "Ticket ledger shutdown complete")
	return nil
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (storage.Store, error) {
	if cfg.InMemory {
		log.Warn("DATABASE", "Using in-memory store, state is lost on exit")
		return memstore.New(), nil
	}

	var (
		store *bunstore.Store
		err   error
	)
	for attempt := 1; attempt <= 5; attempt++ {
		store, err = bunstore.Open(ctx, cfg.Driver, cfg.DSN)
		if err == nil {
			break
		}
		log.Warn("DATABASE", fmt.Sprintf("Connection attempt %d/5 failed: %v", attempt, err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to %s database: %w", cfg.Driver, err)
	}

	if cfg.Driver != bunstore.DriverSQLite {
		store.Bun().SetMaxOpenConns(cfg.MaxOpenConns)
		store.Bun().SetMaxIdleConns(cfg.MaxIdleConns)
		store.Bun().SetConnMaxLifetime(cfg.MaxLifetime)
	}
	log.LogDatabase("CONNECT", cfg.Driver, "connected")

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.LogDatabase("MIGRATE", cfg.Driver, "schema up to date")
	return store, nil
}

func authMiddleware(ctx context.Context, cfg config.AuthConfig, log *logger.Logger) (func(http.Handler) http.Handler, error) {
	var verifier auth.Verifier
	switch cfg.Mode {
	case config.AuthJWT:
		verifier = auth.NewHMACVerifier(cfg.JWTSecret)
	case config.AuthOIDC:
		v, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer)
		if err != nil {
			return nil, err
		}
		verifier = v
	}

	allowHeader := cfg.AllowPrincipalHeader || cfg.Mode == config.AuthHeader
	if allowHeader {
		log.LogSecurity("AUTH", "X-Principal header accepted as caller identity")
	}
	log.Info("AUTH", "Caller authentication mode: "+cfg.Mode)
	return auth.Middleware(verifier, log, allowHeader), nil
}
