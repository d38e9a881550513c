package bunstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ticket-ledger/internal/models"
	"ticket-ledger/internal/storage"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

type Store struct {
	db *bun.DB
}

var _ storage.Store = (*Store)(nil)

func New(db *bun.DB) *Store {
	return &Store{db: db}
}

// Open connects to the database named by driver and pings it.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var db *bun.DB
	switch driver {
	case DriverSQLite:
		sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// one connection keeps :memory: databases shared and serialises writers
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres:
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	case DriverMySQL:
		sqldb, err := sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		db = bun.NewDB(sqldb, mysqldialect.New())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return New(db), nil
}

func (s *Store) Bun() *bun.DB {
	return s.db
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &DB{Bun: tx})
	})
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	return fn(ctx, &DB{Bun: s.db})
}

func (s *Store) Close() error {
	return s.db.Close()
}

var tables = []interface{}{
	(*models.Counter)(nil),
	(*models.Policy)(nil),
	(*models.Event)(nil),
	(*models.OrganizerRecord)(nil),
	(*models.Ticket)(nil),
	(*models.OwnedTicket)(nil),
}

// Migrate brings the schema up to date. PostgreSQL uses versioned SQL
// migrations; the other dialects create tables from the models.
func (s *Store) Migrate(ctx context.Context) error {
	if s.db.Dialect().Name() == dialect.PG {
		return MigratePostgres(ctx, s.db.DB)
	}
	for _, m := range tables {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}
	_, err := s.db.NewCreateIndex().
		Model((*models.Ticket)(nil)).
		Index("tickets_event_id_idx").
		Column("event_id").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create tickets index: %w", err)
	}
	return nil
}
