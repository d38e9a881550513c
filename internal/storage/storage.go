// Package storage defines the transactional store the engine runs calls in.
package storage

import (
	"context"

	"ticket-ledger/internal/events"
	"ticket-ledger/internal/policy"
	"ticket-ledger/internal/tickets"
)

// Tx is every table the ledger touches, bound to one transaction.
type Tx interface {
	policy.DBLayer
	events.DBLayer
	tickets.DBLayer
}

type Store interface {
	// WithTx runs fn in a transaction that commits only if fn returns nil.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// View runs fn against the committed state. fn must not write.
	View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}
