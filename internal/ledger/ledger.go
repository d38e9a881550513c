// Package ledger abstracts the chain the ticketing core runs on: a monotonic
// block height and an atomic value transfer between identities.
package ledger

import (
	"context"
	"errors"
)

var ErrInsufficientBalance = errors.New("insufficient balance")

type Ledger interface {
	CurrentHeight(ctx context.Context) (uint64, error)
	Transfer(ctx context.Context, from, to string, amount uint64) error
}
