package ledger

import (
	"context"
	"errors"
	"fmt"
)

type transfer struct {
	from, to string
	amount   uint64
}

// Journal wraps a Ledger for the duration of one call and remembers every
// transfer that succeeded, so the call can be undone if it later fails.
type Journal struct {
	inner Ledger
	done  []transfer
}

func NewJournal(inner Ledger) *Journal {
	return &Journal{inner: inner}
}

func (j *Journal) CurrentHeight(ctx context.Context) (uint64, error) {
	return j.inner.CurrentHeight(ctx)
}

func (j *Journal) Transfer(ctx context.Context, from, to string, amount uint64) error {
	if err := j.inner.Transfer(ctx, from, to, amount); err != nil {
		return err
	}
	j.done = append(j.done, transfer{from: from, to: to, amount: amount})
	return nil
}

// Revert reverses recorded transfers newest first.
func (j *Journal) Revert(ctx context.Context) error {
	var errs []error
	for i := len(j.done) - 1; i >= 0; i-- {
		t := j.done[i]
		if err := j.inner.Transfer(ctx, t.to, t.from, t.amount); err != nil {
			errs = append(errs, fmt.Errorf("revert %d %s->%s: %w", t.amount, t.from, t.to, err))
		}
	}
	j.done = nil
	return errors.Join(errs...)
}

// Len is the number of transfers recorded so far.
func (j *Journal) Len() int {
	return len(j.done)
}
