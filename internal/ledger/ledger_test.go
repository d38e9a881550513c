package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedTransfer(t *testing.T) {
	ctx := context.Background()
	chain := NewSimulated(10)
	chain.Mint("alice", 100)

	require.NoError(t, chain.Transfer(ctx, "alice", "bob", 40))
	assert.Equal(t, uint64(60), chain.Balance("alice"))
	assert.Equal(t, uint64(40), chain.Balance("bob"))

	err := chain.Transfer(ctx, "bob", "alice", 41)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, uint64(40), chain.Balance("bob"))
}

func TestSimulatedHeight(t *testing.T) {
	chain := NewSimulated(5)
	h, err := chain.CurrentHeight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(5), h)

	assert.Equal(t, uint64(8), chain.Advance(3))
	chain.SetHeight(100)
	h, _ = chain.CurrentHeight(context.Background())
	assert.Equal(t, uint64(100), h)
}

func TestSimulatedFailNextTransfer(t *testing.T) {
	ctx := context.Background()
	chain := NewSimulated(0)
	chain.Mint("alice", 10)
	boom := errors.New("node unavailable")

	chain.FailNextTransfer(boom)
	assert.ErrorIs(t, chain.Transfer(ctx, "alice", "bob", 1), boom)
	assert.Equal(t, uint64(10), chain.Balance("alice"))

	assert.NoError(t, chain.Transfer(ctx, "alice", "bob", 1))
}

func TestJournalRevert(t *testing.T) {
	ctx := context.Background()
	chain := NewSimulated(0)
	chain.Mint("alice", 100)
	chain.Mint("bob", 5)

	j := NewJournal(chain)
	require.NoError(t, j.Transfer(ctx, "alice", "bob", 30))
	require.NoError(t, j.Transfer(ctx, "bob", "carol", 20))
	assert.Equal(t, 2, j.Len())

	// failed transfers are not recorded
	assert.Error(t, j.Transfer(ctx, "carol", "dave", 1000))
	assert.Equal(t, 2, j.Len())

	require.NoError(t, j.Revert(ctx))
	assert.Equal(t, uint64(100), chain.Balance("alice"))
	assert.Equal(t, uint64(5), chain.Balance("bob"))
	assert.Equal(t, uint64(0), chain.Balance("carol"))
	assert.Equal(t, 0, j.Len())
}

func TestSimulatedFaucet(t *testing.T) {
	ctx := context.Background()
	chain := NewSimulated(0)
	chain.SetFaucet(50)

	require.NoError(t, chain.Transfer(ctx, "alice", "bob", 30))
	assert.Equal(t, uint64(20), chain.Balance("alice"))
	assert.Equal(t, uint64(80), chain.Balance("bob"))

	// funded once only
	require.NoError(t, chain.Transfer(ctx, "alice", "bob", 20))
	assert.ErrorIs(t, chain.Transfer(ctx, "alice", "bob", 1), ErrInsufficientBalance)
	assert.Equal(t, uint64(50), chain.Balance("carol"))
}
