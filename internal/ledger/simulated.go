package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Simulated is an in-memory chain with settable height and balances.
type Simulated struct {
	mu       sync.Mutex
	height   uint64
	balances map[string]uint64
	failNext error
	faucet   uint64
	funded   map[string]bool
}

func NewSimulated(height uint64) *Simulated {
	return &Simulated{
		height:   height,
		balances: make(map[string]uint64),
		funded:   make(map[string]bool),
	}
}

func (s *Simulated) CurrentHeight(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.height, nil
}

func (s *Simulated) Transfer(ctx context.Context, from, to string, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}
	s.drip(from)
	s.drip(to)
	if s.balances[from] < amount {
		return fmt.Errorf("transfer %d from %s: %w", amount, from, ErrInsufficientBalance)
	}
	s.balances[from] -= amount
	s.balances[to] += amount
	return nil
}

func (s *Simulated) SetHeight(h uint64) {
	s.mu.Lock()
	s.height = h
	s.mu.Unlock()
}

// Advance mines n blocks and returns the new height.
func (s *Simulated) Advance(n uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.height += n
	return s.height
}

func (s *Simulated) Mint(who string, amount uint64) {
	s.mu.Lock()
	s.balances[who] += amount
	s.mu.Unlock()
}

func (s *Simulated) Balance(who string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drip(who)
	return s.balances[who]
}

// SetFaucet credits amount to every identity the first time it is seen.
func (s *Simulated) SetFaucet(amount uint64) {
	s.mu.Lock()
	s.faucet = amount
	s.mu.Unlock()
}

func (s *Simulated) drip(who string) {
	if s.faucet == 0 || s.funded[who] {
		return
	}
	s.funded[who] = true
	s.balances[who] += s.faucet
}

// FailNextTransfer makes the next Transfer return err without moving funds.
func (s *Simulated) FailNextTransfer(err error) {
	s.mu.Lock()
	s.failNext = err
	s.mu.Unlock()
}

// Run mines one block every interval until ctx is done.
func (s *Simulated) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Advance(1)
		}
	}
}
