// Package engine is the single entry point to the ticket ledger. Every
// state-changing call holds the writer lock, observes the chain height once,
// and runs inside one store transaction; value transfers made by a call that
// later fails are reversed before the lock is released.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticket-ledger/internal/events"
	"ticket-ledger/internal/ledger"
	"ticket-ledger/internal/lock"
	"ticket-ledger/internal/logger"
	"ticket-ledger/internal/models"
	"ticket-ledger/internal/policy"
	"ticket-ledger/internal/storage"
	"ticket-ledger/internal/tickets"
	"ticket-ledger/internal/tickets/qr"
)

// writerKey names the one lock every replica contends on.
const writerKey = "ticketing:ledger"

// Publisher receives ledger events after their call has committed.
type Publisher interface {
	PublishLedgerEvent(ctx context.Context, ev models.LedgerEvent) error
}

type nopPublisher struct{}

func (nopPublisher) PublishLedgerEvent(context.Context, models.LedgerEvent) error { return nil }

type Options struct {
	Store     storage.Store
	Chain     ledger.Ledger
	Admin     string
	Locker    lock.Locker
	Publisher Publisher
	Logger    *logger.Logger
	QR        *qr.QRGenerator
	// PublishTimeout bounds each post-commit publish.
	PublishTimeout time.Duration
}

type Engine struct {
	store          storage.Store
	chain          ledger.Ledger
	admin          string
	locker         lock.Locker
	publisher      Publisher
	log            *logger.Logger
	qr             *qr.QRGenerator
	publishTimeout time.Duration
}

func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	if opts.Chain == nil {
		return nil, errors.New("engine: ledger is required")
	}
	if opts.Admin == "" {
		return nil, errors.New("engine: admin identity is required")
	}

	e := &Engine{
		store:          opts.Store,
		chain:          opts.Chain,
		admin:          opts.Admin,
		locker:         opts.Locker,
		publisher:      opts.Publisher,
		log:            opts.Logger,
		qr:             opts.QR,
		publishTimeout: opts.PublishTimeout,
	}
	if e.locker == nil {
		e.locker = lock.NewMutex()
	}
	if e.publisher == nil {
		e.publisher = nopPublisher{}
	}
	if e.log == nil {
		e.log = logger.Discard()
	}
	if e.publishTimeout <= 0 {
		e.publishTimeout = 5 * time.Second
	}
	return e, nil
}

// Bootstrap stores the initial policy unless one is already present.
func (e *Engine) Bootstrap(ctx context.Context, initial models.Policy) (*models.Policy, error) {
	unlock, err := e.locker.Lock(ctx, writerKey)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	defer e.release(ctx, "bootstrap", unlock)

	var seeded *models.Policy
	err = e.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		seeded, err = policy.NewService(tx, e.admin).Seed(ctx, initial)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.log.LogPolicy("BOOTSTRAP", fmt.Sprintf("fee=%d%% min_price=%d admin=%s",
		seeded.PlatformFeePercent, seeded.MinTicketPrice, e.admin))
	return seeded, nil
}

// scope binds the components to one transaction and one call.
type scope struct {
	call    models.Call
	policy  *policy.Service
	events  *events.Service
	tickets *tickets.TicketService
	emitted []models.LedgerEvent
}

func (e *Engine) newScope(tx storage.Tx, chain ledger.Ledger, call models.Call) *scope {
	pol := policy.NewService(tx, e.admin)
	reg := events.NewService(tx, pol, e.admin)
	return &scope{
		call:    call,
		policy:  pol,
		events:  reg,
		tickets: tickets.NewTicketService(tx, reg, chain, pol),
	}
}

func (s *scope) emit(kind models.LedgerEventKind, fill func(ev *models.LedgerEvent)) {
	ev := models.NewLedgerEvent(kind, s.call)
	if fill != nil {
		fill(&ev)
	}
	s.emitted = append(s.emitted, ev)
}

// execute runs one state-changing call.
func (e *Engine) execute(ctx context.Context, op, caller string, fn func(ctx context.Context, s *scope) error) error {
	unlock, err := e.locker.Lock(ctx, writerKey)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer e.release(ctx, op, unlock)

	height, err := e.chain.CurrentHeight(ctx)
	if err != nil {
		return fmt.Errorf("%s: read chain height: %w", op, err)
	}
	call := models.Call{Caller: caller, Height: height}
	e.log.LogChain(op, fmt.Sprintf("caller=%s height=%d", caller, height))

	journal := ledger.NewJournal(e.chain)
	var s *scope
	err = e.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		s = e.newScope(tx, journal, call)
		return fn(ctx, s)
	})
	if err != nil {
		if journal.Len() > 0 {
			if rerr := journal.Revert(context.WithoutCancel(ctx)); rerr != nil {
				e.log.Error("ENGINE", fmt.Sprintf("%s: reverting transfers failed: %v", op, rerr))
				err = errors.Join(err, rerr)
			}
		}
		if _, coded := models.CodeOf(err); coded {
			e.log.Debug("ENGINE", fmt.Sprintf("%s rejected for %s: %v", op, caller, err))
		} else {
			e.log.Error("ENGINE", fmt.Sprintf("%s failed for %s: %v", op, caller, err))
		}
		return err
	}

	e.publish(ctx, s.emitted)
	return nil
}

func (e *Engine) release(ctx context.Context, op string, unlock lock.Unlock) {
	if err := unlock(context.WithoutCancel(ctx)); err != nil {
		e.log.Error("ENGINE", fmt.Sprintf("%s: releasing writer lock: %v", op, err))
	}
}

// publish never fails the call; the state change is already committed.
func (e *Engine) publish(ctx context.Context, evs []models.LedgerEvent) {
	for _, ev := range evs {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.publishTimeout)
		if err := e.publisher.PublishLedgerEvent(pctx, ev); err != nil {
			e.log.Warn("KAFKA", fmt.Sprintf("publish %s %s failed: %v", ev.Kind, ev.ID, err))
		}
		cancel()
	}
}

// view runs a read against committed state without taking the writer lock.
func (e *Engine) view(ctx context.Context, fn func(ctx context.Context, s *scope) error) error {
	return e.store.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		return fn(ctx, e.newScope(tx, e.chain, models.Call{}))
	})
}
