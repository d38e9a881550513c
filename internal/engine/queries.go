package engine

import (
	"context"

	"ticket-ledger/internal/models"
)

// Lookups read committed state. Absent records come back as nil, nil.

func (e *Engine) GetEvent(ctx context.Context, id uint64) (*models.Event, error) {
	var event *models.Event
	err := e.view(ctx, func(ctx context.Context, s *scope) error {
		var err error
		event, err = s.events.GetEvent(ctx, id)
		return err
	})
	return event, err
}

func (e *Engine) GetTicket(ctx context.Context, id uint64) (*models.Ticket, error) {
	var ticket *models.Ticket
	err := e.view(ctx, func(ctx context.Context, s *scope) error {
		var err error
		ticket, err = s.tickets.GetTicket(ctx, id)
		return err
	})
	return ticket, err
}

func (e *Engine) GetUserTickets(ctx context.Context, owner string) (*models.UserTickets, error) {
	var owned *models.UserTickets
	err := e.view(ctx, func(ctx context.Context, s *scope) error {
		var err error
		owned, err = s.tickets.GetUserTickets(ctx, owner)
		return err
	})
	return owned, err
}

func (e *Engine) GetOrganizerRevenue(ctx context.Context, organizer string) (*models.OrganizerRecord, error) {
	var record *models.OrganizerRecord
	err := e.view(ctx, func(ctx context.Context, s *scope) error {
		var err error
		record, err = s.events.GetOrganizerRevenue(ctx, organizer)
		return err
	})
	return record, err
}

func (e *Engine) GetPolicy(ctx context.Context) (*models.PolicyView, error) {
	var view *models.PolicyView
	err := e.view(ctx, func(ctx context.Context, s *scope) error {
		var err error
		view, err = s.policy.Get(ctx)
		return err
	})
	return view, err
}

func (e *Engine) CalculatePlatformFee(ctx context.Context, amount uint64) (uint64, error) {
	var fee uint64
	err := e.view(ctx, func(ctx context.Context, s *scope) error {
		var err error
		fee, err = s.policy.CalculatePlatformFee(ctx, amount)
		return err
	})
	return fee, err
}

// EventStats fails with ErrEventNotFound for unknown events.
func (e *Engine) EventStats(ctx context.Context, eventID uint64) (*models.EventStats, error) {
	var stats *models.EventStats
	err := e.view(ctx, func(ctx context.Context, s *scope) error {
		var err error
		stats, err = s.tickets.EventStats(ctx, eventID)
		return err
	})
	return stats, err
}

func (e *Engine) CurrentHeight(ctx context.Context) (uint64, error) {
	return e.chain.CurrentHeight(ctx)
}
