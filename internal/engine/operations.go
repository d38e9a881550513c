package engine

import (
	"context"
	"errors"
	"fmt"

	"ticket-ledger/internal/models"
)

func (e *Engine) CreateEvent(ctx context.Context, caller string, in models.EventInput) (uint64, error) {
	var id uint64
	err := e.execute(ctx, "create-event", caller, func(ctx context.Context, s *scope) error {
		var err error
		id, err = s.events.CreateEvent(ctx, s.call, in)
		if err != nil {
			return err
		}
		s.emit(models.KindEventCreated, func(ev *models.LedgerEvent) {
			ev.EventID = id
			ev.Amount = in.TicketPrice
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	e.log.LogEvent("CREATE", id, fmt.Sprintf("%q by %s, %d tickets at %d", in.Name, caller, in.TotalTickets, in.TicketPrice))
	return id, nil
}

func (e *Engine) CloseEvent(ctx context.Context, caller string, eventID uint64) error {
	err := e.execute(ctx, "close-event", caller, func(ctx context.Context, s *scope) error {
		if err := s.events.CloseEvent(ctx, s.call, eventID); err != nil {
			return err
		}
		s.emit(models.KindEventClosed, func(ev *models.LedgerEvent) { ev.EventID = eventID })
		return nil
	})
	if err != nil {
		return err
	}
	e.log.LogEvent("CLOSE", eventID, "closed by "+caller)
	return nil
}

func (e *Engine) PurchaseTicket(ctx context.Context, caller string, eventID uint64) (uint64, error) {
	var ticket *models.Ticket
	err := e.execute(ctx, "purchase-ticket", caller, func(ctx context.Context, s *scope) error {
		id, err := s.tickets.PurchaseTicket(ctx, s.call, eventID)
		if err != nil {
			return err
		}
		if ticket, err = s.tickets.GetTicket(ctx, id); err != nil {
			return err
		}
		s.emit(models.KindTicketPurchased, func(ev *models.LedgerEvent) {
			ev.EventID = eventID
			ev.TicketID = id
			ev.Amount = ticket.PurchasePrice
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	e.log.LogTicket("PURCHASE", ticket.TicketID, fmt.Sprintf("event %d to %s for %d", eventID, caller, ticket.PurchasePrice))
	return ticket.TicketID, nil
}

func (e *Engine) ValidateTicket(ctx context.Context, caller string, ticketID uint64) error {
	_, err := e.validate(ctx, "validate-ticket", caller, ticketID, nil)
	return err
}

// validate marks a ticket used. check, if set, runs against the stored
// ticket before the organizer checks.
func (e *Engine) validate(ctx context.Context, op, caller string, ticketID uint64, check func(*models.Ticket) error) (*models.Ticket, error) {
	var ticket *models.Ticket
	err := e.execute(ctx, op, caller, func(ctx context.Context, s *scope) error {
		if check != nil {
			stored, err := s.tickets.GetTicket(ctx, ticketID)
			if err != nil {
				return err
			}
			if stored == nil {
				return models.ErrTicketNotFound
			}
			if err := check(stored); err != nil {
				return err
			}
		}
		if err := s.tickets.ValidateTicket(ctx, s.call, ticketID); err != nil {
			return err
		}
		var err error
		if ticket, err = s.tickets.GetTicket(ctx, ticketID); err != nil {
			return err
		}
		s.emit(models.KindTicketValidated, func(ev *models.LedgerEvent) {
			ev.EventID = ticket.EventID
			ev.TicketID = ticketID
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.LogTicket("VALIDATE", ticketID, "redeemed by "+caller)
	return ticket, nil
}

func (e *Engine) RefundTicket(ctx context.Context, caller string, ticketID uint64) error {
	var ticket *models.Ticket
	err := e.execute(ctx, "refund-ticket", caller, func(ctx context.Context, s *scope) error {
		if err := s.tickets.RefundTicket(ctx, s.call, ticketID); err != nil {
			return err
		}
		var err error
		if ticket, err = s.tickets.GetTicket(ctx, ticketID); err != nil {
			return err
		}
		s.emit(models.KindTicketRefunded, func(ev *models.LedgerEvent) {
			ev.EventID = ticket.EventID
			ev.TicketID = ticketID
			ev.Amount = ticket.PurchasePrice
		})
		return nil
	})
	if err != nil {
		return err
	}
	e.log.LogTicket("REFUND", ticketID, fmt.Sprintf("%d returned to %s", ticket.PurchasePrice, caller))
	return nil
}

func (e *Engine) UpdatePlatformFee(ctx context.Context, caller string, fee uint64) error {
	err := e.execute(ctx, "update-platform-fee", caller, func(ctx context.Context, s *scope) error {
		if err := s.policy.UpdatePlatformFee(ctx, s.call, fee); err != nil {
			return err
		}
		s.emit(models.KindFeeUpdated, func(ev *models.LedgerEvent) { ev.Amount = fee })
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrNotAuthorized) {
			e.log.LogSecurity("POLICY", caller+" attempted to change the platform fee")
		}
		return err
	}
	e.log.LogPolicy("FEE", fmt.Sprintf("platform fee set to %d%%", fee))
	return nil
}

func (e *Engine) UpdateMinTicketPrice(ctx context.Context, caller string, price uint64) error {
	err := e.execute(ctx, "update-min-ticket-price", caller, func(ctx context.Context, s *scope) error {
		if err := s.policy.UpdateMinTicketPrice(ctx, s.call, price); err != nil {
			return err
		}
		s.emit(models.KindMinPriceUpdated, func(ev *models.LedgerEvent) { ev.Amount = price })
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrNotAuthorized) {
			e.log.LogSecurity("POLICY", caller+" attempted to change the minimum ticket price")
		}
		return err
	}
	e.log.LogPolicy("MIN_PRICE", fmt.Sprintf("minimum ticket price set to %d", price))
	return nil
}
