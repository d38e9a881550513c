package tickets

import (
	"context"
	"fmt"

	"ticket-ledger/internal/ledger"
	"ticket-ledger/internal/models"
)

// DBLayer is the storage the ticket ledger needs. Lookups return nil, nil
// when the record does not exist.
type DBLayer interface {
	NextID(ctx context.Context, sequence string) (uint64, error)
	InsertTicket(ctx context.Context, ticket models.Ticket) error
	GetTicketByID(ctx context.Context, id uint64) (*models.Ticket, error)
	UpdateTicket(ctx context.Context, ticket models.Ticket) error
	AppendOwnedTicket(ctx context.Context, owner string, ticketID uint64) error
	GetOwnedTickets(ctx context.Context, owner string) ([]uint64, error)
	ListTicketsByEvent(ctx context.Context, eventID uint64) ([]models.Ticket, error)
}

// EventRegistry is the part of the event registry the ledger mutates.
type EventRegistry interface {
	MustGetEvent(ctx context.Context, id uint64) (*models.Event, error)
	RecordSale(ctx context.Context, event *models.Event, price uint64) error
	RecordRefund(ctx context.Context, event *models.Event, price uint64) error
}

type FeeCalculator interface {
	CalculatePlatformFee(ctx context.Context, amount uint64) (uint64, error)
}

type TicketService struct {
	DB     DBLayer
	Events EventRegistry
	Chain  ledger.Ledger
	Fees   FeeCalculator
}

func NewTicketService(db DBLayer, events EventRegistry, chain ledger.Ledger, fees FeeCalculator) *TicketService {
	return &TicketService{DB: db, Events: events, Chain: chain, Fees: fees}
}

// PurchaseTicket pays the organizer the current ticket price and issues a
// ticket to the caller.
func (s *TicketService) PurchaseTicket(ctx context.Context, call models.Call, eventID uint64) (uint64, error) {
	event, err := s.Events.MustGetEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if !event.IsActive {
		return 0, models.ErrEventInactive
	}
	if event.SoldOut() {
		return 0, models.ErrSoldOut
	}

	price := event.TicketPrice
	if err := s.Chain.Transfer(ctx, call.Caller, event.Organizer, price); err != nil {
		return 0, fmt.Errorf("pay organizer for event %d: %w", eventID, err)
	}

	id, err := s.DB.NextID(ctx, models.TicketSequence)
	if err != nil {
		return 0, fmt.Errorf("allocate ticket id: %w", err)
	}
	ticket := models.Ticket{
		TicketID:       id,
		EventID:        eventID,
		Owner:          call.Caller,
		PurchasePrice:  price,
		PurchaseHeight: call.Height,
	}
	if err := s.DB.InsertTicket(ctx, ticket); err != nil {
		return 0, fmt.Errorf("insert ticket %d: %w", id, err)
	}
	if err := s.Events.RecordSale(ctx, event, price); err != nil {
		return 0, err
	}
	if err := s.DB.AppendOwnedTicket(ctx, call.Caller, id); err != nil {
		return 0, fmt.Errorf("index ticket %d for %s: %w", id, call.Caller, err)
	}
	return id, nil
}

// ValidateTicket redeems a ticket at the door. Only the event organizer may
// validate.
func (s *TicketService) ValidateTicket(ctx context.Context, call models.Call, ticketID uint64) error {
	ticket, err := s.mustGetTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	event, err := s.Events.MustGetEvent(ctx, ticket.EventID)
	if err != nil {
		return err
	}
	if call.Caller != event.Organizer {
		return models.ErrNotAuthorized
	}
	if ticket.Terminal() {
		return models.ErrTicketUsed
	}

	ticket.IsUsed = true
	if err := s.DB.UpdateTicket(ctx, *ticket); err != nil {
		return fmt.Errorf("mark ticket %d used: %w", ticketID, err)
	}
	return nil
}

// RefundTicket returns the purchase price to the owner while the refund
// window, counted from the purchase height, is still open.
func (s *TicketService) RefundTicket(ctx context.Context, call models.Call, ticketID uint64) error {
	ticket, err := s.mustGetTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if call.Caller != ticket.Owner {
		return models.ErrNotAuthorized
	}
	if ticket.Terminal() {
		return models.ErrTicketUsed
	}
	event, err := s.Events.MustGetEvent(ctx, ticket.EventID)
	if err != nil {
		return err
	}
	if windowClosed(call.Height, ticket.PurchaseHeight, event.RefundWindow) {
		return models.ErrRefundWindowClosed
	}

	if err := s.Chain.Transfer(ctx, event.Organizer, call.Caller, ticket.PurchasePrice); err != nil {
		return fmt.Errorf("refund ticket %d: %w", ticketID, err)
	}

	ticket.IsRefunded = true
	if err := s.DB.UpdateTicket(ctx, *ticket); err != nil {
		return fmt.Errorf("mark ticket %d refunded: %w", ticketID, err)
	}
	return s.Events.RecordRefund(ctx, event, ticket.PurchasePrice)
}

// windowClosed reports height > purchase + window without overflowing.
func windowClosed(height, purchase, window uint64) bool {
	if height <= purchase {
		return false
	}
	return height-purchase > window
}

func (s *TicketService) GetTicket(ctx context.Context, id uint64) (*models.Ticket, error) {
	ticket, err := s.DB.GetTicketByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get ticket %d: %w", id, err)
	}
	return ticket, nil
}

func (s *TicketService) mustGetTicket(ctx context.Context, id uint64) (*models.Ticket, error) {
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, models.ErrTicketNotFound
	}
	return ticket, nil
}

// GetUserTickets returns nil when the identity has never bought a ticket.
func (s *TicketService) GetUserTickets(ctx context.Context, owner string) (*models.UserTickets, error) {
	ids, err := s.DB.GetOwnedTickets(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("fetch tickets for %s: %w", owner, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return &models.UserTickets{OwnedTickets: ids}, nil
}

// EventStats aggregates the tickets issued for an event.
func (s *TicketService) EventStats(ctx context.Context, eventID uint64) (*models.EventStats, error) {
	event, err := s.Events.MustGetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	issued, err := s.DB.ListTicketsByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list tickets for event %d: %w", eventID, err)
	}

	stats := &models.EventStats{
		EventID:     eventID,
		TicketsSold: event.TicketsSold,
		Revenue:     event.Revenue,
	}
	for i := range issued {
		switch issued[i].Status() {
		case models.TicketUsed:
			stats.Used++
		case models.TicketRefunded:
			stats.Refunded++
		default:
			stats.Active++
		}
	}
	stats.PlatformFee, err = s.Fees.CalculatePlatformFee(ctx, event.Revenue)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
