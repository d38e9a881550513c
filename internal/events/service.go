package events

import (
	"context"
	"fmt"

	"ticket-ledger/internal/models"
)

// DBLayer is the storage the registry needs. Lookups return nil, nil when the
// record does not exist.
type DBLayer interface {
	NextID(ctx context.Context, sequence string) (uint64, error)
	InsertEvent(ctx context.Context, event models.Event) error
	GetEventByID(ctx context.Context, id uint64) (*models.Event, error)
	UpdateEvent(ctx context.Context, event models.Event) error
	GetOrganizer(ctx context.Context, organizer string) (*models.OrganizerRecord, error)
	SaveOrganizer(ctx context.Context, record models.OrganizerRecord) error
}

// PriceFloor supplies the current minimum ticket price.
type PriceFloor interface {
	MinTicketPrice(ctx context.Context) (uint64, error)
}

type Service struct {
	DB     DBLayer
	Prices PriceFloor
	Admin  string
}

func NewService(db DBLayer, prices PriceFloor, admin string) *Service {
	return &Service{DB: db, Prices: prices, Admin: admin}
}

// CreateEvent validates the input against the current policy and height and
// registers the event with the caller as organizer.
func (s *Service) CreateEvent(ctx context.Context, call models.Call, in models.EventInput) (uint64, error) {
	if in.TotalTickets == 0 {
		return 0, models.ErrInvalidCapacity
	}
	minPrice, err := s.Prices.MinTicketPrice(ctx)
	if err != nil {
		return 0, err
	}
	if in.TicketPrice < minPrice {
		return 0, models.ErrInvalidPrice
	}
	if in.Date <= call.Height {
		return 0, models.ErrEventExpired
	}
	if in.RefundWindow == 0 {
		return 0, models.ErrInvalidRefundWindow
	}

	id, err := s.DB.NextID(ctx, models.EventSequence)
	if err != nil {
		return 0, fmt.Errorf("allocate event id: %w", err)
	}

	event := models.Event{
		EventID:      id,
		Name:         in.Name,
		Description:  in.Description,
		Venue:        in.Venue,
		Organizer:    call.Caller,
		Date:         in.Date,
		TotalTickets: in.TotalTickets,
		TicketPrice:  in.TicketPrice,
		IsActive:     true,
		RefundWindow: in.RefundWindow,
		Category:     in.Category,
	}
	if err := s.DB.InsertEvent(ctx, event); err != nil {
		return 0, fmt.Errorf("insert event %d: %w", id, err)
	}

	record, err := s.organizer(ctx, call.Caller)
	if err != nil {
		return 0, err
	}
	record.EventsOrganized++
	if err := s.DB.SaveOrganizer(ctx, *record); err != nil {
		return 0, fmt.Errorf("save organizer %s: %w", call.Caller, err)
	}

	return id, nil
}

func (s *Service) GetEvent(ctx context.Context, id uint64) (*models.Event, error) {
	event, err := s.DB.GetEventByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	return event, nil
}

// MustGetEvent is GetEvent with absence reported as ErrEventNotFound.
func (s *Service) MustGetEvent(ctx context.Context, id uint64) (*models.Event, error) {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, models.ErrEventNotFound
	}
	return event, nil
}

func (s *Service) GetOrganizerRevenue(ctx context.Context, organizer string) (*models.OrganizerRecord, error) {
	record, err := s.DB.GetOrganizer(ctx, organizer)
	if err != nil {
		return nil, fmt.Errorf("get organizer %s: %w", organizer, err)
	}
	return record, nil
}

// CloseEvent stops further sales. Only the organizer or the admin may close.
func (s *Service) CloseEvent(ctx context.Context, call models.Call, id uint64) error {
	event, err := s.MustGetEvent(ctx, id)
	if err != nil {
		return err
	}
	if call.Caller != event.Organizer && call.Caller != s.Admin {
		return models.ErrNotAuthorized
	}
	if !event.IsActive {
		return nil
	}
	event.IsActive = false
	if err := s.DB.UpdateEvent(ctx, *event); err != nil {
		return fmt.Errorf("close event %d: %w", id, err)
	}
	return nil
}

// RecordSale consumes one unit of capacity and books the revenue on both the
// event and its organizer.
func (s *Service) RecordSale(ctx context.Context, event *models.Event, price uint64) error {
	if event.SoldOut() {
		return models.ErrSoldOut
	}
	event.TicketsSold++
	event.Revenue += price
	if err := s.DB.UpdateEvent(ctx, *event); err != nil {
		return fmt.Errorf("update event %d: %w", event.EventID, err)
	}

	record, err := s.organizer(ctx, event.Organizer)
	if err != nil {
		return err
	}
	record.TotalRevenue += price
	if err := s.DB.SaveOrganizer(ctx, *record); err != nil {
		return fmt.Errorf("save organizer %s: %w", event.Organizer, err)
	}
	return nil
}

// RecordRefund gives back revenue. Capacity stays consumed and the
// organizer's cumulative revenue is left untouched.
func (s *Service) RecordRefund(ctx context.Context, event *models.Event, price uint64) error {
	if event.Revenue < price {
		return fmt.Errorf("event %d revenue %d cannot cover refund of %d", event.EventID, event.Revenue, price)
	}
	event.Revenue -= price
	if err := s.DB.UpdateEvent(ctx, *event); err != nil {
		return fmt.Errorf("update event %d: %w", event.EventID, err)
	}
	return nil
}

func (s *Service) organizer(ctx context.Context, who string) (*models.OrganizerRecord, error) {
	record, err := s.DB.GetOrganizer(ctx, who)
	if err != nil {
		return nil, fmt.Errorf("get organizer %s: %w", who, err)
	}
	if record == nil {
		record = &models.OrganizerRecord{Organizer: who}
	}
	return record, nil
}
