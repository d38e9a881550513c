package models

import (
	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	EventID      uint64 `bun:"event_id,pk" json:"event_id"`
	Name         string `bun:"name,notnull" json:"name"`
	Description  string `bun:"description" json:"description"`
	Venue        string `bun:"venue" json:"venue"`
	Organizer    string `bun:"organizer,notnull" json:"organizer"`
	Date         uint64 `bun:"date,notnull" json:"date"`
	TotalTickets uint64 `bun:"total_tickets,notnull" json:"total_tickets"`
	TicketsSold  uint64 `bun:"tickets_sold,notnull,default:0" json:"tickets_sold"`
	TicketPrice  uint64 `bun:"ticket_price,notnull" json:"ticket_price"`
	IsActive     bool   `bun:"is_active,notnull" json:"is_active"`
	RefundWindow uint64 `bun:"refund_window,notnull" json:"refund_window"`
	Revenue      uint64 `bun:"revenue,notnull,default:0" json:"revenue"`
	Category     string `bun:"category" json:"category"`
}

// EventInput carries the caller-supplied fields of create-event.
type EventInput struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Venue        string `json:"venue"`
	Date         uint64 `json:"date"`
	TotalTickets uint64 `json:"total_tickets"`
	TicketPrice  uint64 `json:"ticket_price"`
	RefundWindow uint64 `json:"refund_window"`
	Category     string `json:"category"`
}

// SoldOut reports whether capacity has been consumed.
func (e *Event) SoldOut() bool {
	return e.TicketsSold >= e.TotalTickets
}

// OrganizerRecord tracks what one identity has organized.
type OrganizerRecord struct {
	bun.BaseModel `bun:"table:organizers"`

	Organizer       string `bun:"organizer,pk" json:"organizer"`
	EventsOrganized uint64 `bun:"events_organized,notnull,default:0" json:"events_organized"`
	TotalRevenue    uint64 `bun:"total_revenue,notnull,default:0" json:"total_revenue"`
}
