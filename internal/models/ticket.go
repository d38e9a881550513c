package models

import (
	"github.com/uptrace/bun"
)

type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	TicketID       uint64 `bun:"ticket_id,pk" json:"ticket_id"`
	EventID        uint64 `bun:"event_id,notnull" json:"event_id"`
	Owner          string `bun:"owner,notnull" json:"owner"`
	PurchasePrice  uint64 `bun:"purchase_price,notnull" json:"purchase_price"`
	PurchaseHeight uint64 `bun:"purchase_height,notnull" json:"purchase_height"`
	IsUsed         bool   `bun:"is_used,notnull" json:"is_used"`
	IsRefunded     bool   `bun:"is_refunded,notnull" json:"is_refunded"`
}

// Status is derived from the two one-way flags.
type TicketStatus string

const (
	TicketActive   TicketStatus = "active"
	TicketUsed     TicketStatus = "used"
	TicketRefunded TicketStatus = "refunded"
)

func (t *Ticket) Status() TicketStatus {
	switch {
	case t.IsUsed:
		return TicketUsed
	case t.IsRefunded:
		return TicketRefunded
	default:
		return TicketActive
	}
}

// Terminal reports whether the ticket can no longer be validated or refunded.
func (t *Ticket) Terminal() bool {
	return t.IsUsed || t.IsRefunded
}

// OwnedTicket is one entry of an identity's append-only ticket index.
type OwnedTicket struct {
	bun.BaseModel `bun:"table:owned_tickets"`

	Owner    string `bun:"owner,pk"`
	Position uint64 `bun:"position,pk"`
	TicketID uint64 `bun:"ticket_id,notnull"`
}

// UserTickets is the get-user-tickets result.
type UserTickets struct {
	OwnedTickets []uint64 `json:"owned_tickets"`
}

// EventStats summarises the ticket population of one event.
type EventStats struct {
	EventID     uint64 `json:"event_id"`
	TicketsSold uint64 `json:"tickets_sold"`
	Active      uint64 `json:"active"`
	Used        uint64 `json:"used"`
	Refunded    uint64 `json:"refunded"`
	Revenue     uint64 `json:"revenue"`
	PlatformFee uint64 `json:"platform_fee"`
}
