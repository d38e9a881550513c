package models

import (
	"time"

	"github.com/google/uuid"
)

type LedgerEventKind string

const (
	KindEventCreated    LedgerEventKind = "event.created"
	KindEventClosed     LedgerEventKind = "event.closed"
	KindTicketPurchased LedgerEventKind = "ticket.purchased"
	KindTicketValidated LedgerEventKind = "ticket.validated"
	KindTicketRefunded  LedgerEventKind = "ticket.refunded"
	KindFeeUpdated      LedgerEventKind = "policy.fee_updated"
	KindMinPriceUpdated LedgerEventKind = "policy.min_price_updated"
)

// AllLedgerEventKinds lists every kind the engine emits.
var AllLedgerEventKinds = []LedgerEventKind{
	KindEventCreated,
	KindEventClosed,
	KindTicketPurchased,
	KindTicketValidated,
	KindTicketRefunded,
	KindFeeUpdated,
	KindMinPriceUpdated,
}

// LedgerEvent is published after a state change commits.
type LedgerEvent struct {
	ID         string          `json:"id"`
	Kind       LedgerEventKind `json:"kind"`
	Actor      string          `json:"actor"`
	EventID    uint64          `json:"event_id,omitempty"`
	TicketID   uint64          `json:"ticket_id,omitempty"`
	Amount     uint64          `json:"amount,omitempty"`
	Height     uint64          `json:"height"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func NewLedgerEvent(kind LedgerEventKind, call Call) LedgerEvent {
	return LedgerEvent{
		ID:         uuid.New().String(),
		Kind:       kind,
		Actor:      call.Caller,
		Height:     call.Height,
		OccurredAt: time.Now().UTC(),
	}
}

// Topic is the Kafka topic this event is written to.
func (e LedgerEvent) Topic() string {
	return "ticketing." + string(e.Kind)
}
