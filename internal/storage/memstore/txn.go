package memstore

import (
	"context"
	"errors"
	"fmt"

	"ticket-ledger/internal/models"
)

var errReadOnly = errors.New("memstore: write in read-only view")

// txn applies writes directly to the tables and records an inverse for each,
// so a failed call can be unwound newest first.
type txn struct {
	t        *tables
	undo     []func()
	readOnly bool
}

func (x *txn) record(f func()) {
	x.undo = append(x.undo, f)
}

func (x *txn) rollback() {
	for i := len(x.undo) - 1; i >= 0; i-- {
		x.undo[i]()
	}
	x.undo = nil
}

func (x *txn) writable() error {
	if x.readOnly {
		return errReadOnly
	}
	return nil
}

func (x *txn) NextID(ctx context.Context, sequence string) (uint64, error) {
	if err := x.writable(); err != nil {
		return 0, err
	}
	prev, had := x.t.counters[sequence]
	x.t.counters[sequence] = prev + 1
	x.record(func() {
		if had {
			x.t.counters[sequence] = prev
		} else {
			delete(x.t.counters, sequence)
		}
	})
	return prev + 1, nil
}

func (x *txn) GetPolicy(ctx context.Context) (*models.Policy, error) {
	if x.t.policy == nil {
		return nil, nil
	}
	p := *x.t.policy
	return &p, nil
}

func (x *txn) SavePolicy(ctx context.Context, p models.Policy) error {
	if err := x.writable(); err != nil {
		return err
	}
	prev := x.t.policy
	x.t.policy = &p
	x.record(func() { x.t.policy = prev })
	return nil
}

func (x *txn) InsertEvent(ctx context.Context, event models.Event) error {
	if err := x.writable(); err != nil {
		return err
	}
	if event.EventID != uint64(len(x.t.events))+1 {
		return fmt.Errorf("event id %d out of sequence (next %d)", event.EventID, len(x.t.events)+1)
	}
	x.t.events = append(x.t.events, event)
	x.record(func() { x.t.events = x.t.events[:len(x.t.events)-1] })
	return nil
}

func (x *txn) GetEventByID(ctx context.Context, id uint64) (*models.Event, error) {
	if id == 0 || id > uint64(len(x.t.events)) {
		return nil, nil
	}
	e := x.t.events[id-1]
	return &e, nil
}

func (x *txn) UpdateEvent(ctx context.Context, event models.Event) error {
	if err := x.writable(); err != nil {
		return err
	}
	id := event.EventID
	if id == 0 || id > uint64(len(x.t.events)) {
		return fmt.Errorf("update event %d: no such row", id)
	}
	prev := x.t.events[id-1]
	x.t.events[id-1] = event
	x.record(func() { x.t.events[id-1] = prev })
	return nil
}

func (x *txn) GetOrganizer(ctx context.Context, organizer string) (*models.OrganizerRecord, error) {
	r, ok := x.t.organizers[organizer]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (x *txn) SaveOrganizer(ctx context.Context, record models.OrganizerRecord) error {
	if err := x.writable(); err != nil {
		return err
	}
	prev, had := x.t.organizers[record.Organizer]
	x.t.organizers[record.Organizer] = record
	x.record(func() {
		if had {
			x.t.organizers[record.Organizer] = prev
		} else {
			delete(x.t.organizers, record.Organizer)
		}
	})
	return nil
}

func (x *txn) InsertTicket(ctx context.Context, ticket models.Ticket) error {
	if err := x.writable(); err != nil {
		return err
	}
	if ticket.TicketID != uint64(len(x.t.tickets))+1 {
		return fmt.Errorf("ticket id %d out of sequence (next %d)", ticket.TicketID, len(x.t.tickets)+1)
	}
	x.t.tickets = append(x.t.tickets, ticket)
	x.t.byEvent[ticket.EventID] = append(x.t.byEvent[ticket.EventID], ticket.TicketID)
	x.record(func() {
		x.t.tickets = x.t.tickets[:len(x.t.tickets)-1]
		ids := x.t.byEvent[ticket.EventID]
		if len(ids) == 1 {
			delete(x.t.byEvent, ticket.EventID)
		} else {
			x.t.byEvent[ticket.EventID] = ids[:len(ids)-1]
		}
	})
	return nil
}

func (x *txn) GetTicketByID(ctx context.Context, id uint64) (*models.Ticket, error) {
	if id == 0 || id > uint64(len(x.t.tickets)) {
		return nil, nil
	}
	t := x.t.tickets[id-1]
	return &t, nil
}

func (x *txn) UpdateTicket(ctx context.Context, ticket models.Ticket) error {
	if err := x.writable(); err != nil {
		return err
	}
	id := ticket.TicketID
	if id == 0 || id > uint64(len(x.t.tickets)) {
		return fmt.Errorf("update ticket %d: no such row", id)
	}
	prev := x.t.tickets[id-1]
	x.t.tickets[id-1] = ticket
	x.record(func() { x.t.tickets[id-1] = prev })
	return nil
}

func (x *txn) AppendOwnedTicket(ctx context.Context, owner string, ticketID uint64) error {
	if err := x.writable(); err != nil {
		return err
	}
	x.t.owned[owner] = append(x.t.owned[owner], ticketID)
	x.record(func() {
		ids := x.t.owned[owner]
		if len(ids) == 1 {
			delete(x.t.owned, owner)
		} else {
			x.t.owned[owner] = ids[:len(ids)-1]
		}
	})
	return nil
}

func (x *txn) GetOwnedTickets(ctx context.Context, owner string) ([]uint64, error) {
	ids := x.t.owned[owner]
	if len(ids) == 0 {
		return nil, nil
	}
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out, nil
}

func (x *txn) ListTicketsByEvent(ctx context.Context, eventID uint64) ([]models.Ticket, error) {
	ids := x.t.byEvent[eventID]
	out := make([]models.Ticket, 0, len(ids))
	for _, id := range ids {
		out = append(out, x.t.tickets[id-1])
	}
	return out, nil
}
