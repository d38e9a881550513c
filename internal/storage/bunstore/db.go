package bunstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"ticket-ledger/internal/models"
)

// DB runs ledger queries against either the pool or an open transaction.
type DB struct {
	Bun bun.IDB
}

func notFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// ---------------- COUNTERS ----------------

func (d *DB) NextID(ctx context.Context, sequence string) (uint64, error) {
	var counter models.Counter
	err := d.Bun.NewSelect().
		Model(&counter).
		Where("? = ?", bun.Ident("name"), sequence).
		Limit(1).
		Scan(ctx)
	if notFound(err) {
		counter = models.Counter{Name: sequence, Value: 1}
		_, err = d.Bun.NewInsert().Model(&counter).Exec(ctx)
		return counter.Value, err
	}
	if err != nil {
		return 0, err
	}

	counter.Value++
	_, err = d.Bun.NewUpdate().Model(&counter).WherePK().Exec(ctx)
	return counter.Value, err
}

// ---------------- POLICY ----------------

func (d *DB) GetPolicy(ctx context.Context) (*models.Policy, error) {
	var p models.Policy
	err := d.Bun.NewSelect().
		Model(&p).
		Where("id = ?", models.PolicyRowID).
		Limit(1).
		Scan(ctx)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (d *DB) SavePolicy(ctx context.Context, p models.Policy) error {
	p.ID = models.PolicyRowID
	exists, err := d.Bun.NewSelect().
		Model((*models.Policy)(nil)).
		Where("id = ?", p.ID).
		Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		_, err = d.Bun.NewUpdate().Model(&p).WherePK().Exec(ctx)
	} else {
		_, err = d.Bun.NewInsert().Model(&p).Exec(ctx)
	}
	return err
}

// ---------------- EVENTS ----------------

func (d *DB) InsertEvent(ctx context.Context, event models.Event) error {
	_, err := d.Bun.NewInsert().Model(&event).Exec(ctx)
	return err
}

func (d *DB) GetEventByID(ctx context.Context, id uint64) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("event_id = ?", id).
		Limit(1).
		Scan(ctx)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (d *DB) UpdateEvent(ctx context.Context, event models.Event) error {
	_, err := d.Bun.NewUpdate().Model(&event).WherePK().Exec(ctx)
	return err
}

// ---------------- ORGANIZERS ----------------

func (d *DB) GetOrganizer(ctx context.Context, organizer string) (*models.OrganizerRecord, error) {
	var record models.OrganizerRecord
	err := d.Bun.NewSelect().
		Model(&record).
		Where("? = ?", bun.Ident("organizer"), organizer).
		Limit(1).
		Scan(ctx)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (d *DB) SaveOrganizer(ctx context.Context, record models.OrganizerRecord) error {
	exists, err := d.Bun.NewSelect().
		Model((*models.OrganizerRecord)(nil)).
		Where("? = ?", bun.Ident("organizer"), record.Organizer).
		Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		_, err = d.Bun.NewUpdate().Model(&record).WherePK().Exec(ctx)
	} else {
		_, err = d.Bun.NewInsert().Model(&record).Exec(ctx)
	}
	return err
}

// ---------------- TICKETS ----------------

func (d *DB) InsertTicket(ctx context.Context, ticket models.Ticket) error {
	_, err := d.Bun.NewInsert().Model(&ticket).Exec(ctx)
	return err
}

func (d *DB) GetTicketByID(ctx context.Context, id uint64) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("ticket_id = ?", id).
		Limit(1).
		Scan(ctx)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (d *DB) UpdateTicket(ctx context.Context, ticket models.Ticket) error {
	_, err := d.Bun.NewUpdate().
		Model(&ticket).
		Column("is_used", "is_refunded").
		WherePK().
		Exec(ctx)
	return err
}

func (d *DB) ListTicketsByEvent(ctx context.Context, eventID uint64) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("event_id = ?", eventID).
		Order("ticket_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// ---------------- OWNER INDEX ----------------

func (d *DB) AppendOwnedTicket(ctx context.Context, owner string, ticketID uint64) error {
	count, err := d.Bun.NewSelect().
		Model((*models.OwnedTicket)(nil)).
		Where("? = ?", bun.Ident("owner"), owner).
		Count(ctx)
	if err != nil {
		return err
	}
	entry := models.OwnedTicket{Owner: owner, Position: uint64(count), TicketID: ticketID}
	_, err = d.Bun.NewInsert().Model(&entry).Exec(ctx)
	return err
}

func (d *DB) GetOwnedTickets(ctx context.Context, owner string) ([]uint64, error) {
	var ids []uint64
	err := d.Bun.NewSelect().
		Model((*models.OwnedTicket)(nil)).
		Column("ticket_id").
		Where("? = ?", bun.Ident("owner"), owner).
		OrderExpr("? ASC", bun.Ident("position")).
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}
