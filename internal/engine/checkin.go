package engine

import (
	"context"
	"errors"
	"fmt"

	"ticket-ledger/internal/models"
	"ticket-ledger/internal/tickets/qr"
)

var ErrQRDisabled = errors.New("ticket QR codes are not configured")

// TicketQR renders the owner's sealed QR code as a PNG.
func (e *Engine) TicketQR(ctx context.Context, caller string, ticketID uint64) ([]byte, error) {
	if e.qr == nil {
		return nil, ErrQRDisabled
	}
	ticket, err := e.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, models.ErrTicketNotFound
	}
	if ticket.Owner != caller {
		return nil, models.ErrNotAuthorized
	}
	png, err := e.qr.GenerateEncryptedQR(*ticket)
	if err != nil {
		return nil, fmt.Errorf("render QR for ticket %d: %w", ticketID, err)
	}
	return png, nil
}

// CheckInByQR opens a scanned payload and validates the ticket it names on
// behalf of the scanning organizer. A payload whose event or owner no longer
// matches the stored ticket is rejected.
func (e *Engine) CheckInByQR(ctx context.Context, caller, payload string) (*models.Ticket, error) {
	if e.qr == nil {
		return nil, ErrQRDisabled
	}
	p, err := e.qr.Open(payload)
	if err != nil {
		e.log.LogSecurity("CHECKIN", fmt.Sprintf("%s presented an unreadable QR payload", caller))
		return nil, err
	}

	return e.validate(ctx, "checkin", caller, p.TicketID, func(stored *models.Ticket) error {
		if stored.EventID != p.EventID || stored.Owner != p.Owner {
			e.log.LogSecurity("CHECKIN", fmt.Sprintf("QR for ticket %d does not match the ledger", p.TicketID))
			return qr.ErrInvalidPayload
		}
		return nil
	})
}
