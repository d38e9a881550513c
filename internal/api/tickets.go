package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ticket-ledger/internal/auth"
)

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "ticketId")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	ticket, err := h.Ledger.GetTicket(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, r, "get ticket", err)
		return
	}
	if ticket == nil {
		writeNotFound(w, "ticket not found")
		return
	}
	writeOK(w, http.StatusOK, "ticket", map[string]interface{}{
		"ticket": ticket,
		"status": ticket.Status(),
	})
}

func (h *Handler) ValidateTicket(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "ticketId")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := h.Ledger.ValidateTicket(r.Context(), auth.UserID(r.Context()), id); err != nil {
		h.writeLedgerError(w, r, "validate ticket", err)
		return
	}
	writeOK(w, http.StatusOK, "ticket validated", nil)
}

func (h *Handler) RefundTicket(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "ticketId")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := h.Ledger.RefundTicket(r.Context(), auth.UserID(r.Context()), id); err != nil {
		h.writeLedgerError(w, r, "refund ticket", err)
		return
	}
	writeOK(w, http.StatusOK, "ticket refunded", nil)
}

func (h *Handler) GetTicketQR(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "ticketId")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	png, err := h.Ledger.TicketQR(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		h.writeLedgerError(w, r, "ticket QR", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// CheckinTicket validates the ticket named by a scanned QR code.
// Expected POST request body: {"encrypted_qr": "base64_encrypted_string"}
func (h *Handler) CheckinTicket(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		EncryptedQR string `json:"encrypted_qr"`
	}
	if err := decodeBody(r, &requestBody); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if requestBody.EncryptedQR == "" {
		writeBadRequest(w, "encrypted_qr is required")
		return
	}

	ticket, err := h.Ledger.CheckInByQR(r.Context(), auth.UserID(r.Context()), requestBody.EncryptedQR)
	if err != nil {
		h.writeLedgerError(w, r, "check-in", err)
		return
	}
	writeOK(w, http.StatusOK, "checkin successful", ticket)
}

func (h *Handler) GetUserTickets(w http.ResponseWriter, r *http.Request) {
	principal := chi.URLParam(r, "principal")

	owned, err := h.Ledger.GetUserTickets(r.Context(), principal)
	if err != nil {
		h.writeLedgerError(w, r, "get user tickets", err)
		return
	}
	if owned == nil {
		writeNotFound(w, "no tickets for "+principal)
		return
	}
	writeOK(w, http.StatusOK, "user tickets", owned)
}
