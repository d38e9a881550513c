package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ticket-ledger/internal/auth"
	"ticket-ledger/internal/models"
)

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var in models.EventInput
	if err := decodeBody(r, &in); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	id, err := h.Ledger.CreateEvent(r.Context(), auth.UserID(r.Context()), in)
	if err != nil {
		h.writeLedgerError(w, r, "create event", err)
		return
	}
	writeOK(w, http.StatusCreated, "event created", map[string]uint64{"event_id": id})
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "eventId")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	event, err := h.Ledger.GetEvent(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, r, "get event", err)
		return
	}
	if event == nil {
		writeNotFound(w, "event not found")
		return
	}
	writeOK(w, http.StatusOK, "event", event)
}

func (h *Handler) CloseEvent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "eventId")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := h.Ledger.CloseEvent(r.Context(), auth.UserID(r.Context()), id); err != nil {
		h.writeLedgerError(w, r, "close event", err)
		return
	}
	writeOK(w, http.StatusOK, "event closed", nil)
}

func (h *Handler) GetEventStats(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "eventId")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	stats, err := h.Ledger.EventStats(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, r, "event stats", err)
		return
	}
	writeOK(w, http.StatusOK, "event stats", stats)
}

func (h *Handler) PurchaseTicket(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "eventId")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	ticketID, err := h.Ledger.PurchaseTicket(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		h.writeLedgerError(w, r, "purchase ticket", err)
		return
	}
	writeOK(w, http.StatusCreated, "ticket purchased", map[string]uint64{"ticket_id": ticketID})
}

func (h *Handler) GetOrganizer(w http.ResponseWriter, r *http.Request) {
	principal := chi.URLParam(r, "principal")

	record, err := h.Ledger.GetOrganizerRevenue(r.Context(), principal)
	if err != nil {
		h.writeLedgerError(w, r, "get organizer", err)
		return
	}
	if record == nil {
		writeNotFound(w, "organizer not found")
		return
	}
	writeOK(w, http.StatusOK, "organizer", record)
}
