package api

import (
	"net/http"
	"strconv"

	"ticket-ledger/internal/auth"
)

func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	view, err := h.Ledger.GetPolicy(r.Context())
	if err != nil {
		h.writeLedgerError(w, r, "get policy", err)
		return
	}
	writeOK(w, http.StatusOK, "policy", view)
}

func (h *Handler) CalculateFee(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("amount")
	amount, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeBadRequest(w, "amount must be a non-negative integer")
		return
	}

	fee, err := h.Ledger.CalculatePlatformFee(r.Context(), amount)
	if err != nil {
		h.writeLedgerError(w, r, "calculate fee", err)
		return
	}
	writeOK(w, http.StatusOK, "platform fee", map[string]uint64{"amount": amount, "fee": fee})
}

func (h *Handler) UpdateFee(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FeePercent *uint64 `json:"fee_percent"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if body.FeePercent == nil {
		writeBadRequest(w, "fee_percent is required")
		return
	}

	if err := h.Ledger.UpdatePlatformFee(r.Context(), auth.UserID(r.Context()), *body.FeePercent); err != nil {
		h.writeLedgerError(w, r, "update platform fee", err)
		return
	}
	writeOK(w, http.StatusOK, "platform fee updated", nil)
}

func (h *Handler) UpdateMinPrice(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MinTicketPrice *uint64 `json:"min_ticket_price"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if body.MinTicketPrice == nil {
		writeBadRequest(w, "min_ticket_price is required")
		return
	}

	if err := h.Ledger.UpdateMinTicketPrice(r.Context(), auth.UserID(r.Context()), *body.MinTicketPrice); err != nil {
		h.writeLedgerError(w, r, "update min ticket price", err)
		return
	}
	writeOK(w, http.StatusOK, "minimum ticket price updated", nil)
}
