package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"ticket-ledger/internal/engine"
	"ticket-ledger/internal/ledger"
	"ticket-ledger/internal/lock"
	"ticket-ledger/internal/models"
	"ticket-ledger/internal/tickets/qr"
)

type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Code      uint32      `json:"code,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func ErrorResponse(message, error string) APIResponse {
	return APIResponse{
		Success:   false,
		Message:   message,
		Error:     error,
		Timestamp: time.Now(),
	}
}

// sendJSONResponse is a helper function to send JSON responses
func sendJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeOK(w http.ResponseWriter, status int, message string, data interface{}) {
	sendJSONResponse(w, status, SuccessResponse(message, data))
}

func writeBadRequest(w http.ResponseWriter, message string) {
	sendJSONResponse(w, http.StatusBadRequest, ErrorResponse(message, "bad_request"))
}

func writeNotFound(w http.ResponseWriter, message string) {
	sendJSONResponse(w, http.StatusNotFound, ErrorResponse(message, "not_found"))
}

var codeStatus = map[models.ErrorCode]int{
	models.CodeNotAuthorized:       http.StatusForbidden,
	models.CodeEventNotFound:       http.StatusNotFound,
	models.CodeTicketNotFound:      http.StatusNotFound,
	models.CodeSoldOut:             http.StatusConflict,
	models.CodeEventInactive:       http.StatusConflict,
	models.CodeEventExpired:        http.StatusConflict,
	models.CodeTicketUsed:          http.StatusConflict,
	models.CodeRefundWindowClosed:  http.StatusConflict,
	models.CodeInvalidPrice:        http.StatusUnprocessableEntity,
	models.CodeInvalidCapacity:     http.StatusUnprocessableEntity,
	models.CodeInvalidRefundWindow: http.StatusUnprocessableEntity,
	models.CodeInvalidFee:          http.StatusUnprocessableEntity,
}

// writeLedgerError maps a failed call onto a status and envelope. Ledger
// codes travel in the body; everything unrecognised is a 500.
func (h *Handler) writeLedgerError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if code, ok := models.CodeOf(err); ok {
		status, known := codeStatus[code]
		if !known {
			status = http.StatusBadRequest
		}
		resp := ErrorResponse(op+" rejected", code.String())
		resp.Code = uint32(code)
		sendJSONResponse(w, status, resp)
		return
	}

	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance):
		sendJSONResponse(w, http.StatusPaymentRequired, ErrorResponse(op+" rejected", "insufficient_balance"))
	case errors.Is(err, qr.ErrInvalidPayload):
		sendJSONResponse(w, http.StatusBadRequest, ErrorResponse(op+" rejected", "invalid_qr"))
	case errors.Is(err, engine.ErrQRDisabled):
		sendJSONResponse(w, http.StatusNotImplemented, ErrorResponse(op+" unavailable", "qr_disabled"))
	case errors.Is(err, lock.ErrLockTimeout):
		sendJSONResponse(w, http.StatusServiceUnavailable, ErrorResponse(op+" timed out", "busy"))
	default:
		h.Logger.Error("API", op+" failed on "+r.URL.Path+": "+err.Error())
		sendJSONResponse(w, http.StatusInternalServerError, ErrorResponse(op+" failed", "internal_error"))
	}
}
