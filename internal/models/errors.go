package models

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable numeric code returned to callers for a rejected
// ledger call.
type ErrorCode uint32

const (
	CodeNotAuthorized       ErrorCode = 100
	CodeEventNotFound       ErrorCode = 101
	CodeSoldOut             ErrorCode = 102
	CodeEventInactive       ErrorCode = 103
	CodeInvalidPrice        ErrorCode = 104
	CodeEventExpired        ErrorCode = 105
	CodeInvalidCapacity     ErrorCode = 106
	CodeInvalidRefundWindow ErrorCode = 107
	CodeTicketNotFound      ErrorCode = 108
	CodeTicketUsed          ErrorCode = 109
	CodeRefundWindowClosed  ErrorCode = 110
	CodeInvalidFee          ErrorCode = 111
)

var codeNames = map[ErrorCode]string{
	CodeNotAuthorized:       "not_authorized",
	CodeEventNotFound:       "event_not_found",
	CodeSoldOut:             "sold_out",
	CodeEventInactive:       "event_inactive",
	CodeInvalidPrice:        "invalid_price",
	CodeEventExpired:        "event_expired",
	CodeInvalidCapacity:     "invalid_capacity",
	CodeInvalidRefundWindow: "invalid_refund_window",
	CodeTicketNotFound:      "ticket_not_found",
	CodeTicketUsed:          "ticket_used",
	CodeRefundWindowClosed:  "refund_window_closed",
	CodeInvalidFee:          "invalid_fee",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code_%d", uint32(c))
}

// LedgerError is a business-rule rejection. It never indicates a broken store.
type LedgerError struct {
	Code    ErrorCode
	Message string
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("%s (u%d): %s", e.Code, uint32(e.Code), e.Message)
}

// Is matches any LedgerError carrying the same code, so callers can compare
// against the sentinels below even when the message differs.
func (e *LedgerError) Is(target error) bool {
	var other *LedgerError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

var (
	ErrNotAuthorized       = &LedgerError{Code: CodeNotAuthorized, Message: "caller is not authorized"}
	ErrEventNotFound       = &LedgerError{Code: CodeEventNotFound, Message: "event not found"}
	ErrSoldOut             = &LedgerError{Code: CodeSoldOut, Message: "event is sold out"}
	ErrEventInactive       = &LedgerError{Code: CodeEventInactive, Message: "event is not active"}
	ErrInvalidPrice        = &LedgerError{Code: CodeInvalidPrice, Message: "ticket price below minimum"}
	ErrEventExpired        = &LedgerError{Code: CodeEventExpired, Message: "event date is not in the future"}
	ErrInvalidCapacity     = &LedgerError{Code: CodeInvalidCapacity, Message: "total tickets must be positive"}
	ErrInvalidRefundWindow = &LedgerError{Code: CodeInvalidRefundWindow, Message: "refund window must be positive"}
	ErrTicketNotFound      = &LedgerError{Code: CodeTicketNotFound, Message: "ticket not found"}
	ErrTicketUsed          = &LedgerError{Code: CodeTicketUsed, Message: "ticket already used or refunded"}
	ErrRefundWindowClosed  = &LedgerError{Code: CodeRefundWindowClosed, Message: "refund window has closed"}
	ErrInvalidFee          = &LedgerError{Code: CodeInvalidFee, Message: "platform fee must be between 0 and 100"}
)

// CodeOf returns the ledger code carried by err, if any.
func CodeOf(err error) (ErrorCode, bool) {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Code, true
	}
	return 0, false
}
