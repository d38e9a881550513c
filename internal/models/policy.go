package models

import (
	"github.com/uptrace/bun"
)

// PolicyRowID is the primary key of the singleton policy row.
const PolicyRowID = 1

type Policy struct {
	bun.BaseModel `bun:"table:policy"`

	ID                 int    `bun:"id,pk" json:"-"`
	PlatformFeePercent uint64 `bun:"platform_fee_percent,notnull" json:"platform_fee_percent"`
	MinTicketPrice     uint64 `bun:"min_ticket_price,notnull" json:"min_ticket_price"`
}

// PolicyView is the read model returned to callers, including the fixed admin.
type PolicyView struct {
	Admin              string `json:"admin"`
	PlatformFeePercent uint64 `json:"platform_fee_percent"`
	MinTicketPrice     uint64 `json:"min_ticket_price"`
}

// Counter holds the last id handed out for a named sequence.
type Counter struct {
	bun.BaseModel `bun:"table:counters"`

	Name  string `bun:"name,pk"`
	Value uint64 `bun:"value,notnull"`
}

const (
	EventSequence  = "event"
	TicketSequence = "ticket"
)
