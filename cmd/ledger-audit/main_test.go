package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ticket-ledger/internal/models"
)

func TestDescribe(t *testing.T) {
	ev := models.NewLedgerEvent(models.KindTicketPurchased, models.Call{Caller: "SP-A", Height: 42})
	ev.EventID = 3
	ev.TicketID = 7
	ev.Amount = 5000000

	assert.Equal(t, "h=42 SP-A bought ticket 7 for event 3 paying 5000000", describe(ev))

	for _, kind := range models.AllLedgerEventKinds {
		ev.Kind = kind
		assert.Contains(t, describe(ev), "SP-A")
	}
}
