package qr_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-ledger/internal/models"
	"ticket-ledger/internal/tickets/qr"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestGenerateEncryptedQR(t *testing.T) {
	gen, err := qr.NewQRGenerator("test-secret-key")
	require.NoError(t, err)

	png, err := gen.GenerateEncryptedQR(models.Ticket{TicketID: 1, EventID: 2, Owner: "SP-A"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic), "expected PNG output")
}

func TestSealOpenRoundTrip(t *testing.T) {
	gen, err := qr.NewQRGenerator("test-secret-key")
	require.NoError(t, err)

	ticket := models.Ticket{TicketID: 42, EventID: 7, Owner: "SP-BUYER"}
	sealed, err := gen.Seal(ticket)
	require.NoError(t, err)

	p, err := gen.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, qr.Payload{TicketID: 42, EventID: 7, Owner: "SP-BUYER"}, *p)

	again, err := gen.Seal(ticket)
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce should differ per seal")
}

func TestOpenRejectsForeignOrTampered(t *testing.T) {
	gen, _ := qr.NewQRGenerator("secret-a")
	other, _ := qr.NewQRGenerator("secret-b")

	sealed, err := gen.Seal(models.Ticket{TicketID: 1})
	require.NoError(t, err)

	_, err = other.Open(sealed)
	assert.ErrorIs(t, err, qr.ErrInvalidPayload)

	_, err = gen.Open("not base64 !!")
	assert.ErrorIs(t, err, qr.ErrInvalidPayload)

	_, err = gen.Open("AAAA")
	assert.ErrorIs(t, err, qr.ErrInvalidPayload)
}
