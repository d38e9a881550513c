package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/skip2/go-qrcode"

	"ticket-ledger/internal/models"
)

var ErrInvalidPayload = errors.New("invalid QR payload")

// Payload is what a ticket's QR code carries, sealed so that it cannot be
// forged at the door.
type Payload struct {
	TicketID uint64 `json:"ticket_id"`
	EventID  uint64 `json:"event_id"`
	Owner    string `json:"owner"`
}

type QRGenerator struct {
	aead cipher.AEAD
	size int
}

func NewQRGenerator(secret string) (*QRGenerator, error) {
	key := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &QRGenerator{aead: aead, size: 256}, nil
}

// Seal encrypts the ticket reference into a URL-safe string.
func (q *QRGenerator) Seal(ticket models.Ticket) (string, error) {
	data, err := json.Marshal(Payload{
		TicketID: ticket.TicketID,
		EventID:  ticket.EventID,
		Owner:    ticket.Owner,
	})
	if err != nil {
		return "", err
	}

	nonce := make([]byte, q.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := q.aead.Seal(nonce, nonce, data, nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal.
func (q *QRGenerator) Open(encoded string) (*Payload, error) {
	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	ns := q.aead.NonceSize()
	if len(raw) < ns {
		return nil, ErrInvalidPayload
	}
	plain, err := q.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	var p Payload
	if err := json.Unmarshal(plain, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &p, nil
}

// GenerateEncryptedQR returns a PNG QR code of the sealed payload.
func (q *QRGenerator) GenerateEncryptedQR(ticket models.Ticket) ([]byte, error) {
	sealed, err := q.Seal(ticket)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(sealed, qrcode.Medium, q.size)
}
