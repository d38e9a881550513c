package kafka

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-ledger/internal/logger"
	"ticket-ledger/internal/models"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

type scriptedReader struct {
	msgs   []kafka.Message
	cancel context.CancelFunc
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *scriptedReader) Close() error { return nil }

func purchased() models.LedgerEvent {
	ev := models.NewLedgerEvent(models.KindTicketPurchased, models.Call{Caller: "SP-B", Height: 120})
	ev.EventID = 3
	ev.TicketID = 9
	ev.Amount = 5000000
	return ev
}

func TestLedgerTopics(t *testing.T) {
	topics := LedgerTopics()
	assert.Len(t, topics, len(models.AllLedgerEventKinds))
	assert.Contains(t, topics, "ticketing.ticket.purchased")
	assert.Contains(t, topics, "ticketing.policy.fee_updated")
}

func TestPublishLedgerEvent(t *testing.T) {
	w := &recordingWriter{}
	p := &Producer{Writer: w, Logger: logger.Discard()}

	ev := purchased()
	require.NoError(t, p.PublishLedgerEvent(context.Background(), ev))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "ticketing.ticket.purchased", msg.Topic)
	assert.Equal(t, []byte("3"), msg.Key)

	decoded, err := DecodeLedgerEvent(msg)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, decoded.ID)
	assert.Equal(t, ev.Kind, decoded.Kind)
	assert.Equal(t, uint64(9), decoded.TicketID)
	assert.Equal(t, uint64(5000000), decoded.Amount)
	assert.Equal(t, uint64(120), decoded.Height)
}

func TestPublishLedgerEventWriteFails(t *testing.T) {
	boom := errors.New("broker down")
	p := &Producer{Writer: &recordingWriter{err: boom}, Logger: logger.Discard()}

	err := p.PublishLedgerEvent(context.Background(), purchased())
	assert.ErrorIs(t, err, boom)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeLedgerEvent(kafka.Message{Topic: "ticketing.x", Value: []byte("not json")})
	assert.Error(t, err)

	_, err = DecodeLedgerEvent(kafka.Message{Topic: "ticketing.x", Value: []byte(`{"id":"1"}`)})
	assert.Error(t, err)
}

func TestConsumerSkipsBadMessages(t *testing.T) {
	good, err := LedgerEventMessage(purchased())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &Consumer{
		reader: &scriptedReader{
			msgs:   []kafka.Message{{Topic: "ticketing.x", Value: []byte("junk")}, good},
			cancel: cancel,
		},
		Logger: logger.Discard(),
	}

	var got []models.LedgerEvent
	require.NoError(t, c.Start(ctx, func(ev models.LedgerEvent) { got = append(got, ev) }))
	require.Len(t, got, 1)
	assert.Equal(t, models.KindTicketPurchased, got[0].Kind)
}

type failingReader struct {
	reads atomic.Int32
}

func (r *failingReader) ReadMessage(context.Context) (kafka.Message, error) {
	r.reads.Add(1)
	return kafka.Message{}, io.EOF
}

func (r *failingReader) Close() error { return nil }

func TestConsumerBacksOffOnReadErrors(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	reader := &failingReader{}
	c := &Consumer{reader: reader, Logger: logger.Discard(), RetryDelay: 100 * time.Millisecond}

	start := time.Now()
	require.NoError(t, c.Start(ctx, func(models.LedgerEvent) { t.Fatal("no event expected") }))

	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
	assert.LessOrEqual(t, reader.reads.Load(), int32(4))
	assert.GreaterOrEqual(t, reader.reads.Load(), int32(2))
}
