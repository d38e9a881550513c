package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"ticket-ledger/internal/logger"
	"ticket-ledger/internal/models"
)

// messageWriter is the part of kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer messageWriter
	Logger *logger.Logger
}

// NewProducer writes to whatever topic each message names.
func NewProducer(brokers []string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &Producer{Writer: writer, Logger: log}
}

// LedgerEventMessage keys the message by event id so one event's history
// lands on one partition in order.
func LedgerEventMessage(ev models.LedgerEvent) (kafka.Message, error) {
	msgBytes, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s: %w", ev.Kind, err)
	}
	return kafka.Message{
		Topic: ev.Topic(),
		Key:   []byte(strconv.FormatUint(ev.EventID, 10)),
		Value: msgBytes,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(ev.Kind)},
			{Key: "id", Value: []byte(ev.ID)},
		},
	}, nil
}

// PublishLedgerEvent streams a committed ledger change to Kafka
func (p *Producer) PublishLedgerEvent(ctx context.Context, ev models.LedgerEvent) error {
	msg, err := LedgerEventMessage(ev)
	if err != nil {
		return err
	}

	p.Logger.LogKafka("PUBLISH", msg.Topic, string(msg.Value))

	if err := p.Writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
