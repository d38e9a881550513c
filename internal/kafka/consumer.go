package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"ticket-ledger/internal/logger"
	"ticket-ledger/internal/models"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// DefaultRetryDelay is the pause after a failed read before the next one.
const DefaultRetryDelay = time.Second

type Consumer struct {
	reader     messageReader
	Logger     *logger.Logger
	RetryDelay time.Duration
}

// NewConsumer joins groupID and reads every ledger topic.
func NewConsumer(brokers []string, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		GroupTopics: LedgerTopics(),
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
	})
	return &Consumer{reader: reader, Logger: log, RetryDelay: DefaultRetryDelay}
}

// DecodeLedgerEvent parses a message written by the producer.
func DecodeLedgerEvent(msg kafka.Message) (models.LedgerEvent, error) {
	var ev models.LedgerEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return ev, fmt.Errorf("decode message on %s: %w", msg.Topic, err)
	}
	if ev.Kind == "" {
		return ev, fmt.Errorf("decode message on %s: missing kind", msg.Topic)
	}
	return ev, nil
}

// Start consumes until ctx is cancelled. Undecodable messages are logged
// and skipped; a failed read waits RetryDelay before trying again.
func (c *Consumer) Start(ctx context.Context, handler func(models.LedgerEvent)) error {
	c.Logger.LogKafka("CONSUME", "ticketing.*", "consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			c.Logger.Error("KAFKA", fmt.Sprintf("Error reading message: %v", err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.retryDelay()):
			}
			continue
		}

		ev, err := DecodeLedgerEvent(msg)
		if err != nil {
			c.Logger.Warn("KAFKA", err.Error())
			continue
		}
		handler(ev)
	}
}

func (c *Consumer) retryDelay() time.Duration {
	if c.RetryDelay <= 0 {
		return DefaultRetryDelay
	}
	return c.RetryDelay
}

// Close gracefully shuts down the Kafka reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
