package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"

	"ticket-ledger/internal/logger"
	"ticket-ledger/internal/models"
)

// LedgerTopics lists one topic per ledger event kind.
func LedgerTopics() []string {
	topics := make([]string, 0, len(models.AllLedgerEventKinds))
	for _, kind := range models.AllLedgerEventKinds {
		topics = append(topics, models.LedgerEvent{Kind: kind}.Topic())
	}
	return topics
}

// EnsureTopicsExist creates Kafka topics if they don't already exist
func EnsureTopicsExist(ctx context.Context, brokers []string, topics []string, log *logger.Logger) error {
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	configs := make([]kafka.TopicConfig, 0, len(topics))
	for _, topic := range topics {
		configs = append(configs, kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
	}

	if err := controllerConn.CreateTopics(configs...); err != nil {
		if errors.Is(err, kafka.TopicAlreadyExists) {
			log.LogKafka("TOPICS", fmt.Sprint(topics), "already exist")
			return nil
		}
		return fmt.Errorf("create topics: %w", err)
	}
	log.LogKafka("TOPICS", fmt.Sprint(topics), "ensured")
	return nil
}
