// Command ledger-audit tails the ledger's Kafka topics and logs every
// committed change.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"ticket-ledger/internal/config"
	"ticket-ledger/internal/kafka"
	"ticket-ledger/internal/logger"
	"ticket-ledger/internal/models"
)

func main() {
	var envFile, group string
	flagSet := pflag.NewFlagSet("ledger-audit", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	flagSet.StringVar(&group, "group", "", "consumer group (overrides KAFKA_GROUP_ID)")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if group != "" {
		cfg.Kafka.GroupID = group
	}

	log, err := logger.NewLogger(logger.Options{
		Dir:     cfg.Log.Dir,
		Service: "ledger-audit",
		Level:   logger.ParseLevel(cfg.Log.Level),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Close()

	if len(cfg.Kafka.Brokers) == 0 {
		log.Fatal("CONFIG", "KAFKA_BROKERS is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, log)
	defer consumer.Close()

	log.Info("AUDIT", fmt.Sprintf("Tailing %d ledger topics as group %s", len(kafka.LedgerTopics()), cfg.Kafka.GroupID))
	if err := consumer.Start(ctx, func(ev models.LedgerEvent) {
		log.Info("AUDIT", describe(ev))
	}); err != nil {
		log.Error("AUDIT", err.Error())
	}
	log.Info("AUDIT", "Consumer stopped")
}

func describe(ev models.LedgerEvent) string {
	switch ev.Kind {
	case models.KindEventCreated:
		return fmt.Sprintf("h=%d %s created event %d at price %d", ev.Height, ev.Actor, ev.EventID, ev.Amount)
	case models.KindEventClosed:
		return fmt.Sprintf("h=%d %s closed event %d", ev.Height, ev.Actor, ev.EventID)
	case models.KindTicketPurchased:
		return fmt.Sprintf("h=%d %s bought ticket %d for event %d paying %d", ev.Height, ev.Actor, ev.TicketID, ev.EventID, ev.Amount)
	case models.KindTicketValidated:
		return fmt.Sprintf("h=%d %s validated ticket %d for event %d", ev.Height, ev.Actor, ev.TicketID, ev.EventID)
	case models.KindTicketRefunded:
		return fmt.Sprintf("h=%d %s refunded ticket %d for %d", ev.Height, ev.Actor, ev.TicketID, ev.Amount)
	case models.KindFeeUpdated:
		return fmt.Sprintf("h=%d %s set platform fee to %d%%", ev.Height, ev.Actor, ev.Amount)
	case models.KindMinPriceUpdated:
		return fmt.Sprintf("h=%d %s set minimum ticket price to %d", ev.Height, ev.Actor, ev.Amount)
	default:
		return fmt.Sprintf("h=%d %s %s", ev.Height, ev.Actor, ev.Kind)
	}
}
