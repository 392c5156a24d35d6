// Command notify-relay consumes order notifications from Kafka and hands them
// to the mail gateway. Until a gateway is wired in, messages are logged.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"

	"github.com/xenking/pizzeria/internal/notify"
)

func main() {
	var (
		brokers string
		topic   string
		groupID string
	)

	flag.StringVar(&brokers, "brokers", os.Getenv("PIZZERIA_KAFKA_BROKERS"), "comma-separated Kafka brokers (or PIZZERIA_KAFKA_BROKERS env)")
	flag.StringVar(&topic, "topic", "pizzeria.notifications", "notification topic")
	flag.StringVar(&groupID, "group", "pizzeria-notify-relay", "consumer group id")
	flag.Parse()

	list := notify.ParseBrokers(brokers)
	if len(list) == 0 {
		slog.Error("brokers are required: set --brokers or PIZZERIA_KAFKA_BROKERS")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reader := notify.NewKafkaReader(list, topic, groupID)
	defer func() { _ = reader.Close() }()

	slog.Info("relay started", slog.String("topic", topic), slog.String("group", groupID))
	if err := relay(ctx, reader, notify.SenderFunc(logMessage)); err != nil {
		slog.Error("relay failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("relay stopped")
}

// source is the consumer side of a Kafka reader.
type source interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

const retryDelay = 2 * time.Second

// relay forwards messages from src to dst until ctx is done. Malformed
// messages are committed and skipped. A failed delivery is not committed,
// so the message is redelivered after a restart.
func relay(ctx context.Context, src source, dst notify.Sender) error {
	for {
		m, err := src.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("kafka fetch failed", slog.String("error", err.Error()))
			if !sleep(ctx, retryDelay) {
				return nil
			}
			continue
		}

		msg, err := notify.Decode(m.Value)
		if err != nil {
			slog.Warn("dropping malformed message",
				slog.Int64("offset", m.Offset),
				slog.String("error", err.Error()),
			)
		} else if err := dst.Send(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrapf(err, "deliver message at offset %d", m.Offset)
		}

		if err := src.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "commit")
		}
	}
}

func logMessage(_ context.Context, msg notify.Message) error {
	slog.Info("notification",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
