package notify

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
)

// ParseBrokers splits a comma-separated broker list, dropping blanks.
func ParseBrokers(csv string) []string {
	var brokers []string
	for _, b := range strings.Split(csv, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// KafkaSender publishes messages to a Kafka topic for a downstream mail relay.
// Messages are keyed by recipient so one recipient's notices stay ordered.
type KafkaSender struct {
	w *kafka.Writer
}

// NewKafkaSender creates a KafkaSender writing to topic.
func NewKafkaSender(brokers []string, topic string) *KafkaSender {
	return &KafkaSender{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// Send publishes msg.
func (s *KafkaSender) Send(ctx context.Context, msg Message) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}
	if err := s.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.To),
		Value: data,
		Time:  time.Now().UTC(),
	}); err != nil {
		return errors.Wrap(err, "write kafka message")
	}
	return nil
}

// Close flushes and closes the writer.
func (s *KafkaSender) Close() error {
	return s.w.Close()
}

// NewKafkaReader creates a consumer-group reader for the notification topic.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}
