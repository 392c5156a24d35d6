// Package notify delivers best-effort notices (order placed, status changed,
// cancelled, payment updated) outside of the request that triggered them.
package notify

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Message is a single notice addressed to one recipient.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Sender delivers a message over some transport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// LogSender is used when no transport is configured: it records that the
// notice was not sent.
type LogSender struct{}

// Send logs the message and never fails.
func (LogSender) Send(ctx context.Context, msg Message) error {
	zctx.From(ctx).Info("Notification not sent, no transport configured",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}

// Encode serializes a message for transport.
func Encode(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrap(err, "marshal message")
	}
	return data, nil
}

// Decode parses a message produced by Encode.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, errors.Wrap(err, "unmarshal message")
	}
	if msg.To == "" {
		return Message{}, errors.New("message has no recipient")
	}
	return msg, nil
}
