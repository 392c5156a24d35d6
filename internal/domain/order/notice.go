package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/pizzeria/internal/domain/auth"
	"github.com/xenking/pizzeria/internal/notify"
)

// notify hands msg to the notifier after the order has been persisted.
// Failures are logged and never reach the caller.
func (s *Service) notify(ctx context.Context, orderID string, msg notify.Message) {
	if msg.To == "" || s.notifier == nil {
		return
	}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.Errorf("notifier panic: %v", r)
			}
		}()
		return s.notifier.Notify(ctx, msg)
	}()
	if err != nil {
		s.metrics.notifyFailed.Add(ctx, 1)
		zctx.From(ctx).Warn("Notification failed",
			zap.String("order_id", orderID),
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
	}
}

func placedNotice(to string, o *Order, owner auth.Actor) notify.Message {
	return notify.Message{
		To:      to,
		Subject: "New Order Placed",
		Body:    fmt.Sprintf("New order #%s placed by %s. Total: ₹%s", o.ID, owner.Name, o.Total.StringFixed(2)),
	}
}

func statusNotice(to string, o *Order) notify.Message {
	return notify.Message{
		To:      to,
		Subject: fmt.Sprintf("Order Status Updated - #%s", o.ID),
		Body:    fmt.Sprintf("Your order #%s status has been updated to: %s", o.ID, o.Status),
	}
}

func cancelledNotice(to string, o *Order, by auth.Actor) notify.Message {
	return notify.Message{
		To:      to,
		Subject: fmt.Sprintf("Order Cancelled - #%s", o.ID),
		Body:    fmt.Sprintf("Order #%s has been cancelled by user %s", o.ID, by.Name),
	}
}

func paymentNotice(to string, o *Order) notify.Message {
	return notify.Message{
		To:      to,
		Subject: fmt.Sprintf("Payment Status Updated - Order #%s", o.ID),
		Body: fmt.Sprintf("Payment status for your order #%s has been updated to: %s. Method: %s",
			o.ID, o.Payment.Status, o.Payment.Method),
	}
}
