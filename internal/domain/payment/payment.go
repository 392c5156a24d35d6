// Package payment provides a demo payment processor. No money moves; it
// exists so clients can exercise the payment flow end to end.
package payment

import (
	"context"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DefaultDelay is how long a demo charge takes.
const DefaultDelay = 1500 * time.Millisecond

// ErrDeclined is returned when the demo processor declines a charge.
var ErrDeclined = errors.New("payment declined")

// Receipt describes a successful charge.
type Receipt struct {
	TransactionID string
	Amount        decimal.Decimal
	ProcessedAt   time.Time
}

// Config controls the demo processor.
type Config struct {
	// Delay simulates gateway latency. Negative means no delay.
	Delay time.Duration
	// FailureRate is the probability in [0, 1] that a charge is declined.
	FailureRate float64
}

// Demo is a payment processor that always answers locally.
type Demo struct {
	delay       time.Duration
	failureRate float64
	now         func() time.Time
	roll        func() float64
}

// NewDemo creates a Demo processor.
func NewDemo(cfg Config) *Demo {
	if cfg.Delay == 0 {
		cfg.Delay = DefaultDelay
	}
	return &Demo{
		delay:       max(cfg.Delay, 0),
		failureRate: min(max(cfg.FailureRate, 0), 1),
		now:         time.Now,
		roll:        rand.Float64,
	}
}

// Charge waits for the configured delay and then accepts or declines the
// charge. It returns ctx.Err() if ctx is done first.
func (d *Demo) Charge(ctx context.Context, amount decimal.Decimal) (*Receipt, error) {
	if amount.IsNegative() {
		return nil, errors.Errorf("invalid amount %s", amount)
	}
	if d.delay > 0 {
		t := time.NewTimer(d.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	if d.failureRate > 0 && d.roll() < d.failureRate {
		return nil, ErrDeclined
	}

	now := d.now()
	return &Receipt{
		TransactionID: "DEMO-" + strconv.FormatInt(now.UnixMilli(), 10),
		Amount:        amount,
		ProcessedAt:   now,
	}, nil
}
