package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/pizzeria/internal/domain/auth"
	"github.com/xenking/pizzeria/internal/domain/catalog"
	"github.com/xenking/pizzeria/pkg/opt"
)

// DefaultDeliveryEstimate is how long after placement an order is expected
// to arrive.
const DefaultDeliveryEstimate = 45 * time.Minute

const instrumentationName = "github.com/xenking/pizzeria/internal/domain/order"

var zero = decimal.Zero

// Config holds order policy. It is fixed at construction time.
type Config struct {
	// OperatorEmail receives placement and cancellation notices. Empty
	// disables them.
	OperatorEmail string
	// DeliveryEstimate is added to the creation time to get the estimated
	// delivery time. Zero means DefaultDeliveryEstimate.
	DeliveryEstimate time.Duration
	// RejectTotalMismatch fails orders whose supplied total differs from the
	// sum of their lines. Mismatches are logged either way.
	RejectTotalMismatch bool
}

// Option configures a Service.
type Option func(*options)

type options struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	now            func() time.Time
}

// WithTelemetry sets the tracer and meter providers.
func WithTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
		o.meterProvider = mp
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// PaymentRequest is the payment data supplied at order placement.
type PaymentRequest struct {
	Method        opt.Opt[PaymentMethod]
	Status        opt.Opt[PaymentStatus]
	TransactionID opt.Opt[string]
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Owner               auth.Actor
	Entries             []CartEntry
	Total               opt.Opt[decimal.Decimal]
	Payment             PaymentRequest
	Address             Address
	SpecialInstructions opt.Opt[string]
}

// Service encapsulates order placement and the order lifecycle.
type Service struct {
	cfg        Config
	pizzas     catalog.Repository
	orders     Repository
	users      auth.Directory
	notifier   Notifier
	normalizer *Normalizer

	now     func() time.Time
	tracer  trace.Tracer
	metrics metrics
}

type metrics struct {
	placed        metric.Int64Counter
	statusChanges metric.Int64Counter
	cancelled     metric.Int64Counter
	notifyFailed  metric.Int64Counter
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	cfg Config,
	pizzas catalog.Repository,
	orders Repository,
	users auth.Directory,
	notifier Notifier,
	opts ...Option,
) (*Service, error) {
	o := options{
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
		now:            time.Now,
	}
	for _, fn := range opts {
		fn(&o)
	}
	if cfg.DeliveryEstimate <= 0 {
		cfg.DeliveryEstimate = DefaultDeliveryEstimate
	}

	m, err := newMetrics(o.meterProvider.Meter(instrumentationName))
	if err != nil {
		return nil, errors.Wrap(err, "create metrics")
	}

	return &Service{
		cfg:        cfg,
		pizzas:     pizzas,
		orders:     orders,
		users:      users,
		notifier:   notifier,
		normalizer: NewNormalizer(pizzas),
		now:        o.now,
		tracer:     o.tracerProvider.Tracer(instrumentationName),
		metrics:    m,
	}, nil
}

func newMetrics(meter metric.Meter) (m metrics, err error) {
	if m.placed, err = meter.Int64Counter("pizzeria.orders.placed",
		metric.WithDescription("Orders placed"),
	); err != nil {
		return m, err
	}
	if m.statusChanges, err = meter.Int64Counter("pizzeria.orders.status_changes",
		metric.WithDescription("Order status updates by administrators"),
	); err != nil {
		return m, err
	}
	if m.cancelled, err = meter.Int64Counter("pizzeria.orders.cancelled",
		metric.WithDescription("Orders cancelled by their owners"),
	); err != nil {
		return m, err
	}
	if m.notifyFailed, err = meter.Int64Counter("pizzeria.notifications.failed",
		metric.WithDescription("Notifications that could not be handed off"),
	); err != nil {
		return m, err
	}
	return m, nil
}

// PlaceOrder normalizes the cart, computes the total, persists the order in
// state Placed and notifies the operator. No order is persisted when any line
// fails to resolve.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder",
		trace.WithAttributes(attribute.Int("order.entries", len(req.Entries))),
	)
	defer func() { endSpan(span, rerr) }()

	if len(req.Entries) == 0 {
		return nil, ErrEmptyCart
	}
	if req.Owner.ID == "" {
		return nil, ErrForbidden
	}
	payment, err := newPaymentInfo(req.Payment)
	if err != nil {
		return nil, err
	}

	lines, err := s.normalizer.NormalizeAll(ctx, req.Entries)
	if err != nil {
		return nil, err
	}

	total, err := s.total(ctx, lines, req.Total)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if payment.Status == PaymentPaid {
		payment.PaidAt = opt.New(now)
	}
	o := &Order{
		ID:                  uuid.NewString(),
		OwnerID:             req.Owner.ID,
		Lines:               lines,
		Total:               total,
		Payment:             payment,
		Status:              StatusPlaced,
		Address:             req.Address,
		SpecialInstructions: req.SpecialInstructions,
		EstimatedDelivery:   now.Add(s.cfg.DeliveryEstimate),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	span.SetAttributes(attribute.String("order.id", o.ID))
	s.metrics.placed.Add(ctx, 1)

	zctx.From(ctx).Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("owner_id", o.OwnerID),
		zap.Int("lines", len(o.Lines)),
		zap.Stringer("total", o.Total),
	)
	s.notify(ctx, o.ID, placedNotice(s.cfg.OperatorEmail, o, req.Owner))

	return o, nil
}

// total returns the supplied total when present, otherwise the sum of line
// subtotals.
func (s *Service) total(ctx context.Context, lines []Line, supplied opt.Opt[decimal.Decimal]) (decimal.Decimal, error) {
	computed := zero
	for _, l := range lines {
		computed = computed.Add(l.Subtotal())
	}

	t, ok := supplied.Get()
	if !ok {
		return computed, nil
	}
	if t.IsNegative() {
		return zero, &InvalidValueError{Field: "total", Value: t.String()}
	}
	if !t.Equal(computed) {
		zctx.From(ctx).Warn("Supplied total differs from computed total",
			zap.Stringer("supplied", t),
			zap.Stringer("computed", computed),
		)
		if s.cfg.RejectTotalMismatch {
			return zero, &TotalMismatchError{Supplied: t, Computed: computed}
		}
	}
	return t, nil
}

func newPaymentInfo(req PaymentRequest) (PaymentInfo, error) {
	info := PaymentInfo{
		Method:        req.Method.Or(MethodCash),
		Status:        req.Status.Or(PaymentPending),
		TransactionID: req.TransactionID,
	}
	if !info.Method.Valid() {
		return PaymentInfo{}, invalidMethod(info.Method)
	}
	if !info.Status.Valid() {
		return PaymentInfo{}, invalidPaymentStatus(info.Status)
	}
	return info, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
