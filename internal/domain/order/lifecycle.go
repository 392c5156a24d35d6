package order

import (
	"cmp"
	"context"
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/pizzeria/internal/domain/auth"
	"github.com/xenking/pizzeria/internal/domain/catalog"
	"github.com/xenking/pizzeria/pkg/opt"
)

// PaymentPatch is a partial update of an order's payment info.
type PaymentPatch struct {
	Status        opt.Opt[PaymentStatus]
	Method        opt.Opt[PaymentMethod]
	TransactionID opt.Opt[string]
}

// Get returns the order with its catalog lines resolved. Orders the actor
// may not read are reported as not found.
func (s *Service) Get(ctx context.Context, id string, actor auth.Actor) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Get", trace.WithAttributes(attribute.String("order.id", id)))
	defer func() { endSpan(span, rerr) }()

	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && !actor.Owns(o.OwnerID) {
		return nil, &NotFoundError{Resource: ResourceOrder, ID: id}
	}
	if err := s.resolve(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ListForUser returns the owner's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, ownerID string) (_ []Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.ListForUser")
	defer func() { endSpan(span, rerr) }()

	orders, err := s.orders.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders by owner")
	}
	return s.prepareList(ctx, orders)
}

// ListAll returns every order matching filter, newest first. Only
// administrators may list all orders.
func (s *Service) ListAll(ctx context.Context, actor auth.Actor, filter Filter) (_ []Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.ListAll")
	defer func() { endSpan(span, rerr) }()

	if !actor.IsAdmin {
		return nil, ErrForbidden
	}
	if st, ok := filter.Status.Get(); ok && !st.Valid() {
		return nil, &InvalidStatusError{Status: string(st)}
	}

	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return s.prepareList(ctx, orders)
}

// SetStatus moves an order to any known status. Only administrators may set
// statuses; pipeline adjacency is not enforced for them.
func (s *Service) SetStatus(ctx context.Context, id string, status Status, actor auth.Actor) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.SetStatus", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.status", string(status)),
	))
	defer func() { endSpan(span, rerr) }()

	if !actor.IsAdmin {
		return nil, ErrForbidden
	}
	if !status.Valid() {
		return nil, &InvalidStatusError{Status: string(status)}
	}

	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	prev := o.Status
	if prev != status && !prev.Next(status) {
		zctx.From(ctx).Info("Status set outside pipeline order",
			zap.String("order_id", id),
			zap.String("from", string(prev)),
			zap.String("to", string(status)),
		)
	}

	now := s.now()
	o.Status = status
	if status == StatusDelivered && !o.DeliveredAt.IsSet() {
		o.DeliveredAt = opt.New(now)
	}
	o.UpdatedAt = now

	if err := s.save(ctx, o); err != nil {
		return nil, err
	}
	s.metrics.statusChanges.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))

	if owner, ok := s.owner(ctx, o.OwnerID); ok {
		s.notify(ctx, o.ID, statusNotice(owner.Email, o))
	}
	return o, nil
}

// Cancel cancels an order on behalf of its owner. Only orders that have not
// left the kitchen can be cancelled.
func (s *Service) Cancel(ctx context.Context, id string, actor auth.Actor) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Cancel", trace.WithAttributes(attribute.String("order.id", id)))
	defer func() { endSpan(span, rerr) }()

	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(o.OwnerID) {
		return nil, ErrForbidden
	}
	if !o.Status.Cancellable() {
		return nil, &InvalidTransitionError{From: o.Status, To: StatusCancelled}
	}

	o.Status = StatusCancelled
	o.UpdatedAt = s.now()
	if err := s.save(ctx, o); err != nil {
		return nil, err
	}
	s.metrics.cancelled.Add(ctx, 1)

	s.notify(ctx, o.ID, cancelledNotice(s.cfg.OperatorEmail, o, actor))
	return o, nil
}

// SetPaymentStatus applies a payment patch. The owner and administrators may
// update payments. Marking an order paid stamps PaidAt once; marking it
// failed clears PaidAt.
func (s *Service) SetPaymentStatus(ctx context.Context, id string, patch PaymentPatch, actor auth.Actor) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.SetPaymentStatus", trace.WithAttributes(attribute.String("order.id", id)))
	defer func() { endSpan(span, rerr) }()

	if st, ok := patch.Status.Get(); ok && !st.Valid() {
		return nil, invalidPaymentStatus(st)
	}
	if m, ok := patch.Method.Get(); ok && !m.Valid() {
		return nil, invalidMethod(m)
	}

	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && !actor.Owns(o.OwnerID) {
		return nil, ErrForbidden
	}

	now := s.now()
	if st, ok := patch.Status.Get(); ok {
		o.Payment.Status = st
		switch st {
		case PaymentPaid:
			if !o.Payment.PaidAt.IsSet() {
				o.Payment.PaidAt = opt.New(now)
			}
		case PaymentFailed:
			o.Payment.PaidAt.Reset()
		}
	}
	if m, ok := patch.Method.Get(); ok {
		o.Payment.Method = m
	}
	if tx, ok := patch.TransactionID.Get(); ok && tx != "" {
		o.Payment.TransactionID = patch.TransactionID
	}
	o.UpdatedAt = now

	if err := s.save(ctx, o); err != nil {
		return nil, err
	}

	if owner, ok := s.owner(ctx, o.OwnerID); ok {
		s.notify(ctx, o.ID, paymentNotice(owner.Email, o))
	}
	return o, nil
}

func (s *Service) load(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{Resource: ResourceOrder, ID: id}
		}
		return nil, errors.Wrapf(err, "get order %s", id)
	}
	return o, nil
}

func (s *Service) save(ctx context.Context, o *Order) error {
	if err := s.orders.Update(ctx, o); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &NotFoundError{Resource: ResourceOrder, ID: o.ID}
		}
		return errors.Wrapf(err, "update order %s", o.ID)
	}
	return nil
}

// owner looks up the order owner's contact data. Lookup failures only
// suppress the owner's notice.
func (s *Service) owner(ctx context.Context, id string) (*auth.User, bool) {
	u, err := s.users.FindUser(ctx, id)
	if err != nil {
		zctx.From(ctx).Warn("Owner lookup failed", zap.String("owner_id", id), zap.Error(err))
		return nil, false
	}
	return u, true
}

func (s *Service) prepareList(ctx context.Context, orders []Order) ([]Order, error) {
	slices.SortStableFunc(orders, func(a, b Order) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
	ptrs := make([]*Order, len(orders))
	for i := range orders {
		ptrs[i] = &orders[i]
	}
	if err := s.resolve(ctx, ptrs...); err != nil {
		return nil, err
	}
	return orders, nil
}

// resolve attaches the current catalog pizza to every catalog line.
func (s *Service) resolve(ctx context.Context, orders ...*Order) error {
	var ids []string
	seen := make(map[string]struct{})
	for _, o := range orders {
		for _, l := range o.Lines {
			ref, ok := l.CatalogRef.Get()
			if !ok {
				continue
			}
			if _, dup := seen[ref]; !dup {
				seen[ref] = struct{}{}
				ids = append(ids, ref)
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}

	pizzas, err := s.pizzas.GetByIDs(ctx, ids)
	if err != nil {
		return errors.Wrap(err, "get pizzas")
	}
	byID := make(map[string]*catalog.Pizza, len(pizzas))
	for i := range pizzas {
		byID[pizzas[i].ID] = &pizzas[i]
	}
	for _, o := range orders {
		for i := range o.Lines {
			if ref, ok := o.Lines[i].CatalogRef.Get(); ok {
				o.Lines[i].Pizza = byID[ref]
			}
		}
	}
	return nil
}
