package order

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for order operations.
var (
	ErrEmptyCart = errors.New("no pizzas provided")
	ErrForbidden = errors.New("access denied")
	// ErrNotFound is returned by repositories for a missing order.
	ErrNotFound = errors.New("order not found")
)

// Resource names used in NotFoundError.
const (
	ResourceOrder = "order"
	ResourcePizza = "pizza"
)

// NotFoundError indicates a referenced order or required catalog pizza
// does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// InvalidStatusError indicates an order status outside the known set.
type InvalidStatusError struct {
	Status string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid status %q: must be one of %s", e.Status, strings.Join(toStrings(Statuses), ", "))
}

// InvalidValueError indicates an enum field outside its accepted set.
type InvalidValueError struct {
	Field   string
	Value   string
	Allowed []string
}

func (e *InvalidValueError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
	}
	return fmt.Sprintf("invalid %s %q: must be one of %s", e.Field, e.Value, strings.Join(e.Allowed, ", "))
}

// InvalidTransitionError indicates a cancellation of an order that has
// already left the kitchen.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move order with status %s to %s", e.From, e.To)
}

// TotalMismatchError is returned when a caller-supplied total differs from the
// computed one and the service is configured to reject such orders.
type TotalMismatchError struct {
	Supplied decimal.Decimal
	Computed decimal.Decimal
}

func (e *TotalMismatchError) Error() string {
	return fmt.Sprintf("total %s does not match computed total %s", e.Supplied, e.Computed)
}

func invalidMethod(m PaymentMethod) error {
	return &InvalidValueError{Field: "payment method", Value: string(m), Allowed: toStrings(PaymentMethods)}
}

func invalidPaymentStatus(s PaymentStatus) error {
	return &InvalidValueError{Field: "payment status", Value: string(s), Allowed: toStrings(PaymentStatuses)}
}

func toStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
