package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/pizzeria/internal/domain/catalog"
	"github.com/xenking/pizzeria/internal/notify"
	"github.com/xenking/pizzeria/pkg/opt"
)

// DefaultLineName labels a line that has neither a custom name nor a catalog pizza.
const DefaultLineName = "Custom Pizza"

// Status is the lifecycle state of an order.
type Status string

// Order statuses, in pipeline order. Cancelled is the side branch.
const (
	StatusPlaced         Status = "Placed"
	StatusReceived       Status = "Received"
	StatusInKitchen      Status = "In Kitchen"
	StatusOutForDelivery Status = "Out for Delivery"
	StatusDelivered      Status = "Delivered"
	StatusCancelled      Status = "Cancelled"
)

// Statuses lists every known status in pipeline order.
var Statuses = []Status{
	StatusPlaced,
	StatusReceived,
	StatusInKitchen,
	StatusOutForDelivery,
	StatusDelivered,
	StatusCancelled,
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s.step() >= 0
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Cancellable reports whether an owner may still cancel an order in status s.
// Once an order leaves the kitchen it can no longer be cancelled.
func (s Status) Cancellable() bool {
	switch s {
	case StatusPlaced, StatusReceived, StatusInKitchen:
		return true
	}
	return false
}

// Next reports whether to is the immediate pipeline successor of s.
func (s Status) Next(to Status) bool {
	if s.Terminal() || to == StatusCancelled {
		return false
	}
	return to.step() == s.step()+1
}

func (s Status) step() int {
	for i, v := range Statuses {
		if v == s {
			return i
		}
	}
	return -1
}

// PaymentMethod is how the customer pays.
type PaymentMethod string

// Payment methods.
const (
	MethodCard   PaymentMethod = "card"
	MethodUPI    PaymentMethod = "upi"
	MethodCash   PaymentMethod = "cash"
	MethodWallet PaymentMethod = "wallet"
)

// PaymentMethods lists every accepted payment method.
var PaymentMethods = []PaymentMethod{MethodCard, MethodUPI, MethodCash, MethodWallet}

// Valid reports whether m is an accepted payment method.
func (m PaymentMethod) Valid() bool {
	for _, v := range PaymentMethods {
		if v == m {
			return true
		}
	}
	return false
}

// PaymentStatus is the settlement state of an order's payment.
type PaymentStatus string

// Payment statuses.
const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// PaymentStatuses lists every accepted payment status.
var PaymentStatuses = []PaymentStatus{PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded}

// Valid reports whether s is an accepted payment status.
func (s PaymentStatus) Valid() bool {
	for _, v := range PaymentStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Options is the ingredient selection of a pizza. Veggies and Meat are
// unordered sets.
type Options struct {
	Base    opt.Opt[string]
	Sauce   opt.Opt[string]
	Cheese  opt.Opt[string]
	Veggies []string
	Meat    []string
	Price   opt.Opt[decimal.Decimal]
}

// Line is a normalized order line with a resolved name and unit price.
type Line struct {
	CatalogRef  opt.Opt[string]
	Quantity    int
	DisplayName string
	Options     Options
	UnitPrice   decimal.Decimal

	// Pizza is the current catalog entry for display. It is not persisted.
	Pizza *catalog.Pizza
}

// Subtotal returns UnitPrice × Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// PaymentInfo describes how and whether an order was paid.
type PaymentInfo struct {
	Method        PaymentMethod
	Status        PaymentStatus
	TransactionID opt.Opt[string]
	PaidAt        opt.Opt[time.Time]
}

// Address is a delivery address. Every field is optional.
type Address struct {
	Street  opt.Opt[string]
	City    opt.Opt[string]
	State   opt.Opt[string]
	ZipCode opt.Opt[string]
	Phone   opt.Opt[string]
}

// Order is a placed customer order.
type Order struct {
	ID                  string
	OwnerID             string
	Lines               []Line
	Total               decimal.Decimal
	Payment             PaymentInfo
	Status              Status
	Address             Address
	SpecialInstructions opt.Opt[string]
	EstimatedDelivery   time.Time
	DeliveredAt         opt.Opt[time.Time]
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// CartEntry is one unresolved cart item as submitted by a client: either a
// catalog reference with overrides or a fully custom pizza.
type CartEntry struct {
	CatalogRef opt.Opt[string]
	Quantity   opt.Opt[int]
	CustomName opt.Opt[string]
	Options    opt.Opt[Options]
	Price      opt.Opt[decimal.Decimal]
}

// Filter narrows an order listing.
type Filter struct {
	Status opt.Opt[Status]
}

// Repository defines persistence operations for orders. GetByID returns
// ErrNotFound when no order has the id.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, o *Order) error
	ListByOwner(ctx context.Context, ownerID string) ([]Order, error)
	List(ctx context.Context, filter Filter) ([]Order, error)
}

// Notifier delivers a notice on a best-effort basis.
type Notifier interface {
	Notify(ctx context.Context, msg notify.Message) error
}
