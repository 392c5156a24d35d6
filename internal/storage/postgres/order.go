package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/pizzeria/internal/domain/order"
	"github.com/xenking/pizzeria/pkg/opt"
)

const orderColumns = `id, owner_id, lines, total,
	payment_method, payment_status, transaction_id, paid_at,
	status, street, city, state, zip_code, phone, special_instructions,
	estimated_delivery, delivered_at, created_at, updated_at`

const (
	createOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	updateOrderSQL = `UPDATE orders SET
			lines = $2, total = $3,
			payment_method = $4, payment_status = $5, transaction_id = $6, paid_at = $7,
			status = $8, street = $9, city = $10, state = $11, zip_code = $12, phone = $13,
			special_instructions = $14, estimated_delivery = $15, delivered_at = $16,
			updated_at = $17
		WHERE id = $1`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersByOwnerSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE owner_id = $1 ORDER BY created_at DESC`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE ($1::text IS NULL OR status = $1) ORDER BY created_at DESC`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. The order lines are serialized to JSON for
// storage in the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	args, err := orderArgs(o)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, createOrderSQL, args...); err != nil {
		return errors.Wrapf(err, "create order %q", o.ID)
	}
	return nil
}

// Update overwrites the mutable fields of an existing order. It returns
// order.ErrNotFound when the order does not exist.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	lines, err := encodeLines(o.Lines)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, updateOrderSQL,
		o.ID, lines, o.Total,
		string(o.Payment.Method), string(o.Payment.Status), o.Payment.TransactionID.Ptr(), o.Payment.PaidAt.Ptr(),
		string(o.Status), o.Address.Street.Ptr(), o.Address.City.Ptr(), o.Address.State.Ptr(),
		o.Address.ZipCode.Ptr(), o.Address.Phone.Ptr(), o.SpecialInstructions.Ptr(),
		o.EstimatedDelivery, o.DeliveredAt.Ptr(), o.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "update order %q", o.ID)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// GetByID returns the order with the given id or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	return &o, nil
}

// ListByOwner returns the owner's orders, newest first.
func (r *OrderRepository) ListByOwner(ctx context.Context, ownerID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByOwnerSQL, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders by owner")
	}
	return pgx.CollectRows(rows, scanOrder)
}

// List returns all orders matching filter, newest first.
func (r *OrderRepository) List(ctx context.Context, filter order.Filter) ([]order.Order, error) {
	var status *string
	if st, ok := filter.Status.Get(); ok {
		s := string(st)
		status = &s
	}
	rows, err := r.pool.Query(ctx, listOrdersSQL, status)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return pgx.CollectRows(rows, scanOrder)
}

// lineRecord is the JSONB shape of an order line.
type lineRecord struct {
	Pizza    *string         `json:"pizza,omitempty"`
	Quantity int             `json:"quantity"`
	Name     string          `json:"name"`
	Options  optionsRecord   `json:"customOptions"`
	Price    decimal.Decimal `json:"price"`
}

type optionsRecord struct {
	Base    *string          `json:"base,omitempty"`
	Sauce   *string          `json:"sauce,omitempty"`
	Cheese  *string          `json:"cheese,omitempty"`
	Veggies []string         `json:"veggies,omitempty"`
	Meat    []string         `json:"meat,omitempty"`
	Price   *decimal.Decimal `json:"price,omitempty"`
}

func encodeLines(lines []order.Line) ([]byte, error) {
	recs := make([]lineRecord, len(lines))
	for i, l := range lines {
		recs[i] = lineRecord{
			Pizza:    l.CatalogRef.Ptr(),
			Quantity: l.Quantity,
			Name:     l.DisplayName,
			Options: optionsRecord{
				Base:    l.Options.Base.Ptr(),
				Sauce:   l.Options.Sauce.Ptr(),
				Cheese:  l.Options.Cheese.Ptr(),
				Veggies: l.Options.Veggies,
				Meat:    l.Options.Meat,
				Price:   l.Options.Price.Ptr(),
			},
			Price: l.UnitPrice,
		}
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return nil, errors.Wrap(err, "marshal order lines")
	}
	return data, nil
}

func decodeLines(data []byte) ([]order.Line, error) {
	var recs []lineRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, errors.Wrap(err, "unmarshal order lines")
	}
	lines := make([]order.Line, len(recs))
	for i, rec := range recs {
		lines[i] = order.Line{
			CatalogRef:  opt.FromPtr(rec.Pizza),
			Quantity:    rec.Quantity,
			DisplayName: rec.Name,
			Options: order.Options{
				Base:    opt.FromPtr(rec.Options.Base),
				Sauce:   opt.FromPtr(rec.Options.Sauce),
				Cheese:  opt.FromPtr(rec.Options.Cheese),
				Veggies: rec.Options.Veggies,
				Meat:    rec.Options.Meat,
				Price:   opt.FromPtr(rec.Options.Price),
			},
			UnitPrice: rec.Price,
		}
	}
	return lines, nil
}

// orderArgs returns the column values in orderColumns order.
func orderArgs(o *order.Order) ([]any, error) {
	lines, err := encodeLines(o.Lines)
	if err != nil {
		return nil, err
	}
	return []any{
		o.ID, o.OwnerID, lines, o.Total,
		string(o.Payment.Method), string(o.Payment.Status), o.Payment.TransactionID.Ptr(), o.Payment.PaidAt.Ptr(),
		string(o.Status), o.Address.Street.Ptr(), o.Address.City.Ptr(), o.Address.State.Ptr(),
		o.Address.ZipCode.Ptr(), o.Address.Phone.Ptr(), o.SpecialInstructions.Ptr(),
		o.EstimatedDelivery, o.DeliveredAt.Ptr(), o.CreatedAt, o.UpdatedAt,
	}, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o              order.Order
		lines          []byte
		method, pay    string
		status         string
		txID, street   *string
		city, state    *string
		zip, phone     *string
		instructions   *string
		paidAt, doneAt *time.Time
	)
	if err := row.Scan(
		&o.ID, &o.OwnerID, &lines, &o.Total,
		&method, &pay, &txID, &paidAt,
		&status, &street, &city, &state, &zip, &phone, &instructions,
		&o.EstimatedDelivery, &doneAt, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return o, err
	}

	decoded, err := decodeLines(lines)
	if err != nil {
		return o, err
	}
	o.Lines = decoded
	o.Payment = order.PaymentInfo{
		Method:        order.PaymentMethod(method),
		Status:        order.PaymentStatus(pay),
		TransactionID: opt.FromPtr(txID),
		PaidAt:        opt.FromPtr(paidAt),
	}
	o.Status = order.Status(status)
	o.Address = order.Address{
		Street:  opt.FromPtr(street),
		City:    opt.FromPtr(city),
		State:   opt.FromPtr(state),
		ZipCode: opt.FromPtr(zip),
		Phone:   opt.FromPtr(phone),
	}
	o.SpecialInstructions = opt.FromPtr(instructions)
	o.DeliveredAt = opt.FromPtr(doneAt)
	return o, nil
}
