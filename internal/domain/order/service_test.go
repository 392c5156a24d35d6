package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pizzeria/pkg/opt"
)

const operator = "orders@pizzeria.test"

func TestPlaceOrder_CatalogAndCustomLines(t *testing.T) {
	f := newFixture(t, Config{OperatorEmail: operator},
		newTestPizza("p1", "Margherita", decimal.RequireFromString("299.50")),
	)

	o, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Owner: alice,
		Entries: []CartEntry{
			{CatalogRef: opt.New("p1"), Quantity: opt.New(2)},
			{
				CustomName: opt.New("Build Your Own"),
				Options:    opt.New(Options{Base: opt.New("Thin"), Veggies: []string{"Onion"}}),
				Price:      opt.New(decimal.NewFromInt(180)),
			},
		},
		Address: Address{Street: opt.New("1 Main St"), City: opt.New("Pune")},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, alice.ID, o.OwnerID)
	assert.Equal(t, StatusPlaced, o.Status)
	assert.Equal(t, MethodCash, o.Payment.Method)
	assert.Equal(t, PaymentPending, o.Payment.Status)
	assert.False(t, o.Payment.PaidAt.IsSet())
	assert.Equal(t, testNow, o.CreatedAt)
	assert.Equal(t, testNow.Add(DefaultDeliveryEstimate), o.EstimatedDelivery)
	assert.True(t, decimal.NewFromInt(779).Equal(o.Total), "total: %s", o.Total)

	require.Len(t, o.Lines, 2)
	assert.Equal(t, "Margherita", o.Lines[0].DisplayName)
	assert.Equal(t, "Build Your Own", o.Lines[1].DisplayName)
	assert.False(t, o.Lines[1].CatalogRef.IsSet())

	stored, ok := f.orders.orders[o.ID]
	require.True(t, ok)
	assert.Equal(t, StatusPlaced, stored.Status)

	require.Len(t, f.notifier.msgs, 1)
	msg := f.notifier.msgs[0]
	assert.Equal(t, operator, msg.To)
	assert.Equal(t, "New Order Placed", msg.Subject)
	assert.Equal(t, "New order #"+o.ID+" placed by Alice. Total: ₹779.00", msg.Body)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture(t, Config{OperatorEmail: operator})

	_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{Owner: alice})
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, f.orders.created)
	assert.Empty(t, f.notifier.msgs)
}

func TestPlaceOrder_MissingPizzaPersistsNothing(t *testing.T) {
	f := newFixture(t, Config{OperatorEmail: operator},
		newTestPizza("p1", "Margherita", decimal.NewFromInt(299)),
	)

	_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Owner: alice,
		Entries: []CartEntry{
			{CatalogRef: opt.New("p1")},
			{CatalogRef: opt.New("does-not-exist"), Quantity: opt.New(1)},
		},
	})

	var nfErr *NotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, ResourcePizza, nfErr.Resource)
	assert.Equal(t, "does-not-exist", nfErr.ID)
	assert.Zero(t, f.orders.created)
	assert.Empty(t, f.notifier.msgs)
}

func TestPlaceOrder_MissingPizzaWithOptionsBecomesCustom(t *testing.T) {
	f := newFixture(t, Config{})

	o, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Owner: alice,
		Entries: []CartEntry{{
			CatalogRef: opt.New("stale-id"),
			Options:    opt.New(Options{Base: opt.New("Thin")}),
			Price:      opt.New(decimal.NewFromInt(250)),
		}},
	})
	require.NoError(t, err)
	require.Len(t, o.Lines, 1)
	assert.False(t, o.Lines[0].CatalogRef.IsSet())
	assert.Equal(t, DefaultLineName, o.Lines[0].DisplayName)
	assert.True(t, decimal.NewFromInt(250).Equal(o.Total))
}

func TestPlaceOrder_SuppliedTotal(t *testing.T) {
	pizza := newTestPizza("p1", "Margherita", decimal.NewFromInt(300))
	entries := []CartEntry{{CatalogRef: opt.New("p1"), Quantity: opt.New(2)}}

	t.Run("trusted by default", func(t *testing.T) {
		f := newFixture(t, Config{}, pizza)

		o, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
			Owner:   alice,
			Entries: entries,
			Total:   opt.New(decimal.NewFromInt(550)),
		})
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(550).Equal(o.Total), "total: %s", o.Total)
	})

	t.Run("rejected when configured", func(t *testing.T) {
		f := newFixture(t, Config{RejectTotalMismatch: true}, pizza)

		_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
			Owner:   alice,
			Entries: entries,
			Total:   opt.New(decimal.NewFromInt(550)),
		})
		var mErr *TotalMismatchError
		require.ErrorAs(t, err, &mErr)
		assert.True(t, decimal.NewFromInt(600).Equal(mErr.Computed))
		assert.Zero(t, f.orders.created)
	})

	t.Run("matching total accepted when rejecting", func(t *testing.T) {
		f := newFixture(t, Config{RejectTotalMismatch: true}, pizza)

		o, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
			Owner:   alice,
			Entries: entries,
			Total:   opt.New(decimal.RequireFromString("600.00")),
		})
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(600).Equal(o.Total))
	})

	t.Run("negative total rejected", func(t *testing.T) {
		f := newFixture(t, Config{}, pizza)

		_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
			Owner:   alice,
			Entries: entries,
			Total:   opt.New(decimal.NewFromInt(-1)),
		})
		var vErr *InvalidValueError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "total", vErr.Field)
	})
}

func TestPlaceOrder_Payment(t *testing.T) {
	t.Run("paid stamps paid at", func(t *testing.T) {
		f := newFixture(t, Config{})

		o, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
			Owner:   alice,
			Entries: []CartEntry{{Price: opt.New(decimal.NewFromInt(100))}},
			Payment: PaymentRequest{
				Method:        opt.New(MethodUPI),
				Status:        opt.New(PaymentPaid),
				TransactionID: opt.New("tx-1"),
			},
		})
		require.NoError(t, err)
		assert.Equal(t, MethodUPI, o.Payment.Method)
		paidAt, ok := o.Payment.PaidAt.Get()
		require.True(t, ok)
		assert.Equal(t, testNow, paidAt)
		assert.Equal(t, "tx-1", o.Payment.TransactionID.Or(""))
	})

	t.Run("unknown method rejected", func(t *testing.T) {
		f := newFixture(t, Config{})

		_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
			Owner:   alice,
			Entries: []CartEntry{{}},
			Payment: PaymentRequest{Method: opt.New(PaymentMethod("bitcoin"))},
		})
		var vErr *InvalidValueError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "bitcoin", vErr.Value)
		assert.Zero(t, f.orders.created)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		f := newFixture(t, Config{})

		_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
			Owner:   alice,
			Entries: []CartEntry{{}},
			Payment: PaymentRequest{Status: opt.New(PaymentStatus("maybe"))},
		})
		var vErr *InvalidValueError
		require.ErrorAs(t, err, &vErr)
	})
}

func TestPlaceOrder_RepositoryFailure(t *testing.T) {
	f := newFixture(t, Config{OperatorEmail: operator})
	f.orders.createErr = errDB

	_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Owner:   alice,
		Entries: []CartEntry{{}},
	})
	require.ErrorIs(t, err, errDB)
	assert.Empty(t, f.notifier.msgs)
}

func TestPlaceOrder_NotifierFailureDoesNotFail(t *testing.T) {
	t.Run("error", func(t *testing.T) {
		f := newFixture(t, Config{OperatorEmail: operator})
		f.notifier.err = errors.New("mail down")

		o, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
			Owner:   alice,
			Entries: []CartEntry{{}},
		})
		require.NoError(t, err)
		assert.Contains(t, f.orders.orders, o.ID)
	})

	t.Run("panic", func(t *testing.T) {
		f := newFixture(t, Config{OperatorEmail: operator})
		f.notifier.panic = true

		o, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
			Owner:   alice,
			Entries: []CartEntry{{}},
		})
		require.NoError(t, err)
		assert.Contains(t, f.orders.orders, o.ID)
	})
}

func TestPlaceOrder_NoOperatorSkipsNotice(t *testing.T) {
	f := newFixture(t, Config{})

	_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Owner:   alice,
		Entries: []CartEntry{{}},
	})
	require.NoError(t, err)
	assert.Empty(t, f.notifier.msgs)
}

func TestPlaceOrder_CustomDeliveryEstimate(t *testing.T) {
	f := newFixture(t, Config{DeliveryEstimate: 30 * time.Minute})

	o, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Owner:   alice,
		Entries: []CartEntry{{}},
	})
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(30*time.Minute), o.EstimatedDelivery)
}
