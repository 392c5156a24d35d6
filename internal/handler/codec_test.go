package handler

import (
	"testing"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pizzeria/internal/domain/order"
)

func TestDecodePlaceOrder(t *testing.T) {
	b, err := decodePlaceOrder(jx.DecodeStr(`{
		"pizzas": [
			{"pizzaId": "p1", "quantity": 2},
			{"customName": "Mine", "selectedOptions": {"base": "Thin", "veggies": ["Onion"], "price": "180"}}
		],
		"totalPrice": 598,
		"deliveryAddress": {"city": "Pune"},
		"unknown": {"nested": [1, 2]}
	}`))
	require.NoError(t, err)

	require.Len(t, b.Entries, 2)
	assert.Equal(t, "p1", b.Entries[0].CatalogRef.Or(""))
	assert.Equal(t, 2, b.Entries[0].Quantity.Or(0))
	opts, ok := b.Entries[1].Options.Get()
	require.True(t, ok)
	assert.Equal(t, "Thin", opts.Base.Or(""))
	assert.Equal(t, []string{"Onion"}, opts.Veggies)
	assert.True(t, decimal.NewFromInt(180).Equal(opts.Price.Or(decimal.Zero)))
	assert.True(t, decimal.NewFromInt(598).Equal(b.Total.Or(decimal.Zero)))
	assert.Equal(t, "Pune", b.Address.City.Or(""))
}

func TestDecodePlaceOrder_FieldError(t *testing.T) {
	_, err := decodePlaceOrder(jx.DecodeStr(`{"pizzas": [{"quantity": "two"}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quantity")
}

func TestDecodeDecimalField(t *testing.T) {
	for _, tt := range []struct {
		name  string
		input string
		want  string
		set   bool
	}{
		{"number", `{"amount": 10}`, "10", true},
		{"string", `{"amount": "12.50"}`, "12.5", true},
		{"null", `{"amount": null}`, "0", false},
		{"absent", `{"other": 1}`, "0", false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			v, err := decodeDecimalField(jx.DecodeStr(tt.input), "amount")
			require.NoError(t, err)
			assert.Equal(t, tt.set, v.IsSet())
			assert.Equal(t, tt.want, v.Or(decimal.Zero).String())
		})
	}
}

func TestDecodePaymentPatch(t *testing.T) {
	t.Run("fields", func(t *testing.T) {
		p, err := decodePaymentPatch(jx.DecodeStr(`{"paymentStatus": "paid", "method": "card", "transactionId": "tx-1"}`))
		require.NoError(t, err)
		assert.Equal(t, order.PaymentPaid, p.Status.Or(""))
		assert.Equal(t, order.MethodCard, p.Method.Or(""))
		assert.Equal(t, "tx-1", p.TransactionID.Or(""))
	})

	t.Run("empty strings are absent", func(t *testing.T) {
		p, err := decodePaymentPatch(jx.DecodeStr(`{"paymentStatus": "", "method": ""}`))
		require.NoError(t, err)
		assert.False(t, p.Status.IsSet())
		assert.False(t, p.Method.IsSet())
	})
}
