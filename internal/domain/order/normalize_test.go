package order

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pizzeria/pkg/opt"
)

func TestNormalize(t *testing.T) {
	margherita := newTestPizza("p1", "Margherita", decimal.NewFromInt(299))
	thin := Options{Base: opt.New("Thin")}

	tests := []struct {
		name      string
		entry     CartEntry
		wantRef   bool
		wantName  string
		wantPrice decimal.Decimal
		wantQty   int
		wantErrID string
	}{
		{
			name:      "custom line defaults",
			entry:     CartEntry{},
			wantName:  DefaultLineName,
			wantPrice: decimal.Zero,
			wantQty:   1,
		},
		{
			name: "custom line keeps client values",
			entry: CartEntry{
				CustomName: opt.New("Veggie Feast"),
				Options:    opt.New(thin),
				Price:      opt.New(decimal.NewFromInt(350)),
				Quantity:   opt.New(3),
			},
			wantName:  "Veggie Feast",
			wantPrice: decimal.NewFromInt(350),
			wantQty:   3,
		},
		{
			name:      "catalog line takes catalog name and price",
			entry:     CartEntry{CatalogRef: opt.New("p1"), Quantity: opt.New(2)},
			wantRef:   true,
			wantName:  "Margherita",
			wantPrice: decimal.NewFromInt(299),
			wantQty:   2,
		},
		{
			name: "client price and name override catalog",
			entry: CartEntry{
				CatalogRef: opt.New("p1"),
				CustomName: opt.New("Extra Cheese Margherita"),
				Price:      opt.New(decimal.NewFromInt(349)),
			},
			wantRef:   true,
			wantName:  "Extra Cheese Margherita",
			wantPrice: decimal.NewFromInt(349),
			wantQty:   1,
		},
		{
			name: "missing pizza with options degrades to custom",
			entry: CartEntry{
				CatalogRef: opt.New("missing-id"),
				Options:    opt.New(thin),
				Price:      opt.New(decimal.NewFromInt(250)),
				Quantity:   opt.New(1),
			},
			wantName:  DefaultLineName,
			wantPrice: decimal.NewFromInt(250),
			wantQty:   1,
		},
		{
			name:      "missing pizza without options fails",
			entry:     CartEntry{CatalogRef: opt.New("missing-id"), Quantity: opt.New(1)},
			wantErrID: "missing-id",
		},
		{
			name:      "non-positive quantity becomes one",
			entry:     CartEntry{Quantity: opt.New(0)},
			wantName:  DefaultLineName,
			wantPrice: decimal.Zero,
			wantQty:   1,
		},
		{
			name:      "empty custom name falls back",
			entry:     CartEntry{CatalogRef: opt.New("p1"), CustomName: opt.New("")},
			wantRef:   true,
			wantName:  "Margherita",
			wantPrice: decimal.NewFromInt(299),
			wantQty:   1,
		},
		{
			name:      "negative price clamps to zero",
			entry:     CartEntry{Price: opt.New(decimal.NewFromInt(-5))},
			wantName:  DefaultLineName,
			wantPrice: decimal.Zero,
			wantQty:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNormalizer(newCatalog(margherita))

			line, err := n.Normalize(context.Background(), tt.entry)
			if tt.wantErrID != "" {
				var nfErr *NotFoundError
				require.ErrorAs(t, err, &nfErr)
				assert.Equal(t, ResourcePizza, nfErr.Resource)
				assert.Equal(t, tt.wantErrID, nfErr.ID)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, tt.wantRef, line.CatalogRef.IsSet())
			assert.Equal(t, tt.wantName, line.DisplayName)
			assert.True(t, tt.wantPrice.Equal(line.UnitPrice), "price: got %s, want %s", line.UnitPrice, tt.wantPrice)
			assert.Equal(t, tt.wantQty, line.Quantity)
			if tt.wantRef {
				require.NotNil(t, line.Pizza)
				assert.Equal(t, "p1", line.Pizza.ID)
			} else {
				assert.Nil(t, line.Pizza)
			}
		})
	}
}

func TestNormalize_LookupError(t *testing.T) {
	c := newCatalog()
	c.getErr = errDB
	n := NewNormalizer(c)

	_, err := n.Normalize(context.Background(), CartEntry{
		CatalogRef: opt.New("p1"),
		Options:    opt.New(Options{}),
	})
	require.ErrorIs(t, err, errDB)
}

func TestNormalizeAll_KeepsOrder(t *testing.T) {
	c := newCatalog(
		newTestPizza("p1", "Margherita", decimal.NewFromInt(299)),
		newTestPizza("p2", "Pepperoni", decimal.NewFromInt(399)),
	)
	n := NewNormalizer(c)

	lines, err := n.NormalizeAll(context.Background(), []CartEntry{
		{CatalogRef: opt.New("p2")},
		{CustomName: opt.New("Mine")},
		{CatalogRef: opt.New("p1")},
	})
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "Pepperoni", lines[0].DisplayName)
	assert.Equal(t, "Mine", lines[1].DisplayName)
	assert.Equal(t, "Margherita", lines[2].DisplayName)
	assert.Equal(t, 2, c.lookups)
}

func TestNormalizeAll_AbortsOnMissingPizza(t *testing.T) {
	n := NewNormalizer(newCatalog(newTestPizza("p1", "Margherita", decimal.NewFromInt(299))))

	_, err := n.NormalizeAll(context.Background(), []CartEntry{
		{CatalogRef: opt.New("p1")},
		{CatalogRef: opt.New("gone")},
	})

	var nfErr *NotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "gone", nfErr.ID)
}
