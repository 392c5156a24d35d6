package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/pizzeria/internal/domain/catalog"
)

// maxConcurrentLookups bounds catalog reads issued for a single cart.
const maxConcurrentLookups = 8

// Normalizer resolves cart entries into order lines, consulting the catalog
// for entries that reference a catalog pizza.
type Normalizer struct {
	pizzas catalog.Repository
}

// NewNormalizer creates a Normalizer backed by the given catalog.
func NewNormalizer(pizzas catalog.Repository) *Normalizer {
	return &Normalizer{pizzas: pizzas}
}

// Normalize resolves a single cart entry.
//
// A reference to a missing pizza degrades to a custom line when the entry
// carries its own options; otherwise it fails with *NotFoundError.
func (n *Normalizer) Normalize(ctx context.Context, e CartEntry) (Line, error) {
	ref, ok := e.CatalogRef.Get()
	if !ok || ref == "" {
		return customLine(e), nil
	}

	p, err := n.pizzas.GetByID(ctx, ref)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		if e.Options.IsSet() {
			return customLine(e), nil
		}
		return Line{}, &NotFoundError{Resource: ResourcePizza, ID: ref}
	case err != nil:
		return Line{}, errors.Wrapf(err, "lookup pizza %s", ref)
	}

	return Line{
		CatalogRef:  e.CatalogRef,
		Quantity:    quantity(e),
		DisplayName: name(e, p.Name),
		Options:     e.Options.Or(Options{}),
		UnitPrice:   price(e, p.Price),
		Pizza:       p,
	}, nil
}

// NormalizeAll resolves every entry, running catalog lookups concurrently.
// Lines keep the order of entries. The first failing entry aborts the rest.
func (n *Normalizer) NormalizeAll(ctx context.Context, entries []CartEntry) ([]Line, error) {
	lines := make([]Line, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for i, e := range entries {
		if !e.CatalogRef.IsSet() {
			lines[i] = customLine(e)
			continue
		}
		g.Go(func() error {
			line, err := n.Normalize(ctx, e)
			if err != nil {
				return err
			}
			lines[i] = line
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lines, nil
}

func customLine(e CartEntry) Line {
	return Line{
		Quantity:    quantity(e),
		DisplayName: name(e, DefaultLineName),
		Options:     e.Options.Or(Options{}),
		UnitPrice:   price(e, zero),
	}
}

func quantity(e CartEntry) int {
	q := e.Quantity.Or(1)
	if q < 1 {
		return 1
	}
	return q
}

func name(e CartEntry, fallback string) string {
	if n, ok := e.CustomName.Get(); ok && n != "" {
		return n
	}
	return fallback
}

// price applies the client price → catalog price → 0 precedence. Negative
// prices are clamped to zero.
func price(e CartEntry, fallback decimal.Decimal) decimal.Decimal {
	p := e.Price.Or(fallback)
	if p.IsNegative() {
		return zero
	}
	return p
}
