package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested pizza does not exist.
var ErrNotFound = errors.New("pizza not found")

// Pizza is an admin-managed catalog pizza with a fixed name, price and image.
type Pizza struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Base        string          `json:"base"`
	Sauce       string          `json:"sauce"`
	Cheese      string          `json:"cheese"`
	Veggies     []string        `json:"veggies"`
	Meat        []string        `json:"meat"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Active      bool            `json:"active"`
}

// Repository defines read operations for the pizza catalog.
type Repository interface {
	List(ctx context.Context) ([]Pizza, error)
	GetByID(ctx context.Context, id string) (*Pizza, error)
	GetByIDs(ctx context.Context, ids []string) ([]Pizza, error)
}
