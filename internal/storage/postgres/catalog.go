package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/pizzeria/internal/domain/catalog"
)

const pizzaColumns = `id, name, description, base, sauce, cheese, veggies, meat, price, image, active`

const (
	listPizzasSQL = `SELECT ` + pizzaColumns + ` FROM pizzas WHERE active ORDER BY name, id`

	getPizzaByIDSQL = `SELECT ` + pizzaColumns + ` FROM pizzas WHERE id = $1`

	getPizzasByIDsSQL = `SELECT ` + pizzaColumns + ` FROM pizzas WHERE id = ANY($1)`

	upsertPizzaSQL = `INSERT INTO pizzas (` + pizzaColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			base = EXCLUDED.base,
			sauce = EXCLUDED.sauce,
			cheese = EXCLUDED.cheese,
			veggies = EXCLUDED.veggies,
			meat = EXCLUDED.meat,
			price = EXCLUDED.price,
			image = EXCLUDED.image,
			active = EXCLUDED.active`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// List returns the active pizzas ordered by name.
func (r *CatalogRepository) List(ctx context.Context) ([]catalog.Pizza, error) {
	rows, err := r.pool.Query(ctx, listPizzasSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list pizzas")
	}
	return pgx.CollectRows(rows, scanPizza)
}

// GetByID returns a single pizza, active or not. It returns
// catalog.ErrNotFound when no pizza has the id.
func (r *CatalogRepository) GetByID(ctx context.Context, id string) (*catalog.Pizza, error) {
	rows, err := r.pool.Query(ctx, getPizzaByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get pizza %q", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanPizza)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get pizza %q", id)
	}
	return &p, nil
}

// GetByIDs returns the pizzas matching any of ids. Unknown ids are skipped.
func (r *CatalogRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Pizza, error) {
	rows, err := r.pool.Query(ctx, getPizzasByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get pizzas by ids")
	}
	return pgx.CollectRows(rows, scanPizza)
}

// Upsert inserts the pizzas or replaces existing ones with the same id.
func (r *CatalogRepository) Upsert(ctx context.Context, pizzas []catalog.Pizza) error {
	batch := &pgx.Batch{}
	for _, p := range pizzas {
		batch.Queue(upsertPizzaSQL,
			p.ID, p.Name, p.Description, p.Base, p.Sauce, p.Cheese,
			nonNil(p.Veggies), nonNil(p.Meat), p.Price, p.Image, p.Active,
		)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrap(err, "upsert pizzas")
	}
	return nil
}

func scanPizza(row pgx.CollectableRow) (catalog.Pizza, error) {
	var p catalog.Pizza
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Base, &p.Sauce, &p.Cheese,
		&p.Veggies, &p.Meat, &p.Price, &p.Image, &p.Active,
	)
	return p, err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
