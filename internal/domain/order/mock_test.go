package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pizzeria/internal/domain/auth"
	"github.com/xenking/pizzeria/internal/domain/catalog"
	"github.com/xenking/pizzeria/internal/notify"
)

// --- Mock implementations ---

type mockCatalog struct {
	mu      sync.Mutex
	byID    map[string]*catalog.Pizza
	getErr  error
	lookups int
}

func newCatalog(pizzas ...catalog.Pizza) *mockCatalog {
	byID := make(map[string]*catalog.Pizza, len(pizzas))
	for i := range pizzas {
		byID[pizzas[i].ID] = &pizzas[i]
	}
	return &mockCatalog{byID: byID}
}

func (m *mockCatalog) List(_ context.Context) ([]catalog.Pizza, error) {
	return nil, nil
}

func (m *mockCatalog) GetByID(_ context.Context, id string) (*catalog.Pizza, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockCatalog) GetByIDs(_ context.Context, ids []string) ([]catalog.Pizza, error) {
	var out []catalog.Pizza
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

type mockOrderRepo struct {
	orders    map[string]Order
	created   int
	updated   int
	createErr error
	updateErr error
}

func newOrderRepo(orders ...Order) *mockOrderRepo {
	m := &mockOrderRepo{orders: make(map[string]Order)}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created++
	m.orders[o.ID] = *o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o.Lines = append([]Line(nil), o.Lines...)
	return &o, nil
}

func (m *mockOrderRepo) Update(_ context.Context, o *Order) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.orders[o.ID]; !ok {
		return ErrNotFound
	}
	m.updated++
	m.orders[o.ID] = *o
	return nil
}

func (m *mockOrderRepo) ListByOwner(_ context.Context, ownerID string) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		if o.OwnerID == ownerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) List(_ context.Context, filter Filter) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		if st, ok := filter.Status.Get(); ok && o.Status != st {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

type mockDirectory struct {
	users map[string]auth.User
}

func (m *mockDirectory) FindUser(_ context.Context, id string) (*auth.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return &u, nil
}

type mockNotifier struct {
	msgs  []notify.Message
	err   error
	panic bool
}

func (m *mockNotifier) Notify(_ context.Context, msg notify.Message) error {
	if m.panic {
		panic("notifier exploded")
	}
	m.msgs = append(m.msgs, msg)
	return m.err
}

// --- Helpers ---

var (
	testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	alice = auth.Actor{ID: "u-alice", Name: "Alice", Email: "alice@example.com"}
	bob   = auth.Actor{ID: "u-bob", Name: "Bob", Email: "bob@example.com"}
	admin = auth.Actor{ID: "u-admin", Name: "Admin", Email: "admin@example.com", IsAdmin: true}
)

func newTestPizza(id, name string, price decimal.Decimal) catalog.Pizza {
	return catalog.Pizza{
		ID:     id,
		Name:   name,
		Price:  price,
		Base:   "Thin",
		Sauce:  "Tomato",
		Cheese: "Mozzarella",
		Image:  "/images/" + id + ".jpg",
		Active: true,
	}
}

type fixture struct {
	svc      *Service
	catalog  *mockCatalog
	orders   *mockOrderRepo
	notifier *mockNotifier
	clock    *time.Time
}

func newFixture(t *testing.T, cfg Config, pizzas ...catalog.Pizza) *fixture {
	t.Helper()

	now := testNow
	f := &fixture{
		catalog:  newCatalog(pizzas...),
		orders:   newOrderRepo(),
		notifier: &mockNotifier{},
		clock:    &now,
	}
	dir := &mockDirectory{users: map[string]auth.User{
		alice.ID: {ID: alice.ID, Name: alice.Name, Email: alice.Email},
		bob.ID:   {ID: bob.ID, Name: bob.Name, Email: bob.Email},
	}}

	svc, err := NewService(cfg, f.catalog, f.orders, dir, f.notifier,
		WithClock(func() time.Time { return *f.clock }),
	)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

// placed stores an order owned by owner directly in the repository.
func (f *fixture) placed(id string, owner auth.Actor, status Status) Order {
	o := Order{
		ID:        id,
		OwnerID:   owner.ID,
		Status:    status,
		Total:     decimal.NewFromInt(100),
		Payment:   PaymentInfo{Method: MethodCash, Status: PaymentPending},
		CreatedAt: *f.clock,
		UpdatedAt: *f.clock,
	}
	f.orders.orders[id] = o
	return o
}

var errDB = errors.New("db unavailable")
