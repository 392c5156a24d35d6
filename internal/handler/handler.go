package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/pizzeria/internal/domain/auth"
	"github.com/xenking/pizzeria/internal/domain/catalog"
	"github.com/xenking/pizzeria/internal/domain/order"
	"github.com/xenking/pizzeria/internal/domain/payment"
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in pizza responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// OrderService is the order behaviour the HTTP layer depends on.
type OrderService interface {
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.Order, error)
	Get(ctx context.Context, id string, actor auth.Actor) (*order.Order, error)
	ListForUser(ctx context.Context, ownerID string) ([]order.Order, error)
	ListAll(ctx context.Context, actor auth.Actor, filter order.Filter) ([]order.Order, error)
	SetStatus(ctx context.Context, id string, status order.Status, actor auth.Actor) (*order.Order, error)
	Cancel(ctx context.Context, id string, actor auth.Actor) (*order.Order, error)
	SetPaymentStatus(ctx context.Context, id string, patch order.PaymentPatch, actor auth.Actor) (*order.Order, error)
}

// Charger processes a payment.
type Charger interface {
	Charge(ctx context.Context, amount decimal.Decimal) (*payment.Receipt, error)
}

var (
	_ OrderService = (*order.Service)(nil)
	_ Charger      = (*payment.Demo)(nil)
)

// Handler serves the pizzeria HTTP API, delegating business logic to the
// order service and the catalog repository.
type Handler struct {
	pizzas       catalog.Repository
	orders       OrderService
	payments     Charger
	imageBaseURL string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	pizzas catalog.Repository,
	orders OrderService,
	payments Charger,
) *Handler {
	return &Handler{
		pizzas:       pizzas,
		orders:       orders,
		payments:     payments,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Router returns the API routes. Order and payment routes require an
// authenticated actor and are wrapped with authn.
func (h *Handler) Router(authn func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Get("/pizza", h.ListPizzas)
		r.Get("/pizza/{pizzaId}", h.GetPizza)

		r.Group(func(r chi.Router) {
			r.Use(authn)

			r.Post("/orders", h.PlaceOrder)
			r.Get("/orders", h.ListOrders)
			r.Get("/orders/my-orders", h.MyOrders)
			r.Get("/orders/{orderId}", h.GetOrder)
			r.Patch("/orders/{orderId}/status", h.UpdateStatus)
			r.Patch("/orders/{orderId}/cancel", h.CancelOrder)
			r.Patch("/orders/{orderId}/payment", h.UpdatePayment)

			r.Post("/payment/demo", h.DemoPayment)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// actor returns the authenticated caller. Routes behind authn always have one.
func actor(r *http.Request) auth.Actor {
	a, _ := auth.FromContext(r.Context())
	return a
}
