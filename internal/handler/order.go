package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/pizzeria/internal/domain/order"
	"github.com/xenking/pizzeria/pkg/opt"
)

// PlaceOrder creates an order for the authenticated actor from the submitted
// cart and responds 201 with the stored order.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	body, err := decodePlaceOrder(d)
	if err != nil {
		badRequest(w, err)
		return
	}

	o, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		Owner:               actor(r),
		Entries:             body.Entries,
		Total:               body.Total,
		Payment:             body.Payment,
		Address:             body.Address,
		SpecialInstructions: body.SpecialInstructions,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeOrder(w, http.StatusCreated, "Order placed successfully", o)
}

// MyOrders lists the actor's own orders, newest first.
func (h *Handler) MyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListForUser(r.Context(), actor(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeOrders(w, orders)
}

// ListOrders lists every order for administrators, optionally filtered by
// the status query parameter.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	var filter order.Filter
	if s := r.URL.Query().Get("status"); s != "" {
		filter.Status = opt.New(order.Status(s))
	}

	orders, err := h.orders.ListAll(r.Context(), actor(r), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeOrders(w, orders)
}

// GetOrder returns one order visible to the actor.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "orderId"), actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeOrder(w, http.StatusOK, "", o)
}

// UpdateStatus moves an order to the status in {"status": ...}.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	status, err := decodeStringField(d, "status")
	if err != nil {
		badRequest(w, err)
		return
	}

	o, err := h.orders.SetStatus(r.Context(), chi.URLParam(r, "orderId"), order.Status(status.Value), actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeOrder(w, http.StatusOK, "Order status updated successfully", o)
}

// CancelOrder cancels one of the actor's orders.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Cancel(r.Context(), chi.URLParam(r, "orderId"), actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeOrder(w, http.StatusOK, "Order cancelled successfully", o)
}

// UpdatePayment applies a partial payment update.
func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	patch, err := decodePaymentPatch(d)
	if err != nil {
		badRequest(w, err)
		return
	}

	o, err := h.orders.SetPaymentStatus(r.Context(), chi.URLParam(r, "orderId"), patch, actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeOrder(w, http.StatusOK, "Payment status updated successfully", o)
}

// writeOrder responds with {"message"?, "order"}. An empty message is omitted.
func (h *Handler) writeOrder(w http.ResponseWriter, code int, msg string, o *order.Order) {
	e := h.encoder()
	e.ObjStart()
	if msg != "" {
		e.FieldStart("message")
		e.Str(msg)
	}
	e.FieldStart("order")
	e.order(o)
	e.ObjEnd()
	writeJSON(w, code, e.Bytes())
}

func (h *Handler) writeOrders(w http.ResponseWriter, orders []order.Order) {
	e := h.encoder()
	e.ObjStart()
	e.FieldStart("orders")
	e.orders(orders)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e.Bytes())
}
