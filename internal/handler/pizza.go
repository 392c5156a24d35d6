package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/xenking/pizzeria/internal/domain/catalog"
)

// ListPizzas returns the active menu: {"pizzas": [...]}.
func (h *Handler) ListPizzas(w http.ResponseWriter, r *http.Request) {
	pizzas, err := h.pizzas.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	e := h.encoder()
	e.ObjStart()
	e.FieldStart("pizzas")
	e.ArrStart()
	for _, p := range pizzas {
		e.pizza(p)
	}
	e.ArrEnd()
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e.Bytes())
}

// GetPizza returns a single pizza: {"pizza": {...}}.
func (h *Handler) GetPizza(w http.ResponseWriter, r *http.Request) {
	p, err := h.pizzas.GetByID(r.Context(), chi.URLParam(r, "pizzaId"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Pizza not found")
			return
		}
		writeError(w, r, err)
		return
	}

	e := h.encoder()
	e.ObjStart()
	e.FieldStart("pizza")
	e.pizza(*p)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e.Bytes())
}

func (h *Handler) encoder() *encoder {
	return &encoder{imageBaseURL: h.imageBaseURL}
}
