package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/pizzeria/internal/domain/order"
	"github.com/xenking/pizzeria/internal/domain/payment"
)

// writeError maps a domain error to its HTTP status. Unknown errors are
// logged and reported as 500 without details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound   *order.NotFoundError
		status     *order.InvalidStatusError
		value      *order.InvalidValueError
		transition *order.InvalidTransitionError
		mismatch   *order.TotalMismatchError
	)
	switch {
	case errors.Is(err, order.ErrEmptyCart):
		writeMessage(w, http.StatusBadRequest, "No pizzas in order")
	case errors.As(err, &notFound):
		code := http.StatusNotFound
		if notFound.Resource == order.ResourcePizza {
			code = http.StatusUnprocessableEntity
		}
		writeMessage(w, code, notFound.Error())
	case errors.Is(err, order.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "Not authorized")
	case errors.As(err, &status):
		writeMessage(w, http.StatusBadRequest, status.Error())
	case errors.As(err, &value):
		writeMessage(w, http.StatusBadRequest, value.Error())
	case errors.As(err, &transition):
		writeMessage(w, http.StatusConflict, transition.Error())
	case errors.As(err, &mismatch):
		writeMessage(w, http.StatusUnprocessableEntity, mismatch.Error())
	case errors.Is(err, payment.ErrDeclined):
		writeMessage(w, http.StatusPaymentRequired, "Payment declined (demo)")
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

// badRequest reports a malformed request body.
func badRequest(w http.ResponseWriter, err error) {
	writeMessage(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
}
