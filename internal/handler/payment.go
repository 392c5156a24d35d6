package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DemoPayment runs a demo charge for {"amount": ...}. Nothing is billed.
func (h *Handler) DemoPayment(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	amount, err := decodeDecimalField(d, "amount")
	if err != nil {
		badRequest(w, err)
		return
	}
	if !amount.IsSet() {
		writeMessage(w, http.StatusBadRequest, "Amount is required")
		return
	}
	if amount.Value.LessThan(decimal.Zero) {
		writeMessage(w, http.StatusBadRequest, "Amount must not be negative")
		return
	}

	receipt, err := h.payments.Charge(r.Context(), amount.Value)
	if err != nil {
		writeError(w, r, err)
		return
	}
	zctx.From(r.Context()).Info("Demo payment processed",
		zap.String("payment_id", receipt.TransactionID),
		zap.Stringer("amount", receipt.Amount),
	)

	e := h.encoder()
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(true)
	e.FieldStart("message")
	e.Str("Payment successful (demo)")
	e.FieldStart("paymentId")
	e.Str(receipt.TransactionID)
	e.FieldStart("amount")
	e.decimal(receipt.Amount)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e.Bytes())
}
