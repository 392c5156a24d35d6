package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/pizzeria/internal/domain/catalog"
	"github.com/xenking/pizzeria/internal/domain/order"
	"github.com/xenking/pizzeria/pkg/opt"
)

const maxBodySize = 1 << 20

// readBody reads a bounded JSON request body.
func readBody(r *http.Request) (*jx.Decoder, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if len(data) == 0 {
		data = []byte("{}")
	}
	return jx.DecodeBytes(data), nil
}

// placeOrderBody is the decoded POST /api/orders payload.
type placeOrderBody struct {
	Entries             []order.CartEntry
	Total               opt.Opt[decimal.Decimal]
	Payment             order.PaymentRequest
	Address             order.Address
	SpecialInstructions opt.Opt[string]
}

func decodePlaceOrder(d *jx.Decoder) (placeOrderBody, error) {
	var b placeOrderBody
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "pizzas":
			if d.Next() == jx.Null {
				return d.Null()
			}
			return d.Arr(func(d *jx.Decoder) error {
				e, err := decodeCartEntry(d)
				if err != nil {
					return err
				}
				b.Entries = append(b.Entries, e)
				return nil
			})
		case "totalPrice":
			b.Total, err = decodeOptDecimal(d)
		case "paymentInfo":
			b.Payment, err = decodePaymentRequest(d)
		case "deliveryAddress":
			b.Address, err = decodeAddress(d)
		case "specialInstructions":
			b.SpecialInstructions, err = decodeOptString(d)
		default:
			err = d.Skip()
		}
		return wrapField(err, key)
	})
	return b, err
}

func decodeCartEntry(d *jx.Decoder) (order.CartEntry, error) {
	var e order.CartEntry
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "pizzaId":
			e.CatalogRef, err = decodeOptString(d)
		case "quantity":
			e.Quantity, err = decodeOptInt(d)
		case "customName":
			e.CustomName, err = decodeOptString(d)
		case "selectedOptions":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var o order.Options
			o, err = decodeOptions(d)
			e.Options = opt.New(o)
		case "price":
			e.Price, err = decodeOptDecimal(d)
		default:
			err = d.Skip()
		}
		return wrapField(err, key)
	})
	return e, err
}

func decodeOptions(d *jx.Decoder) (order.Options, error) {
	var o order.Options
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "base":
			o.Base, err = decodeOptString(d)
		case "sauce":
			o.Sauce, err = decodeOptString(d)
		case "cheese":
			o.Cheese, err = decodeOptString(d)
		case "veggies":
			o.Veggies, err = decodeStrings(d)
		case "meat":
			o.Meat, err = decodeStrings(d)
		case "price":
			o.Price, err = decodeOptDecimal(d)
		default:
			err = d.Skip()
		}
		return wrapField(err, key)
	})
	return o, err
}

func decodePaymentRequest(d *jx.Decoder) (order.PaymentRequest, error) {
	var p order.PaymentRequest
	if d.Next() == jx.Null {
		return p, d.Null()
	}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "method":
			v, err := decodeOptString(d)
			p.Method = opt.Opt[order.PaymentMethod]{Value: order.PaymentMethod(v.Value), Set: v.Set}
			return wrapField(err, key)
		case "status":
			v, err := decodeOptString(d)
			p.Status = opt.Opt[order.PaymentStatus]{Value: order.PaymentStatus(v.Value), Set: v.Set}
			return wrapField(err, key)
		case "transactionId":
			var err error
			p.TransactionID, err = decodeOptString(d)
			return wrapField(err, key)
		default:
			return d.Skip()
		}
	})
	return p, err
}

// decodePaymentPatch decodes the PATCH /api/orders/{id}/payment payload.
func decodePaymentPatch(d *jx.Decoder) (order.PaymentPatch, error) {
	var p order.PaymentPatch
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "paymentStatus":
			v, err := decodeOptString(d)
			v = nonEmpty(v)
			p.Status = opt.Opt[order.PaymentStatus]{Value: order.PaymentStatus(v.Value), Set: v.Set}
			return wrapField(err, key)
		case "method":
			v, err := decodeOptString(d)
			v = nonEmpty(v)
			p.Method = opt.Opt[order.PaymentMethod]{Value: order.PaymentMethod(v.Value), Set: v.Set}
			return wrapField(err, key)
		case "transactionId":
			var err error
			p.TransactionID, err = decodeOptString(d)
			return wrapField(err, key)
		default:
			return d.Skip()
		}
	})
	return p, err
}

func decodeAddress(d *jx.Decoder) (order.Address, error) {
	var a order.Address
	if d.Next() == jx.Null {
		return a, d.Null()
	}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "street":
			a.Street, err = decodeOptString(d)
		case "city":
			a.City, err = decodeOptString(d)
		case "state":
			a.State, err = decodeOptString(d)
		case "zipCode":
			a.ZipCode, err = decodeOptString(d)
		case "phone":
			a.Phone, err = decodeOptString(d)
		default:
			err = d.Skip()
		}
		return wrapField(err, key)
	})
	return a, err
}

// decodeStringField reads a single string field from an object payload.
func decodeStringField(d *jx.Decoder, field string) (opt.Opt[string], error) {
	var v opt.Opt[string]
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != field {
			return d.Skip()
		}
		var err error
		v, err = decodeOptString(d)
		return wrapField(err, key)
	})
	return v, err
}

// decodeDecimalField reads a single numeric field from an object payload.
func decodeDecimalField(d *jx.Decoder, field string) (opt.Opt[decimal.Decimal], error) {
	var v opt.Opt[decimal.Decimal]
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != field {
			return d.Skip()
		}
		var err error
		v, err = decodeOptDecimal(d)
		return wrapField(err, key)
	})
	return v, err
}

// wrapField annotates a field decoding error with its key.
func wrapField(err error, key string) error {
	if err != nil {
		return errors.Wrap(err, key)
	}
	return nil
}

// nonEmpty treats an empty string as absent.
func nonEmpty(v opt.Opt[string]) opt.Opt[string] {
	if v.Value == "" {
		return opt.Opt[string]{}
	}
	return v
}

// decodeOptString treats null as absent.
func decodeOptString(d *jx.Decoder) (opt.Opt[string], error) {
	if d.Next() == jx.Null {
		return opt.Opt[string]{}, d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return opt.Opt[string]{}, err
	}
	return opt.New(s), nil
}

func decodeOptInt(d *jx.Decoder) (opt.Opt[int], error) {
	if d.Next() == jx.Null {
		return opt.Opt[int]{}, d.Null()
	}
	n, err := d.Int()
	if err != nil {
		return opt.Opt[int]{}, err
	}
	return opt.New(n), nil
}

// decodeOptDecimal accepts a JSON number or a numeric string. Null is absent.
func decodeOptDecimal(d *jx.Decoder) (opt.Opt[decimal.Decimal], error) {
	var raw string
	switch d.Next() {
	case jx.Null:
		return opt.Opt[decimal.Decimal]{}, d.Null()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return opt.Opt[decimal.Decimal]{}, err
		}
		raw = s
	default:
		n, err := d.Num()
		if err != nil {
			return opt.Opt[decimal.Decimal]{}, err
		}
		raw = n.String()
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return opt.Opt[decimal.Decimal]{}, errors.Wrapf(err, "parse number %q", raw)
	}
	return opt.New(v), nil
}

func decodeStrings(d *jx.Decoder) ([]string, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	var out []string
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

// encoder writes response documents in the API's wire format.
type encoder struct {
	jx.Encoder
	imageBaseURL string
}

func (e *encoder) decimal(v decimal.Decimal) {
	e.Num(jx.Num(v.String()))
}

func (e *encoder) time(t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339Nano))
}

func (e *encoder) optString(field string, v opt.Opt[string]) {
	if s, ok := v.Get(); ok {
		e.FieldStart(field)
		e.Str(s)
	}
}

func (e *encoder) strings(values []string) {
	e.ArrStart()
	for _, v := range values {
		e.Str(v)
	}
	e.ArrEnd()
}

func (e *encoder) image(path string) string {
	if path == "" || e.imageBaseURL == "" || isAbsoluteURL(path) {
		return path
	}
	return e.imageBaseURL + path
}

func isAbsoluteURL(s string) bool {
	for _, prefix := range []string{"http://", "https://", "//"} {
		if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

func (e *encoder) pizza(p catalog.Pizza) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("base")
	e.Str(p.Base)
	e.FieldStart("sauce")
	e.Str(p.Sauce)
	e.FieldStart("cheese")
	e.Str(p.Cheese)
	e.FieldStart("veggies")
	e.strings(p.Veggies)
	e.FieldStart("meat")
	e.strings(p.Meat)
	e.FieldStart("price")
	e.decimal(p.Price)
	e.FieldStart("image")
	e.Str(e.image(p.Image))
	e.FieldStart("isActive")
	e.Bool(p.Active)
	e.ObjEnd()
}

// pizzaSummary is the catalog entry embedded in an order line.
func (e *encoder) pizzaSummary(p *catalog.Pizza) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("price")
	e.decimal(p.Price)
	e.FieldStart("image")
	e.Str(e.image(p.Image))
	e.ObjEnd()
}

func (e *encoder) line(l order.Line) {
	e.ObjStart()
	if ref, ok := l.CatalogRef.Get(); ok {
		e.FieldStart("pizzaId")
		e.Str(ref)
	}
	if l.Pizza != nil {
		e.FieldStart("pizza")
		e.pizzaSummary(l.Pizza)
	}
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	e.FieldStart("customName")
	e.Str(l.DisplayName)
	e.FieldStart("selectedOptions")
	e.ObjStart()
	e.optString("base", l.Options.Base)
	e.optString("sauce", l.Options.Sauce)
	e.optString("cheese", l.Options.Cheese)
	e.FieldStart("veggies")
	e.strings(l.Options.Veggies)
	e.FieldStart("meat")
	e.strings(l.Options.Meat)
	if p, ok := l.Options.Price.Get(); ok {
		e.FieldStart("price")
		e.decimal(p)
	}
	e.ObjEnd()
	e.FieldStart("price")
	e.decimal(l.UnitPrice)
	e.ObjEnd()
}

func (e *encoder) order(o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("user")
	e.Str(o.OwnerID)

	e.FieldStart("pizzas")
	e.ArrStart()
	for _, l := range o.Lines {
		e.line(l)
	}
	e.ArrEnd()

	e.FieldStart("totalPrice")
	e.decimal(o.Total)

	e.FieldStart("paymentInfo")
	e.ObjStart()
	e.FieldStart("method")
	e.Str(string(o.Payment.Method))
	e.FieldStart("status")
	e.Str(string(o.Payment.Status))
	e.optString("transactionId", o.Payment.TransactionID)
	if t, ok := o.Payment.PaidAt.Get(); ok {
		e.FieldStart("paidAt")
		e.time(t)
	}
	e.ObjEnd()

	e.FieldStart("status")
	e.Str(string(o.Status))

	e.FieldStart("deliveryAddress")
	e.ObjStart()
	e.optString("street", o.Address.Street)
	e.optString("city", o.Address.City)
	e.optString("state", o.Address.State)
	e.optString("zipCode", o.Address.ZipCode)
	e.optString("phone", o.Address.Phone)
	e.ObjEnd()

	e.optString("specialInstructions", o.SpecialInstructions)
	e.FieldStart("estimatedDelivery")
	e.time(o.EstimatedDelivery)
	if t, ok := o.DeliveredAt.Get(); ok {
		e.FieldStart("deliveredAt")
		e.time(t)
	}
	e.FieldStart("createdAt")
	e.time(o.CreatedAt)
	e.FieldStart("updatedAt")
	e.time(o.UpdatedAt)
	e.ObjEnd()
}

func (e *encoder) orders(orders []order.Order) {
	e.ArrStart()
	for i := range orders {
		e.order(&orders[i])
	}
	e.ArrEnd()
}

func writeJSON(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

// writeMessage responds with {"message": msg}.
func writeMessage(w http.ResponseWriter, code int, msg string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("message")
	e.Str(msg)
	e.ObjEnd()
	writeJSON(w, code, e.Bytes())
}
