// Package opt provides a generic optional value, shaped after the OptX types
// that ogen generates for optional schema fields.
package opt

// Opt is either a present value of T or absent. The zero value is absent.
type Opt[T any] struct {
	Value T
	Set   bool
}

// New returns a present Opt holding v.
func New[T any](v T) Opt[T] {
	return Opt[T]{Value: v, Set: true}
}

// FromPtr returns an Opt that is present when p is non-nil.
func FromPtr[T any](p *T) Opt[T] {
	if p == nil {
		return Opt[T]{}
	}
	return New(*p)
}

// IsSet reports whether the value is present.
func (o Opt[T]) IsSet() bool { return o.Set }

// Get returns the value and whether it is present.
func (o Opt[T]) Get() (v T, ok bool) {
	if !o.Set {
		return v, false
	}
	return o.Value, true
}

// Or returns the value if present, otherwise def.
func (o Opt[T]) Or(def T) T {
	if !o.Set {
		return def
	}
	return o.Value
}

// Ptr returns a pointer to a copy of the value, or nil when absent.
func (o Opt[T]) Ptr() *T {
	if !o.Set {
		return nil
	}
	v := o.Value
	return &v
}

// Reset makes the value absent.
func (o *Opt[T]) Reset() {
	var zero T
	o.Value = zero
	o.Set = false
}
