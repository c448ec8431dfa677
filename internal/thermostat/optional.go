package thermostat

import (
	"encoding/json"
	"fmt"
)

// Optional is a value that may be absent.
//
// The zero Optional is absent. Unlike a pointer or a zero default, an
// Optional set to the zero value of T is still present:
//
//	Some(0.0).IsSet() == true
//	None[float64]().IsSet() == false
//
// Optional is comparable when T is, so structs holding Optionals can be
// compared with ==.
type Optional[T comparable] struct {
	value T
	set   bool
}

// Some returns a present Optional holding v.
func Some[T comparable](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// None returns an absent Optional.
func None[T comparable]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet reports whether the value is present.
func (o Optional[T]) IsSet() bool {
	return o.set
}

// OrElse returns the value if present, otherwise fallback.
func (o Optional[T]) OrElse(fallback T) T {
	if o.set {
		return o.value
	}
	return fallback
}

// IsZero reports whether the value is absent. It lets encoding/json drop
// absent fields tagged with omitzero.
func (o Optional[T]) IsZero() bool {
	return !o.set
}

// String formats the value, or "<absent>".
func (o Optional[T]) String() string {
	if !o.set {
		return "<absent>"
	}
	return fmt.Sprint(o.value)
}

// MarshalJSON encodes a present value as T and an absent one as null.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}
