package merge

// Optional is a field value that may be absent
type Optional[T any] struct {
	value T
	ok    bool
}

// Some wraps a present value
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

// None returns an absent value
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// From adapts the (value, ok) accessor convention
func From[T any](v T, ok bool) Optional[T] {
	if !ok {
		return None[T]()
	}
	return Some(v)
}

// Get returns the value and whether it is present
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

// Present reports whether a value is held
func (o Optional[T]) Present() bool {
	return o.ok
}
