package ir

import (
	"context"
	"encoding/json"
)

// Perform is a sealed interface over the ways an operation can be performed.
// Only SyncFunc, PromiseFunc, CallbackFunc, *Request and StaticValue implement it.
type Perform interface {
	perform() // Sealed
}

// SyncFunc returns its result directly.
type SyncFunc func(ctx context.Context, z Z, bundle *Bundle) (any, error)

func (SyncFunc) perform() {}

// MarshalJSON renders functions as an opaque marker in compiled output.
func (SyncFunc) MarshalJSON() ([]byte, error) { return []byte(`"[function]"`), nil }

// Result is the settled outcome of a PromiseFunc.
type Result struct {
	Value any
	Err   error
}

// PromiseFunc returns a channel that delivers exactly one Result.
type PromiseFunc func(ctx context.Context, z Z, bundle *Bundle) <-chan Result

func (PromiseFunc) perform() {}

// MarshalJSON renders functions as an opaque marker in compiled output.
func (PromiseFunc) MarshalJSON() ([]byte, error) { return []byte(`"[function]"`), nil }

// CallbackFunc reports its outcome through an error-first done callback.
// Only the first call to done counts.
type CallbackFunc func(ctx context.Context, z Z, bundle *Bundle, done func(any, error))

func (CallbackFunc) perform() {}

// MarshalJSON renders functions as an opaque marker in compiled output.
func (CallbackFunc) MarshalJSON() ([]byte, error) { return []byte(`"[function]"`), nil }

// Shorthand requests are performs too.
func (*Request) perform() {}

// StaticValue is a literal that resolves without being invoked.
type StaticValue struct {
	Value any
}

func (StaticValue) perform() {}

// MarshalJSON emits the wrapped literal.
func (s StaticValue) MarshalJSON() ([]byte, error) { return json.Marshal(s.Value) }

// Resolved wraps v in a PromiseFunc that settles immediately.
// Handy for tests and for adapting already-computed values.
func Resolved(v any, err error) PromiseFunc {
	return func(context.Context, Z, *Bundle) <-chan Result {
		ch := make(chan Result, 1)
		ch <- Result{Value: v, Err: err}
		close(ch)
		return ch
	}
}
