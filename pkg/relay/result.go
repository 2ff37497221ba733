package relay

import "github.com/Sumatoshi-tech/hoshi/pkg/handle"

// Result carries exactly one of a value or an exception envelope.
// The zero Result carries neither and unwraps as an unknown error.
type Result[T any] struct {
	value  T
	env    Envelope
	ok     bool
	op     string
	handle handle.Handle
}

// Ok wraps a value.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value, ok: true}
}

// Fail wraps an exception. An envelope without a kind becomes unknown.
func Fail[T any](env Envelope) Result[T] {
	if env.Kind == KindNone {
		env = Envelope{Kind: KindUnknown, Message: "failure without exception kind"}
	}

	return Result[T]{env: env}
}

// FromError wraps value when err is nil and the classified err otherwise.
func FromError[T any](value T, err error) Result[T] {
	if err != nil {
		return Fail[T](Classify(err))
	}

	return Ok(value)
}

// At records the operation and handle the result belongs to, for error
// messages.
func (r Result[T]) At(op string, h handle.Handle) Result[T] {
	r.op = op
	r.handle = h

	return r
}

// Ok reports whether the result carries a value.
func (r Result[T]) Ok() bool {
	return r.ok
}

// Envelope returns the exception channel. It is KindNone for values.
func (r Result[T]) Envelope() Envelope {
	if r.ok {
		return Envelope{}
	}

	if r.env.Kind == KindNone {
		return Envelope{Kind: KindUnknown, Message: "result carries neither value nor exception"}
	}

	return r.env
}

// Unwrap returns the value, or the exception as an *Error.
func (r Result[T]) Unwrap() (T, error) {
	if r.ok {
		return r.value, nil
	}

	var zero T

	env := r.Envelope()

	return zero, &Error{Kind: env.Kind, Op: r.op, Handle: r.handle, Message: env.Message}
}

// Err returns the exception as an *Error, or nil.
func (r Result[T]) Err() error {
	_, err := r.Unwrap()

	return err
}
