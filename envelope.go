package rpcshim

import "encoding/json"

// Envelope is the tagged union that rides inside every reply: either a
// success value of the method's declared result type, or a serialized
// Error. The transport itself never distinguishes the two; the envelope is
// how generated stubs encode "success or error" uniformly across every
// transport (spec rationale, §4.3).
type Envelope[T any] struct {
	Value    T
	HasValue bool
	Err      *Error
}

// Success builds an Envelope carrying a result value.
func Success[T any](v T) Envelope[T] {
	return Envelope[T]{Value: v, HasValue: true}
}

// Failure builds an Envelope carrying an error.
func Failure[T any](err *Error) Envelope[T] {
	return Envelope[T]{Err: err}
}

// wireEnvelope is the concrete, type-erased shape Envelope[T] marshals to
// and from. Keeping it non-generic lets every transport (JSON-based or
// otherwise) handle the tagging without knowing T.
type wireEnvelope struct {
	Value json.RawMessage `json:"value,omitempty"`
	Err   *Error          `json:"error,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e Envelope[T]) MarshalJSON() ([]byte, error) {
	if e.Err != nil {
		return json.Marshal(wireEnvelope{Err: e.Err})
	}
	if !e.HasValue {
		return json.Marshal(wireEnvelope{})
	}
	raw, err := json.Marshal(e.Value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireEnvelope{Value: raw})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Envelope[T]) UnmarshalJSON(b []byte) error {
	var w wireEnvelope
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.Err != nil {
		e.Err = w.Err
		return nil
	}
	if len(w.Value) == 0 || string(w.Value) == "null" {
		return nil
	}
	if err := json.Unmarshal(w.Value, &e.Value); err != nil {
		return err
	}
	e.HasValue = true
	return nil
}
