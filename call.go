package rpcshim

import "context"

// Call drives the full client-side sequence of a single method invocation
// over t: BeginCall, AddParam for each parameter in order, Finalize, then
// ReceiveResponse decoded into an Envelope[Out]. Generated client stubs
// call this once per method; it is where the bulk of the client-side
// protocol logic lives so generated code stays a thin adapter.
//
// The returned *Error, if non-nil, is the wire error exactly as the server
// sent it, or a KindOther framework error if Call itself could not complete
// the exchange (a transport-surface failure, not a serialization failure of
// any particular value). Generated stubs pass it through an ErrorConverter[E]
// to produce the interface's declared error type.
func Call[TX, RX, Out any](ctx context.Context, t Transport[TX, RX], method FullMethod, params []Param) (Out, *Error) {
	var zero Out

	tx, err := t.BeginCall(ctx, method)
	if err != nil {
		return zero, FromError(err)
	}
	for _, p := range params {
		if err := t.AddParam(tx, p); err != nil {
			return zero, FromError(err)
		}
	}
	if err := t.Finalize(tx); err != nil {
		return zero, FromError(err)
	}

	var env Envelope[Out]
	if err := t.ReceiveResponse(&env); err != nil {
		return zero, FromError(err)
	}
	if env.Err != nil {
		return zero, env.Err
	}
	return env.Value, nil
}
