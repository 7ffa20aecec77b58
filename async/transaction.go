package async

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/rpcshim/rpcshim"
)

// Transaction submits a fully serialized request and returns a Future for
// the fully serialized response. Unlike Transport, a Transaction need not
// be driven incrementally: the caller encodes the whole call up front and
// the implementation is free to pipeline many transactions concurrently.
type Transaction func(ctx context.Context, request []byte) (*Future[[]byte], error)

// request is the wire shape CallAsync encodes eagerly, before the
// Transaction is issued.
type request struct {
	CallID string             `json:"call_id"`
	Method rpcshim.FullMethod `json:"method"`
	Params []rpcshim.Param    `json:"params"`
}

// CallAsync encodes method and params into a request, assigns it a fresh
// call ID, and issues it against tx. It returns a Future for the decoded
// result: the caller's Await happens independently of how long tx takes to
// produce a response, and of how many other calls are in flight on the same
// transaction function.
func CallAsync[Out any, E error](ctx context.Context, tx Transaction, method rpcshim.FullMethod, params []rpcshim.Param, convert rpcshim.ErrorConverter[E]) (*Future[Out], error) {
	req := request{CallID: uuid.NewString(), Method: method, Params: params}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("async: encoding request: %w", err)
	}

	inner, err := tx(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("async: issuing transaction: %w", err)
	}

	out := NewFuture[Out]()
	go func() {
		raw, err := inner.Await(ctx)
		if err != nil {
			out.Reject(err)
			return
		}

		var env rpcshim.Envelope[Out]
		if err := json.Unmarshal(raw, &env); err != nil {
			out.Reject(convert(rpcshim.FromSerializationError(err)))
			return
		}
		if env.Err != nil {
			out.Reject(convert(env.Err))
			return
		}
		out.Resolve(env.Value)
	}()

	return out, nil
}
