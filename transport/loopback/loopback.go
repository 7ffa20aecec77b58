// Package loopback is an in-process rpcshim.Transport connecting a client
// and server within the same process, useful for tests and for services
// that shell out their own handler without ever touching a byte stream.
// Parameters and responses still cross an encoding/json boundary so bugs in
// a method's argument types surface the same way they would over a real
// transport.
package loopback

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rpcshim/rpcshim"
)

// CallState is the opaque per-call state threaded through both the
// transmit and receive paths; loopback uses the same concrete type for
// TX and RX.
type CallState struct {
	method rpcshim.FullMethod
	params []json.RawMessage
	names  []string
	next   int
}

type pipe struct {
	calls     chan *CallState
	responses chan json.RawMessage
}

func newPipe() *pipe {
	return &pipe{
		calls:     make(chan *CallState),
		responses: make(chan json.RawMessage, 1),
	}
}

// Endpoint implements rpcshim.Transport[*CallState, *CallState]. Two
// Endpoints sharing a pipe form a connected pair: one drives the transmit
// methods, the other drives the receive methods.
type Endpoint struct {
	p *pipe
}

// NewPair returns two connected Endpoints: conventionally the first is
// used by a client stub, the second by a server dispatcher.
func NewPair() (*Endpoint, *Endpoint) {
	p := newPipe()
	return &Endpoint{p: p}, &Endpoint{p: p}
}

func (e *Endpoint) BeginCall(ctx context.Context, method rpcshim.FullMethod) (*CallState, error) {
	return &CallState{method: method}, nil
}

func (e *Endpoint) AddParam(tx *CallState, p rpcshim.Param) error {
	raw, err := json.Marshal(p.Value)
	if err != nil {
		return fmt.Errorf("loopback: encoding param %q: %w", p.Name, err)
	}
	tx.params = append(tx.params, raw)
	tx.names = append(tx.names, p.Name)
	return nil
}

func (e *Endpoint) Finalize(tx *CallState) error {
	e.p.calls <- tx
	return nil
}

func (e *Endpoint) TransmitResponse(value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("loopback: encoding response: %w", err)
	}
	e.p.responses <- raw
	return nil
}

func (e *Endpoint) BeginReceive(ctx context.Context) (rpcshim.PartialMethod, *CallState, error) {
	select {
	case call := <-e.p.calls:
		return rpcshim.ByName(call.method.Name), call, nil
	case <-ctx.Done():
		return rpcshim.PartialMethod{}, nil, ctx.Err()
	}
}

func (e *Endpoint) ReadParam(rx *CallState, name string, into any) error {
	if rx.next >= len(rx.params) {
		return fmt.Errorf("loopback: no more parameters, wanted %q", name)
	}
	raw := rx.params[rx.next]
	rx.next++
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("loopback: decoding param %q: %w", name, err)
	}
	return nil
}

func (e *Endpoint) ReceiveResponse(into any) error {
	raw := <-e.p.responses
	return json.Unmarshal(raw, into)
}
