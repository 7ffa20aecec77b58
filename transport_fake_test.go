package rpcshim

import (
	"context"
	"encoding/json"
	"fmt"
)

// fakeState is the opaque per-call state for fakeTransport, used as both TX
// and RX: a request is built up on the transmit side and read back
// parameter-by-parameter on the receive side.
type fakeState struct {
	method FullMethod
	params []Param
	next   int
}

// fakeTransport is a minimal in-process Transport[*fakeState, *fakeState]
// used to exercise Call/ServeOne without a real byte stream. It marshals
// through encoding/json exactly like a textual transport would, so
// serialization failures are reachable in tests.
type fakeTransport struct {
	rejectOver int                                   // AddParam fails if a string param's length exceeds this; 0 disables
	table      *MethodTable[*fakeState, *fakeState] // when set, Finalize serves the call synchronously

	inFlight *fakeState
	response json.RawMessage
}

func (f *fakeTransport) BeginCall(ctx context.Context, method FullMethod) (*fakeState, error) {
	return &fakeState{method: method}, nil
}

func (f *fakeTransport) AddParam(tx *fakeState, p Param) error {
	if f.rejectOver > 0 {
		if s, ok := p.Value.(string); ok && len(s) > f.rejectOver {
			return fmt.Errorf("param %q exceeds %d bytes", p.Name, f.rejectOver)
		}
	}
	tx.params = append(tx.params, p)
	return nil
}

func (f *fakeTransport) Finalize(tx *fakeState) error {
	f.inFlight = tx
	if f.table != nil {
		return ServeOne(context.Background(), f, *f.table)
	}
	return nil
}

func (f *fakeTransport) TransmitResponse(value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.response = b
	return nil
}

func (f *fakeTransport) BeginReceive(ctx context.Context) (PartialMethod, *fakeState, error) {
	req := f.inFlight
	f.inFlight = nil
	return ByName(req.method.Name), req, nil
}

func (f *fakeTransport) ReadParam(rx *fakeState, name string, into any) error {
	if rx.next >= len(rx.params) {
		return fmt.Errorf("no more parameters, wanted %q", name)
	}
	p := rx.params[rx.next]
	rx.next++
	b, err := json.Marshal(p.Value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, into)
}

func (f *fakeTransport) ReceiveResponse(into any) error {
	return json.Unmarshal(f.response, into)
}
