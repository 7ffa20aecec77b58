// Package gobstream is a binary rpcshim.Transport built on encoding/gob.
// Requests and responses are framed by gob's own self-describing wire
// format over a persistent encoder/decoder pair; each parameter's value is
// additionally gob-encoded into its own independent byte blob so arbitrary
// concrete types can ride inside a request without interface registration.
package gobstream

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/rpcshim/rpcshim"
)

type wireParam struct {
	Name    string
	Payload []byte
}

type wireRequest struct {
	Method rpcshim.FullMethod
	Params []wireParam
}

// CallState accumulates a request on the transmit side, or holds a decoded
// request's parameters on the receive side.
type CallState struct {
	method rpcshim.FullMethod
	params []wireParam
	next   int
}

// Stream is a gobstream Transport bound to a byte stream.
type Stream struct {
	enc *gob.Encoder
	dec *gob.Decoder
}

// New wraps r and w as a gobstream Transport.
func New(r io.Reader, w io.Writer) *Stream {
	return &Stream{enc: gob.NewEncoder(w), dec: gob.NewDecoder(r)}
}

func (s *Stream) BeginCall(ctx context.Context, method rpcshim.FullMethod) (*CallState, error) {
	return &CallState{method: method}, nil
}

func (s *Stream) AddParam(tx *CallState, p rpcshim.Param) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(p.Value); err != nil {
		return fmt.Errorf("gobstream: encoding param %q: %w", p.Name, err)
	}
	tx.params = append(tx.params, wireParam{Name: p.Name, Payload: buf.Bytes()})
	return nil
}

func (s *Stream) Finalize(tx *CallState) error {
	if err := s.enc.Encode(wireRequest{Method: tx.method, Params: tx.params}); err != nil {
		return fmt.Errorf("gobstream: encoding request: %w", err)
	}
	return nil
}

func (s *Stream) TransmitResponse(value any) error {
	if err := s.enc.Encode(value); err != nil {
		return fmt.Errorf("gobstream: encoding response: %w", err)
	}
	return nil
}

func (s *Stream) BeginReceive(ctx context.Context) (rpcshim.PartialMethod, *CallState, error) {
	var req wireRequest
	if err := s.dec.Decode(&req); err != nil {
		return rpcshim.PartialMethod{}, nil, fmt.Errorf("gobstream: decoding request: %w", err)
	}
	return rpcshim.ByName(req.Method.Name), &CallState{method: req.Method, params: req.Params}, nil
}

func (s *Stream) ReadParam(rx *CallState, name string, into any) error {
	if rx.next >= len(rx.params) {
		return fmt.Errorf("gobstream: no more parameters, wanted %q", name)
	}
	p := rx.params[rx.next]
	rx.next++
	if err := gob.NewDecoder(bytes.NewReader(p.Payload)).Decode(into); err != nil {
		return fmt.Errorf("gobstream: decoding param %q: %w", name, err)
	}
	return nil
}

func (s *Stream) ReceiveResponse(into any) error {
	if err := s.dec.Decode(into); err != nil {
		return fmt.Errorf("gobstream: decoding response: %w", err)
	}
	return nil
}
