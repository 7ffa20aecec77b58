// Package msgpackstream is a compact binary rpcshim.Transport using
// github.com/vmihailenco/msgpack/v5. Frames are length-prefixed (a
// big-endian uint32 byte count) since, unlike gob, msgpack does not
// self-delimit a stream of independent values.
package msgpackstream

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/rpcshim/rpcshim"
)

type wireParam struct {
	Name    string `msgpack:"name"`
	Payload []byte `msgpack:"payload"`
}

type wireRequest struct {
	Method rpcshim.FullMethod `msgpack:"method"`
	Params []wireParam        `msgpack:"params"`
}

// CallState accumulates a request on the transmit side, or holds a decoded
// request's parameters on the receive side.
type CallState struct {
	method rpcshim.FullMethod
	params []wireParam
	next   int
}

// Stream is a msgpackstream Transport bound to a byte stream.
type Stream struct {
	w io.Writer
	r *bufio.Reader
}

// New wraps r and w as a msgpackstream Transport.
func New(r io.Reader, w io.Writer) *Stream {
	return &Stream{w: w, r: bufio.NewReader(r)}
}

func (s *Stream) BeginCall(ctx context.Context, method rpcshim.FullMethod) (*CallState, error) {
	return &CallState{method: method}, nil
}

func (s *Stream) AddParam(tx *CallState, p rpcshim.Param) error {
	payload, err := msgpack.Marshal(p.Value)
	if err != nil {
		return fmt.Errorf("msgpackstream: encoding param %q: %w", p.Name, err)
	}
	tx.params = append(tx.params, wireParam{Name: p.Name, Payload: payload})
	return nil
}

func (s *Stream) Finalize(tx *CallState) error {
	return s.writeFrame(wireRequest{Method: tx.method, Params: tx.params})
}

func (s *Stream) TransmitResponse(value any) error {
	return s.writeFrame(value)
}

func (s *Stream) writeFrame(v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("msgpackstream: encoding: %w", err)
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := s.w.Write(header[:]); err != nil {
		return fmt.Errorf("msgpackstream: writing frame header: %w", err)
	}
	if _, err := s.w.Write(payload); err != nil {
		return fmt.Errorf("msgpackstream: writing frame: %w", err)
	}
	return nil
}

func (s *Stream) readFrame() ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(s.r, header[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(header[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(s.r, buf); err != nil {
		return nil, fmt.Errorf("msgpackstream: reading frame body: %w", err)
	}
	return buf, nil
}

func (s *Stream) BeginReceive(ctx context.Context) (rpcshim.PartialMethod, *CallState, error) {
	buf, err := s.readFrame()
	if err != nil {
		return rpcshim.PartialMethod{}, nil, fmt.Errorf("msgpackstream: reading request: %w", err)
	}
	var req wireRequest
	if err := msgpack.Unmarshal(buf, &req); err != nil {
		return rpcshim.PartialMethod{}, nil, fmt.Errorf("msgpackstream: decoding request: %w", err)
	}
	return rpcshim.ByName(req.Method.Name), &CallState{method: req.Method, params: req.Params}, nil
}

func (s *Stream) ReadParam(rx *CallState, name string, into any) error {
	if rx.next >= len(rx.params) {
		return fmt.Errorf("msgpackstream: no more parameters, wanted %q", name)
	}
	p := rx.params[rx.next]
	rx.next++
	if err := msgpack.Unmarshal(p.Payload, into); err != nil {
		return fmt.Errorf("msgpackstream: decoding param %q: %w", name, err)
	}
	return nil
}

func (s *Stream) ReceiveResponse(into any) error {
	buf, err := s.readFrame()
	if err != nil {
		return fmt.Errorf("msgpackstream: reading response: %w", err)
	}
	return msgpack.Unmarshal(buf, into)
}
