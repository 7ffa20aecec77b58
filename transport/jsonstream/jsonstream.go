// Package jsonstream is a textual rpcshim.Transport: one newline-delimited
// JSON object per call, one per response, written to and read from
// arbitrary io.Writer/io.Reader pairs (a net.Conn, a pair of pipes, files).
package jsonstream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rpcshim/rpcshim"
)

type wireParam struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

type wireRequest struct {
	Method rpcshim.FullMethod `json:"method"`
	Params []wireParam        `json:"params"`
}

// CallState accumulates a request on the transmit side, or holds a decoded
// request's parameters on the receive side.
type CallState struct {
	method rpcshim.FullMethod
	params []wireParam
	next   int
}

// Stream is a jsonstream Transport bound to a byte stream. w and r may be
// the write/read halves of the same connection, or independent streams.
type Stream struct {
	w       io.Writer
	scanner *bufio.Scanner
}

// New wraps r and w as a jsonstream Transport.
func New(r io.Reader, w io.Writer) *Stream {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &Stream{w: w, scanner: scanner}
}

func (s *Stream) BeginCall(ctx context.Context, method rpcshim.FullMethod) (*CallState, error) {
	return &CallState{method: method}, nil
}

func (s *Stream) AddParam(tx *CallState, p rpcshim.Param) error {
	raw, err := json.Marshal(p.Value)
	if err != nil {
		return fmt.Errorf("jsonstream: encoding param %q: %w", p.Name, err)
	}
	tx.params = append(tx.params, wireParam{Name: p.Name, Value: raw})
	return nil
}

func (s *Stream) Finalize(tx *CallState) error {
	return s.writeLine(wireRequest{Method: tx.method, Params: tx.params})
}

func (s *Stream) TransmitResponse(value any) error {
	return s.writeLine(value)
}

func (s *Stream) writeLine(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("jsonstream: encoding: %w", err)
	}
	if _, err := s.w.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("jsonstream: writing: %w", err)
	}
	return nil
}

func (s *Stream) BeginReceive(ctx context.Context) (rpcshim.PartialMethod, *CallState, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return rpcshim.PartialMethod{}, nil, fmt.Errorf("jsonstream: reading: %w", err)
		}
		return rpcshim.PartialMethod{}, nil, io.EOF
	}
	var req wireRequest
	if err := json.Unmarshal(s.scanner.Bytes(), &req); err != nil {
		return rpcshim.PartialMethod{}, nil, fmt.Errorf("jsonstream: decoding request: %w", err)
	}
	if req.Method.Name != "" {
		return rpcshim.ByName(req.Method.Name), &CallState{method: req.Method, params: req.Params}, nil
	}
	return rpcshim.ByIndex(req.Method.Index), &CallState{method: req.Method, params: req.Params}, nil
}

func (s *Stream) ReadParam(rx *CallState, name string, into any) error {
	if rx.next >= len(rx.params) {
		return fmt.Errorf("jsonstream: no more parameters, wanted %q", name)
	}
	p := rx.params[rx.next]
	rx.next++
	if err := json.Unmarshal(p.Value, into); err != nil {
		return fmt.Errorf("jsonstream: decoding param %q: %w", name, err)
	}
	return nil
}

func (s *Stream) ReceiveResponse(into any) error {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return fmt.Errorf("jsonstream: reading response: %w", err)
		}
		return io.EOF
	}
	return json.Unmarshal(s.scanner.Bytes(), into)
}
