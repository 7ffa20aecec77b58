package rpcshim

import (
	"errors"
	"strings"
)

// ErrorKind classifies a framework-level Error. It distinguishes the two
// failure kinds the framework names (serialization, unknown method) from
// everything else.
type ErrorKind int

const (
	// KindOther covers everything else: an error returned by the user's own
	// method implementation, or a transport-surface failure seen by Call.
	KindOther ErrorKind = iota
	// KindSerialization marks a failure encoding or decoding a call or its
	// parameters; it never originates from user code.
	KindSerialization
	// KindUnknownMethod marks a call naming a method the server side does
	// not recognize.
	KindUnknownMethod
)

func (k ErrorKind) String() string {
	switch k {
	case KindSerialization:
		return "serialization"
	case KindUnknownMethod:
		return "unknown_method"
	default:
		return "other"
	}
}

// Cause is one link in a flattened, wire-safe error chain. Unlike Go's
// native error wrapping, Cause carries only a description: it exists to
// cross a transport, not to be matched against with errors.Is.
type Cause struct {
	Description string `json:"description"`
	Cause       *Cause `json:"cause,omitempty"`
}

// maxCauseDepth bounds how far buildCause walks errors.Unwrap chains. A
// well-behaved chain is a handful of links deep; this guards against a
// pathological or cyclic Unwrap implementation from some third-party error
// type the framework does not control.
const maxCauseDepth = 32

// buildCause flattens err's Unwrap chain into a Cause chain, stopping at
// maxCauseDepth or the first error it has already visited.
func buildCause(err error) *Cause {
	if err == nil {
		return nil
	}
	seen := make(map[error]bool, maxCauseDepth)
	var build func(e error, depth int) *Cause
	build = func(e error, depth int) *Cause {
		if e == nil || depth >= maxCauseDepth || seen[e] {
			return nil
		}
		seen[e] = true
		c := &Cause{Description: e.Error()}
		c.Cause = build(errors.Unwrap(e), depth+1)
		return c
	}
	return build(err, 0)
}

// Error is the wire-safe error type every Transport reply carries in place
// of a Go error: it is what actually crosses the boundary. Kind tells the
// receiving side which class of failure produced it.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Cause   *Cause    `json:"cause,omitempty"`
}

// Error implements the standard error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Message)
	for c := e.Cause; c != nil; c = c.Cause {
		b.WriteString(": ")
		b.WriteString(c.Description)
	}
	return b.String()
}

// FromError builds a KindOther Error from an arbitrary Go error, flattening
// its Unwrap chain into Cause links. Use FromSerializationError or
// FromUnknownMethod for the framework's own failure kinds.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindOther, Message: err.Error(), Cause: buildCause(errors.Unwrap(err))}
}

// FromSerializationError builds a KindSerialization Error. Generated code
// and transports use this for encode/decode failures; it never originates
// from a user method implementation.
func FromSerializationError(err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindSerialization, Message: err.Error(), Cause: buildCause(errors.Unwrap(err))}
}

// FromUnknownMethod builds a KindUnknownMethod Error naming the method a
// server dispatcher failed to resolve.
func FromUnknownMethod(method string) *Error {
	return &Error{Kind: KindUnknownMethod, Message: "unknown method: " + method}
}

// ErrorConverter turns a wire Error back into the interface's declared
// error type E. Generated clients are handed one per interface so callers
// see their own error type rather than *rpcshim.Error.
type ErrorConverter[E error] func(*Error) E
