// Package rpcshim is the runtime that generated RPC stubs link against.
//
// A user declares a service interface; a generator (package rpcgen) expands
// it at build time into a client stub that implements the interface by
// driving a Transport, and a server dispatcher that decodes calls off a
// Transport and forwards them to a user-supplied implementation. This
// package fixes the contract between that generated code and the transport:
// method identity on the wire, the call/response envelope, and the error
// taxonomy. Concrete transports live under transport/.
package rpcshim

import "strconv"

// FullMethod identifies a method on the sending side of a call. Index is
// authoritative; Name is advisory and exists so textual transports can
// self-describe. Index is the method's zero-based position in its
// interface's declaration order and is part of the wire contract: adding,
// removing, or reordering methods is a breaking change.
type FullMethod struct {
	Name  string
	Index uint32
}

// PartialMethod identifies a method on the receiving side of a call. A
// transport hands back whichever form it naturally decodes; servers accept
// either.
type PartialMethod struct {
	name     string
	index    uint32
	hasIndex bool
}

// ByIndex builds a PartialMethod carrying only an index.
func ByIndex(i uint32) PartialMethod {
	return PartialMethod{index: i, hasIndex: true}
}

// ByName builds a PartialMethod carrying only a name.
func ByName(name string) PartialMethod {
	return PartialMethod{name: name}
}

// Index returns the carried index, if any.
func (p PartialMethod) Index() (uint32, bool) {
	return p.index, p.hasIndex
}

// Name returns the carried name, if any.
func (p PartialMethod) Name() (string, bool) {
	return p.name, !p.hasIndex && p.name != ""
}

func (p PartialMethod) String() string {
	if p.hasIndex {
		return "#" + strconv.FormatUint(uint64(p.index), 10)
	}
	return p.name
}

// Param is one call argument, presented to a transport in declaration
// order. Transports are free to ignore Name entirely; it exists solely so
// textual encodings can self-describe.
type Param struct {
	Name  string
	Value any
}
