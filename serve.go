package rpcshim

import (
	"context"
	"log/slog"
)

// Handler is the server-side half of one method: generated server code
// supplies one per method, closed over that method's parameter and result
// types. A Handler is responsible for reading its own parameters off rx via
// t.ReadParam, invoking the user implementation, and writing the reply via
// t.TransmitResponse — it owns the full receive-to-respond sequence because
// only it knows the method's concrete Out type.
type Handler[TX, RX any] func(ctx context.Context, t Transport[TX, RX], rx RX) error

// MethodTable is the ordered/named dispatch table a generated server binds
// at construction. ByIndex must be in declaration order; ByIndex[i]
// corresponds to FullMethod{Index: uint32(i)} on the client side.
type MethodTable[TX, RX any] struct {
	ByIndex []Handler[TX, RX]
	ByName  map[string]Handler[TX, RX]
}

func (t MethodTable[TX, RX]) lookup(pm PartialMethod) (Handler[TX, RX], string) {
	if idx, ok := pm.Index(); ok {
		if int(idx) < len(t.ByIndex) {
			return t.ByIndex[idx], pm.String()
		}
		return nil, pm.String()
	}
	if name, ok := pm.Name(); ok {
		if h, found := t.ByName[name]; found {
			return h, name
		}
		return nil, name
	}
	return nil, pm.String()
}

// serveConfig holds ServeOne/ServeUntil/ServeForever's optional knobs.
type serveConfig struct {
	logger *slog.Logger
}

// ServeOption configures ServeOne, ServeUntil, and ServeForever, following
// the same functional-options shape used for every other constructor in
// this module.
type ServeOption func(*serveConfig)

// WithLogger injects the *slog.Logger a serve call logs dispatch outcomes
// to. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ServeOption {
	return func(c *serveConfig) { c.logger = logger }
}

func newServeConfig(opts []ServeOption) *serveConfig {
	c := &serveConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ServeOne handles exactly one incoming call on t: it blocks on
// BeginReceive, resolves the method against table, and either runs the
// matching Handler or writes back a KindUnknownMethod error. It logs the
// outcome at Debug/Warn but never logs parameter values.
func ServeOne[TX, RX any](ctx context.Context, t Transport[TX, RX], table MethodTable[TX, RX], opts ...ServeOption) error {
	cfg := newServeConfig(opts)

	pm, rx, err := t.BeginReceive(ctx)
	if err != nil {
		return err
	}

	handler, name := table.lookup(pm)
	if handler == nil {
		cfg.logger.Warn("rpcshim: unknown method", "method", name)
		return t.TransmitResponse(Envelope[any]{Err: FromUnknownMethod(name)})
	}

	if err := handler(ctx, t, rx); err != nil {
		cfg.logger.Warn("rpcshim: handler failed", "method", name, "error", err)
		return err
	}
	cfg.logger.Debug("rpcshim: served call", "method", name)
	return nil
}

// StopFunc reports whether ServeUntil should stop after the call it just
// served. It is evaluated once per completed call, never mid-call.
type StopFunc func() bool

// ServeUntil calls ServeOne, then evaluates stop; it keeps going while stop
// reports false, and returns nil as soon as stop reports true. Like
// essrpc's serve_until, it always serves at least once before the first
// check.
func ServeUntil[TX, RX any](ctx context.Context, t Transport[TX, RX], table MethodTable[TX, RX], stop StopFunc, opts ...ServeOption) error {
	for {
		if err := ServeOne(ctx, t, table, opts...); err != nil {
			return err
		}
		if stop() {
			return nil
		}
	}
}

// ServeForever calls ServeOne in a loop until it returns an error (such as
// ctx.Err() once ctx is cancelled, surfaced by BeginReceive).
func ServeForever[TX, RX any](ctx context.Context, t Transport[TX, RX], table MethodTable[TX, RX], opts ...ServeOption) error {
	for {
		if err := ServeOne(ctx, t, table, opts...); err != nil {
			return err
		}
	}
}
