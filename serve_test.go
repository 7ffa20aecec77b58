package rpcshim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// queueTransport serves a fixed queue of pre-built calls, one per
// BeginReceive, and returns errQueueExhausted once empty. It exists to
// exercise ServeUntil/ServeForever's looping behavior independent of Call.
type queueTransport struct {
	queue  []*fakeState
	served int
}

var errQueueExhausted = errors.New("queue exhausted")

func (q *queueTransport) BeginCall(ctx context.Context, method FullMethod) (*fakeState, error) {
	panic("not used")
}
func (q *queueTransport) AddParam(tx *fakeState, p Param) error { panic("not used") }
func (q *queueTransport) Finalize(tx *fakeState) error          { panic("not used") }
func (q *queueTransport) TransmitResponse(value any) error {
	q.served++
	return nil
}
func (q *queueTransport) BeginReceive(ctx context.Context) (PartialMethod, *fakeState, error) {
	if len(q.queue) == 0 {
		return PartialMethod{}, nil, errQueueExhausted
	}
	next := q.queue[0]
	q.queue = q.queue[1:]
	return ByName(next.method.Name), next, nil
}
func (q *queueTransport) ReadParam(rx *fakeState, name string, into any) error { return nil }
func (q *queueTransport) ReceiveResponse(into any) error                      { panic("not used") }

func TestServeUntilStopsOnPredicate(t *testing.T) {
	q := &queueTransport{queue: []*fakeState{
		{method: FullMethod{Name: "Ping"}},
		{method: FullMethod{Name: "Ping"}},
		{method: FullMethod{Name: "Ping"}},
	}}
	table := MethodTable[*fakeState, *fakeState]{
		ByName: map[string]Handler[*fakeState, *fakeState]{
			"Ping": func(ctx context.Context, t Transport[*fakeState, *fakeState], rx *fakeState) error {
				return t.TransmitResponse(Success(struct{}{}))
			},
		},
	}

	calls := 0
	err := ServeUntil[*fakeState, *fakeState](context.Background(), q, table, func() bool {
		calls++
		return calls > 2
	})
	require.NoError(t, err)
	require.Equal(t, 3, q.served, "stop is checked after each ServeOne, so the call that makes the predicate true is still served")
	require.Len(t, q.queue, 0)
}

// TestServeUntilServesOnceOnImmediatelyTrueStop uses a stop predicate that
// already reports true at its first check: ServeUntil must still serve
// exactly once before that check, never zero times.
func TestServeUntilServesOnceOnImmediatelyTrueStop(t *testing.T) {
	q := &queueTransport{queue: []*fakeState{
		{method: FullMethod{Name: "Ping"}},
		{method: FullMethod{Name: "Ping"}},
	}}
	table := MethodTable[*fakeState, *fakeState]{
		ByName: map[string]Handler[*fakeState, *fakeState]{
			"Ping": func(ctx context.Context, t Transport[*fakeState, *fakeState], rx *fakeState) error {
				return t.TransmitResponse(Success(struct{}{}))
			},
		},
	}

	err := ServeUntil[*fakeState, *fakeState](context.Background(), q, table, func() bool {
		return true
	})
	require.NoError(t, err)
	require.Equal(t, 1, q.served)
	require.Len(t, q.queue, 1)
}

func TestServeForeverStopsOnTransportError(t *testing.T) {
	q := &queueTransport{queue: []*fakeState{
		{method: FullMethod{Name: "Ping"}},
	}}
	table := MethodTable[*fakeState, *fakeState]{
		ByName: map[string]Handler[*fakeState, *fakeState]{
			"Ping": func(ctx context.Context, t Transport[*fakeState, *fakeState], rx *fakeState) error {
				return t.TransmitResponse(Success(struct{}{}))
			},
		},
	}

	err := ServeForever[*fakeState, *fakeState](context.Background(), q, table)
	require.ErrorIs(t, err, errQueueExhausted)
	require.Equal(t, 1, q.served)
}

func TestMethodTableLookupByIndexOutOfRange(t *testing.T) {
	table := MethodTable[*fakeState, *fakeState]{
		ByIndex: []Handler[*fakeState, *fakeState]{
			func(ctx context.Context, t Transport[*fakeState, *fakeState], rx *fakeState) error { return nil },
		},
	}
	handler, name := table.lookup(ByIndex(5))
	require.Nil(t, handler)
	require.Equal(t, "#5", name)
}

func TestServeOneUnknownMethodByName(t *testing.T) {
	ft := &fakeTransport{}
	ft.inFlight = &fakeState{method: FullMethod{Name: "Missing"}}
	table := MethodTable[*fakeState, *fakeState]{}

	err := ServeOne(context.Background(), ft, table)
	require.NoError(t, err)

	var env Envelope[struct{}]
	require.NoError(t, ft.ReceiveResponse(&env))
	require.NotNil(t, env.Err)
	require.Equal(t, KindUnknownMethod, env.Err.Kind)
}
