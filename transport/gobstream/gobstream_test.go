package gobstream

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpcshim/rpcshim"
)

func newConnectedPair() (client, server *Stream) {
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()
	client = New(respR, reqW)
	server = New(reqR, respW)
	return client, server
}

func TestGobStreamRoundTrip(t *testing.T) {
	client, server := newConnectedPair()
	ctx := context.Background()

	table := rpcshim.MethodTable[*CallState, *CallState]{
		ByName: map[string]rpcshim.Handler[*CallState, *CallState]{
			"Bar": func(ctx context.Context, t rpcshim.Transport[*CallState, *CallState], rx *CallState) error {
				var a string
				var b int32
				if err := t.ReadParam(rx, "a", &a); err != nil {
					return err
				}
				if err := t.ReadParam(rx, "b", &b); err != nil {
					return err
				}
				return t.TransmitResponse(rpcshim.Success(a + " is 42"))
			},
		},
	}

	done := make(chan error, 1)
	go func() { done <- rpcshim.ServeOne(ctx, server, table) }()

	result, callErr := rpcshim.Call[*CallState, *CallState, string](ctx, client, rpcshim.FullMethod{Name: "Bar"}, []rpcshim.Param{
		{Name: "a", Value: "the answer"},
		{Name: "b", Value: int32(42)},
	})

	require.NoError(t, <-done)
	require.Nil(t, callErr)
	require.Equal(t, "the answer is 42", result)
}

func TestGobStreamDeclaredError(t *testing.T) {
	client, server := newConnectedPair()
	ctx := context.Background()

	table := rpcshim.MethodTable[*CallState, *CallState]{
		ByName: map[string]rpcshim.Handler[*CallState, *CallState]{
			"ExpectError": func(ctx context.Context, t rpcshim.Transport[*CallState, *CallState], rx *CallState) error {
				return t.TransmitResponse(rpcshim.Failure[string](&rpcshim.Error{Kind: rpcshim.KindOther, Message: "iamerror"}))
			},
		},
	}

	go func() { _ = rpcshim.ServeOne(ctx, server, table) }()

	_, callErr := rpcshim.Call[*CallState, *CallState, string](ctx, client, rpcshim.FullMethod{Name: "ExpectError"}, nil)
	require.NotNil(t, callErr)
	require.Equal(t, "iamerror", callErr.Message)
}
