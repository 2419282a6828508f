// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

package modsdk

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModule is an in-process Module for exercising the RPC adapters.
type fakeModule struct {
	launchErr error
	stopped   bool
	lastMsg   Message
	reply     Message
}

func (f *fakeModule) Launch(context.Context) (Surface, error) {
	if f.launchErr != nil {
		return Surface{}, f.launchErr
	}
	return Surface{Kind: SurfaceTerminal, Title: "fake"}, nil
}

func (f *fakeModule) Stop(context.Context) error {
	f.stopped = true
	return nil
}

func (f *fakeModule) HandleMessage(_ context.Context, msg Message) (Message, error) {
	f.lastMsg = msg
	return f.reply, nil
}

func (f *fakeModule) Metadata() Metadata {
	return Metadata{Name: "fake", Version: "0.1.0"}
}

// pipeClient wires a Module through a real net/rpc round trip over an
// in-memory pipe, the same path go-plugin uses per dispensed plugin.
func pipeClient(t *testing.T, impl Module) Module {
	t.Helper()

	serverConn, clientConn := net.Pipe()

	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("Plugin", &rpcServer{impl: impl}))
	go server.ServeConn(serverConn)

	c := rpc.NewClient(clientConn)
	t.Cleanup(func() {
		_ = c.Close()
	})
	return &rpcClient{client: c}
}

func TestRPC_Launch(t *testing.T) {
	mod := pipeClient(t, &fakeModule{})

	surface, err := mod.Launch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SurfaceTerminal, surface.Kind)
	assert.Equal(t, "fake", surface.Title)
}

func TestRPC_Launch_Error(t *testing.T) {
	mod := pipeClient(t, &fakeModule{launchErr: errors.New("no display")})

	_, err := mod.Launch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no display")
}

func TestRPC_Stop(t *testing.T) {
	impl := &fakeModule{}
	mod := pipeClient(t, impl)

	require.NoError(t, mod.Stop(context.Background()))
	assert.True(t, impl.stopped)
}

func TestRPC_HandleMessage_NestedMapsSurviveGob(t *testing.T) {
	impl := &fakeModule{reply: Message{
		"function": "end",
		"result":   map[string]any{"winner": "alice", "score": 42},
	}}
	mod := pipeClient(t, impl)

	msg := NewMessage("start").With("options", map[string]any{"mode": "blitz"})
	resp, err := mod.HandleMessage(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, "start", impl.lastMsg.Function())
	assert.Equal(t, map[string]any{"mode": "blitz"}, impl.lastMsg["options"])
	require.NotNil(t, resp)
	assert.Equal(t, "end", resp.Function())
	assert.Equal(t, map[string]any{"winner": "alice", "score": 42}, resp["result"])
}

func TestRPC_HandleMessage_NilResponse(t *testing.T) {
	mod := pipeClient(t, &fakeModule{reply: nil})

	resp, err := mod.HandleMessage(context.Background(), NewMessage("ping"))
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestRPC_Metadata(t *testing.T) {
	mod := pipeClient(t, &fakeModule{})

	md := mod.Metadata()
	assert.Equal(t, "fake", md.Name)
	assert.Equal(t, "0.1.0", md.Version)
}

func TestRPC_Call_ContextCancelled(t *testing.T) {
	// A server that never answers: pipe with no ServeConn.
	_, clientConn := net.Pipe()
	c := &rpcClient{client: rpc.NewClient(clientConn)}
	t.Cleanup(func() { _ = c.client.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Launch(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
