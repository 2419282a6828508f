// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

package modsdk

import (
	"context"
	"errors"
	"net/rpc"

	hashiplug "github.com/hashicorp/go-plugin"
)

// RPC argument and reply shapes. The whole protocol is Message-shaped,
// so plain net/rpc over gob carries it without generated code.
type (
	// LaunchArgs is the (empty) request for Launch.
	LaunchArgs struct{}
	// LaunchResp carries the display surface back to the host.
	LaunchResp struct {
		Surface Surface
	}
	// StopArgs is the (empty) request for Stop.
	StopArgs struct{}
	// StopResp is the (empty) reply for Stop.
	StopResp struct{}
	// HandleMessageArgs carries a message to the module.
	HandleMessageArgs struct {
		Msg Message
	}
	// HandleMessageResp carries the optional response. HasResp
	// distinguishes "no response" from an empty message.
	HandleMessageResp struct {
		Resp    Message
		HasResp bool
	}
	// MetadataArgs is the (empty) request for Metadata.
	MetadataArgs struct{}
	// MetadataResp carries the module's metadata.
	MetadataResp struct {
		Metadata Metadata
	}
)

// ModulePlugin implements go-plugin's Plugin interface over net/rpc.
// The host side dispenses a Module client; the module side serves Impl.
type ModulePlugin struct {
	// Impl is the module implementation (plugin process side only).
	Impl Module
}

// Server returns the RPC server for the module process.
func (p *ModulePlugin) Server(*hashiplug.MuxBroker) (any, error) {
	if p.Impl == nil {
		return nil, errors.New("modsdk: module implementation is nil")
	}
	return &rpcServer{impl: p.Impl}, nil
}

// Client returns a Module backed by the RPC connection (host side).
func (p *ModulePlugin) Client(_ *hashiplug.MuxBroker, c *rpc.Client) (any, error) {
	return &rpcClient{client: c}, nil
}

// rpcServer adapts a Module to net/rpc (module process side).
// net/rpc carries no context, so handlers run under Background.
type rpcServer struct {
	impl Module
}

func (s *rpcServer) Launch(_ LaunchArgs, resp *LaunchResp) error {
	surface, err := s.impl.Launch(context.Background())
	if err != nil {
		return err
	}
	resp.Surface = surface
	return nil
}

func (s *rpcServer) Stop(_ StopArgs, _ *StopResp) error {
	return s.impl.Stop(context.Background())
}

func (s *rpcServer) HandleMessage(args HandleMessageArgs, resp *HandleMessageResp) error {
	reply, err := s.impl.HandleMessage(context.Background(), args.Msg)
	if err != nil {
		return err
	}
	if reply != nil {
		resp.Resp = reply
		resp.HasResp = true
	}
	return nil
}

func (s *rpcServer) Metadata(_ MetadataArgs, resp *MetadataResp) error {
	resp.Metadata = s.impl.Metadata()
	return nil
}

// Compile-time interface check.
var _ Module = (*rpcClient)(nil)

// rpcClient is the host-side Module backed by the plugin connection.
type rpcClient struct {
	client *rpc.Client
}

// call issues an RPC and honors ctx while waiting. The remote call
// itself is not cancellable; abandoning it on ctx expiry is the
// standard net/rpc trade-off.
func (c *rpcClient) call(ctx context.Context, method string, args, reply any) error {
	call := c.client.Go(method, args, reply, make(chan *rpc.Call, 1))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case done := <-call.Done:
		return done.Error
	}
}

func (c *rpcClient) Launch(ctx context.Context) (Surface, error) {
	var resp LaunchResp
	if err := c.call(ctx, "Plugin.Launch", LaunchArgs{}, &resp); err != nil {
		return Surface{}, err
	}
	return resp.Surface, nil
}

func (c *rpcClient) Stop(ctx context.Context) error {
	return c.call(ctx, "Plugin.Stop", StopArgs{}, &StopResp{})
}

func (c *rpcClient) HandleMessage(ctx context.Context, msg Message) (Message, error) {
	var resp HandleMessageResp
	if err := c.call(ctx, "Plugin.HandleMessage", HandleMessageArgs{Msg: msg}, &resp); err != nil {
		return nil, err
	}
	if !resp.HasResp {
		return nil, nil
	}
	return resp.Resp, nil
}

func (c *rpcClient) Metadata() Metadata {
	var resp MetadataResp
	if err := c.client.Call("Plugin.Metadata", MetadataArgs{}, &resp); err != nil {
		return Metadata{}
	}
	return resp.Metadata
}
