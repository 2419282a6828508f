// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

// Package modsdk provides the SDK for building GameDock game modules.
//
// Binary modules run as standalone processes and talk to the GameDock
// host through HashiCorp's go-plugin framework over net/rpc. A module
// implements the Module interface and calls Serve from main():
//
//	package main
//
//	import (
//		"context"
//
//		"github.com/gamedock/gamedock/pkg/modsdk"
//	)
//
//	type Chess struct{}
//
//	func (c *Chess) Launch(ctx context.Context) (modsdk.Surface, error) {
//		return modsdk.Surface{Kind: modsdk.SurfaceTerminal, Title: "Chess"}, nil
//	}
//
//	func (c *Chess) Stop(ctx context.Context) error { return nil }
//
//	func (c *Chess) HandleMessage(ctx context.Context, msg modsdk.Message) (modsdk.Message, error) {
//		if msg.Function() == modsdk.FunctionMetadata {
//			return c.Metadata().ToMessage(), nil
//		}
//		return nil, nil
//	}
//
//	func (c *Chess) Metadata() modsdk.Metadata {
//		return modsdk.Metadata{Name: "chess", Version: "1.0.0", MinPlayers: 2, MaxPlayers: 2}
//	}
//
//	func main() {
//		modsdk.Serve(&modsdk.ServeConfig{Module: &Chess{}})
//	}
package modsdk

import (
	hashiplug "github.com/hashicorp/go-plugin"
)

// PluginName is the dispense key both sides use.
const PluginName = "module"

// HandshakeConfig is the go-plugin handshake configuration.
// Host and modules must use identical values.
var HandshakeConfig = hashiplug.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "GAMEDOCK_MODULE",
	MagicCookieValue: "gamedock-v1",
}

// ServeConfig configures the module server.
type ServeConfig struct {
	// Module is the module implementation.
	// Required; Serve panics if nil.
	Module Module
}

// Serve starts the module server. Call it from main(); it blocks and
// never returns under normal operation.
func Serve(config *ServeConfig) {
	if config == nil {
		panic("modsdk: config cannot be nil")
	}
	if config.Module == nil {
		panic("modsdk: config.Module cannot be nil")
	}
	hashiplug.Serve(&hashiplug.ServeConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins: map[string]hashiplug.Plugin{
			PluginName: &ModulePlugin{Impl: config.Module},
		},
	})
}
