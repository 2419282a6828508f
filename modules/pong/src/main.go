// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

// Package main implements the pong example module: a minimal rally
// game that counts how long a volley survives. It exists mostly to
// show the module contract end to end.
package main

import (
	"context"
	"math/rand"
	"sync"

	"github.com/gamedock/gamedock/pkg/modsdk"
)

// pong keeps one rally's state.
type pong struct {
	mu      sync.Mutex
	rally   int
	best    int
	playing bool
}

func (p *pong) Launch(context.Context) (modsdk.Surface, error) {
	return modsdk.Surface{Kind: modsdk.SurfaceTerminal, Title: "Pong"}, nil
}

func (p *pong) Stop(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	return nil
}

func (p *pong) HandleMessage(_ context.Context, msg modsdk.Message) (modsdk.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch msg.Function() {
	case modsdk.FunctionStart, modsdk.FunctionInit:
		p.playing = true
		p.rally = 0
		return modsdk.NewMessage("ready").With("prompt", "serve to begin"), nil

	case "serve":
		if !p.playing {
			return nil, nil
		}
		// One in eight returns goes into the net.
		if rand.Intn(8) == 0 { //nolint:gosec // game outcome, not security
			if p.rally > p.best {
				p.best = p.rally
			}
			return modsdk.NewMessage(modsdk.FunctionEnd).
				With("rally", p.rally).
				With("best", p.best), nil
		}
		p.rally++
		return modsdk.NewMessage("rally").With("count", p.rally), nil

	case modsdk.FunctionMetadata:
		return p.Metadata().ToMessage(), nil

	case modsdk.FunctionEnd:
		p.playing = false
		return nil, nil
	}

	return nil, nil
}

func (p *pong) Metadata() modsdk.Metadata {
	return modsdk.Metadata{
		Name:                  "pong",
		Version:               "0.1.0",
		Author:                "GameDock Contributors",
		Description:           "Keep the volley alive as long as you can.",
		MinPlayers:            1,
		MaxPlayers:            2,
		EstimatedDuration:     5,
		SupportedModes:        []string{"solo", "versus"},
		SupportedDifficulties: []int{1, 2},
	}
}

func main() {
	modsdk.Serve(&modsdk.ServeConfig{Module: &pong{}})
}
