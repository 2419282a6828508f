// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

package modsdk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamedock/gamedock/pkg/errutil"
	"github.com/gamedock/gamedock/pkg/modsdk"
)

func TestMessage_Function(t *testing.T) {
	tests := []struct {
		name string
		msg  modsdk.Message
		want string
	}{
		{"present", modsdk.NewMessage("start"), "start"},
		{"absent", modsdk.Message{"score": 42}, ""},
		{"wrong type", modsdk.Message{"function": 7}, ""},
		{"nil message", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.msg.Function())
		})
	}
}

func TestMessage_With_DoesNotMutateReceiver(t *testing.T) {
	orig := modsdk.NewMessage("start")
	copied := orig.With("players", 2)

	assert.Equal(t, 2, copied["players"])
	assert.NotContains(t, orig, "players")
	assert.Equal(t, "start", copied.Function())
}

func TestCheckStartMessage_Accepts(t *testing.T) {
	require.NoError(t, modsdk.CheckStartMessage(modsdk.NewMessage("start")))
	require.NoError(t, modsdk.CheckStartMessage(modsdk.NewMessage("init")))
}

func TestCheckStartMessage_RejectsUnknownFunction(t *testing.T) {
	err := modsdk.CheckStartMessage(modsdk.NewMessage("begin"))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MESSAGE_INVALID")
	// The rejection names the allowed values.
	assert.Contains(t, err.Error(), "start")
	assert.Contains(t, err.Error(), "init")
	assert.Contains(t, err.Error(), "begin")
}

func TestCheckStartMessage_RejectsMissingDiscriminator(t *testing.T) {
	err := modsdk.CheckStartMessage(modsdk.Message{"players": 4})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MESSAGE_INVALID")
}
