// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

package modsdk

import (
	"encoding/gob"

	"github.com/samber/oops"
)

// FunctionKey is the required discriminator field of every Message.
const FunctionKey = "function"

// Recognized discriminator values. Unrecognized values pass through
// untouched; the protocol vocabulary is open.
const (
	FunctionStart    = "start"
	FunctionInit     = "init"
	FunctionEnd      = "end"
	FunctionMetadata = "metadata"
)

// Message is the wire shape exchanged between host and modules: a
// string-keyed mapping with a conventionally required "function" field.
// Values are strings, numbers, bools, or nested mappings.
type Message map[string]any

func init() {
	// Messages cross the plugin boundary via gob; nested values must be
	// registered so net/rpc can encode them.
	gob.Register(Message{})
	gob.Register(map[string]any{})
	gob.Register([]any{})
}

// NewMessage creates a message carrying the given function discriminator.
func NewMessage(function string) Message {
	return Message{FunctionKey: function}
}

// Function returns the discriminator value, or "" if absent or not a string.
func (m Message) Function() string {
	fn, _ := m[FunctionKey].(string)
	return fn
}

// With returns a copy of the message with key set to value. The receiver
// is not modified.
func (m Message) With(key string, value any) Message {
	out := make(Message, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[key] = value
	return out
}

// ErrMessageInvalid is returned when required message validation fails.
var ErrMessageInvalid = oops.Code("MESSAGE_INVALID").Errorf("message validation failed")

// startFunctions are the accepted discriminators for a session-start
// message. The host historically accepted divergent spellings; the
// canonical pair is "start" and "init".
var startFunctions = []string{FunctionStart, FunctionInit}

// CheckStartMessage validates that msg announces a session start.
// The "function" field must be exactly "start" or "init"; anything else
// is rejected with the allowed values named in the error.
func CheckStartMessage(msg Message) error {
	fn := msg.Function()
	if fn == "" {
		return oops.Code("MESSAGE_INVALID").
			With("allowed", startFunctions).
			Errorf("start message is missing the %q field", FunctionKey)
	}
	for _, allowed := range startFunctions {
		if fn == allowed {
			return nil
		}
	}
	return oops.Code("MESSAGE_INVALID").
		With("allowed", startFunctions).
		With("got", fn).
		Errorf("start message function must be one of %v, got %q", startFunctions, fn)
}
