package server

import (
	"encoding/json"
	"fmt"

	"github.com/zeusync/arena/internal/core/battle"
)

// Client actions.
const (
	ActionTarget  = "target"
	ActionPause   = "pause"
	ActionRestart = "restart"
)

// Server frame types.
const (
	FrameState = "state"
	FrameError = "error"
)

// Command is a client to server message.
type Command struct {
	Action string `json:"action"`
	Target string `json:"target,omitempty"`
	Paused bool   `json:"paused,omitempty"`
}

// Frame is a server to client message. State is set on state frames, Code
// and Error on error frames.
type Frame struct {
	Type  string           `json:"type"`
	State *battle.Snapshot `json:"state,omitempty"`
	Code  battle.ErrorCode `json:"code,omitempty"`
	Error string           `json:"error,omitempty"`
}

func decodeCommand(p []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(p, &cmd); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if cmd.Action == "" {
		return Command{}, fmt.Errorf("%w: missing action", ErrInvalidMessage)
	}
	return cmd, nil
}

func stateFrame(snap battle.Snapshot) ([]byte, error) {
	return json.Marshal(Frame{Type: FrameState, State: &snap})
}

func errorFrame(err error) ([]byte, error) {
	return json.Marshal(Frame{Type: FrameError, Code: codeOf(err), Error: err.Error()})
}
