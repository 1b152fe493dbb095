package server

import (
	"errors"

	"github.com/zeusync/arena/internal/core/battle"
)

// Server-specific errors
var (
	ErrServerClosed         = errors.New("server is closed")
	ErrServerNotRunning     = errors.New("server is not running")
	ErrServerAlreadyRunning = errors.New("server is already running")
	ErrMaxClientsReached    = errors.New("maximum clients reached")
	ErrInvalidMessage       = errors.New("invalid message")
	ErrUnknownAction        = errors.New("unknown action")
	ErrInvalidTeamSize      = errors.New("invalid team size")
)

// Wire codes for errors that never reach the battle engine.
const (
	CodeBadRequest    battle.ErrorCode = 4001
	CodeUnknownAction battle.ErrorCode = 4002
)

// codeOf extends battle.CodeOf with the protocol errors.
func codeOf(err error) battle.ErrorCode {
	switch {
	case errors.Is(err, ErrInvalidMessage):
		return CodeBadRequest
	case errors.Is(err, ErrUnknownAction):
		return CodeUnknownAction
	default:
		return battle.CodeOf(err)
	}
}
