package client

import (
	"errors"
	"fmt"

	"github.com/zeusync/arena/internal/core/battle"
)

// Client-specific errors
var (
	ErrClientClosed   = errors.New("client is closed")
	ErrInvalidConfig  = errors.New("invalid client configuration")
	ErrInvalidMessage = errors.New("invalid message")
)

// ServerError is an error frame sent by the server.
type ServerError struct {
	Code    battle.ErrorCode
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}

// Is matches the engine sentinel carrying the same code, so
// errors.Is(err, battle.ErrIllegalTarget) works across the wire.
func (e *ServerError) Is(target error) bool {
	return e.Code != battle.CodeUnknown && battle.CodeOf(target) == e.Code
}
