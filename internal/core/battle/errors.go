package battle

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalTarget rejects a target command. The concrete reason is wrapped alongside it.
	ErrIllegalTarget = errors.New("illegal target")
	// ErrInvariantViolation marks units or configuration the engine cannot run with.
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrResolutionInFlight rejects a restart issued from inside an advance step.
	ErrResolutionInFlight = errors.New("resolution in flight")
	ErrNotInitialized     = errors.New("battle not initialized")

	// Target rejection reasons

	ErrNoActorAwaitingTarget = errors.New("no player actor is awaiting a target")
	ErrTargetNotFound        = errors.New("target not found")
	ErrTargetDead            = errors.New("target is dead")
	ErrTargetSameSide        = errors.New("target is on the actor's side")
	ErrSessionPaused         = errors.New("session is paused")
	ErrBattleOver            = errors.New("battle is over")

	ErrNoRoster = errors.New("no roster source to generate enemies")
)

// ErrorCode is the numeric form of an engine error, used on the wire.
type ErrorCode int

const (
	CodeOK                 ErrorCode = 0
	CodeIllegalTarget      ErrorCode = 1001
	CodeInvariantViolation ErrorCode = 2001
	CodeResolutionInFlight ErrorCode = 3001
	CodeNotInitialized     ErrorCode = 3002
	CodeUnknown            ErrorCode = 9999
)

var codeKinds = map[ErrorCode]error{
	CodeIllegalTarget:      ErrIllegalTarget,
	CodeInvariantViolation: ErrInvariantViolation,
	CodeResolutionInFlight: ErrResolutionInFlight,
	CodeNotInitialized:     ErrNotInitialized,
}

// Error is an engine error with a code and an optional cause.
// errors.Is matches both the code's sentinel and the cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if kind, ok := codeKinds[e.Code]; ok {
		errs = append(errs, kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func newError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func illegalTarget(targetID string, reason error) *Error {
	return newError(CodeIllegalTarget, fmt.Sprintf("illegal target %q", targetID), reason)
}

func invariantf(format string, args ...any) *Error {
	return newError(CodeInvariantViolation, ErrInvariantViolation.Error(), fmt.Errorf(format, args...))
}

// CodeOf returns the code for err.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	for code, kind := range codeKinds {
		if errors.Is(err, kind) {
			return code
		}
	}
	return CodeUnknown
}
