package timeline

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedAction = errors.New("unsupported action")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrInvalidParams     = errors.New("invalid params")
	ErrInternal          = errors.New("internal error")
)

// Outcome codes reported per action.
const (
	CodeUnsupportedAction = "UNSUPPORTED_ACTION"
	CodeIndexOutOfRange   = "INDEX_OUT_OF_RANGE"
	CodeInvalidParams     = "INVALID_PARAMS"
	CodeInternal          = "INTERNAL_ERROR"
)

// ActionError ties a failure to the batch position and action type that produced it.
type ActionError struct {
	Index int
	Type  ActionType
	Err   error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %d (%s): %v", e.Index, e.Type, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// Code maps an error to its outcome code. Unknown errors map to INTERNAL_ERROR.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedAction):
		return CodeUnsupportedAction
	case errors.Is(err, ErrIndexOutOfRange):
		return CodeIndexOutOfRange
	case errors.Is(err, ErrInvalidParams):
		return CodeInvalidParams
	default:
		return CodeInternal
	}
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParams, fmt.Sprintf(format, args...))
}

func outOfRange(what string, index, length int) error {
	return fmt.Errorf("%w: %s %d (have %d)", ErrIndexOutOfRange, what, index, length)
}
