package types

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a pipeline failure.
type ErrorCode string

const (
	ErrValidation  ErrorCode = "validation"
	ErrScan        ErrorCode = "scan"
	ErrInfection   ErrorCode = "infection"
	ErrTransfer    ErrorCode = "transfer"
	ErrTempStorage ErrorCode = "temp_storage"
	ErrPersistence ErrorCode = "persistence"
	ErrUnexpected  ErrorCode = "unexpected"
)

// PipelineError is the classified error passed between pipeline stages.
// Blocking is the single authoritative signal for batch continuation: a
// blocking error aborts the remaining tasks, a non-blocking one only fails
// the current file.
type PipelineError struct {
	Code        ErrorCode
	Message     string // internal diagnostic, logged in full
	UserMessage string // sanitized message returned to the caller
	Blocking    bool
	Err         error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Sanitized returns the user-facing message, falling back to a generic one
// so internal detail never leaks to the caller.
func (e *PipelineError) Sanitized() string {
	if e.UserMessage != "" {
		return e.UserMessage
	}
	return "upload failed, please try again later"
}

// NewPipelineError builds a classified error wrapping cause (cause may be nil).
func NewPipelineError(code ErrorCode, blocking bool, msg string, cause error) *PipelineError {
	return &PipelineError{Code: code, Message: msg, Blocking: blocking, Err: cause}
}

// AsPipelineError unwraps err into a *PipelineError if it carries one.
func AsPipelineError(err error) (*PipelineError, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsBlocking reports whether err demands aborting the remaining batch.
// Unclassified errors are treated as blocking, matching the unexpected-error
// policy.
func IsBlocking(err error) bool {
	if err == nil {
		return false
	}
	if pe, ok := AsPipelineError(err); ok {
		return pe.Blocking
	}
	return true
}
