package model

import (
	"errors"
	"fmt"
)

// Stable error codes surfaced to callers. Raw upstream errors never leave the
// service; they are wrapped in a PipelineError with one of these codes.
const (
	CodeInvalidInput        = "invalid-input"
	CodeInvalidAddress      = "invalid-address"
	CodeInvalidCoordinates  = "invalid-coordinates"
	CodeNoCandidates        = "no-candidates"
	CodeUpstreamUnavailable = "upstream-unavailable"
	CodeDeadlineExceeded    = "deadline-exceeded"
	CodeServerError         = "server-error"
)

// ErrorDetail is the error payload shape
type ErrorDetail struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code"`
}

// ErrorResponse is the envelope returned on every error
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// PipelineError is a classified failure of a pipeline stage
type PipelineError struct {
	Code    string
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// NewPipelineError wraps err under a stable code
func NewPipelineError(code, message string, err error) *PipelineError {
	return &PipelineError{Code: code, Message: message, Err: err}
}

// ErrorCode extracts the stable code from err, or server-error when err is
// not a PipelineError.
func ErrorCode(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeServerError
}

// IsCode reports whether err carries the given code
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}
