package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Session / startup errors
	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSessionInvalid  ErrorCode = "SESSION_INVALID"

	// Socket transport errors
	ErrCodeSocketConnect ErrorCode = "SOCKET_CONNECT"
	ErrCodeSocketRead    ErrorCode = "SOCKET_READ"
	ErrCodeSocketWrite   ErrorCode = "SOCKET_WRITE"
	ErrCodeSocketClosed  ErrorCode = "SOCKET_CLOSED"

	// Protocol errors
	ErrCodeProtocolMalformed ErrorCode = "PROTOCOL_MALFORMED"
	ErrCodeStateParse        ErrorCode = "STATE_PARSE"

	// Command errors
	ErrCodeCommandRejected ErrorCode = "COMMAND_REJECTED"
	ErrCodeCommandBusy     ErrorCode = "COMMAND_BUSY"

	// Retry errors
	ErrCodeRetryExhausted ErrorCode = "RETRY_EXHAUSTED"

	// Configuration errors
	ErrCodeConfigNotFound   ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    ErrorCode = "CONFIG_INVALID"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// Daemon errors
	ErrCodeDaemonNotRunning ErrorCode = "DAEMON_NOT_RUNNING"

	// General errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// VdError represents a structured error with context
type VdError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *VdError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *VdError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *VdError) WithDetail(key string, value interface{}) *VdError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *VdError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new VdError
func New(code ErrorCode, message string) *VdError {
	return &VdError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a VdError
func Wrap(err error, code ErrorCode, message string) *VdError {
	return &VdError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific VdError code
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	vdErr, ok := err.(*VdError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return Is(unwrapper.Unwrap(), code)
		}
		return false
	}

	return vdErr.Code == code
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	vdErr, ok := err.(*VdError)
	if !ok {
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return vdErr.Code
}
