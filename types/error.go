package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the swarm packages.
type ErrorCode string

// Not-found conditions
const (
	ErrAgentNotFound     ErrorCode = "AGENT_NOT_FOUND"
	ErrTaskNotFound      ErrorCode = "TASK_NOT_FOUND"
	ErrRecipientNotFound ErrorCode = "RECIPIENT_NOT_FOUND"
	ErrProposalNotFound  ErrorCode = "PROPOSAL_NOT_FOUND"
)

// Capacity and timing conditions
const (
	ErrNoSuitableAgents ErrorCode = "NO_SUITABLE_AGENTS"
	ErrRequestTimeout   ErrorCode = "REQUEST_TIMEOUT"
	ErrConsensusTimeout ErrorCode = "CONSENSUS_TIMEOUT"
	ErrRateLimited      ErrorCode = "RATE_LIMITED"
)

// Protocol-violation conditions
const (
	ErrProposalNotOpen   ErrorCode = "PROPOSAL_NOT_OPEN"
	ErrDuplicateProposal ErrorCode = "DUPLICATE_PROPOSAL"
	ErrDuplicateVote     ErrorCode = "DUPLICATE_VOTE"
	ErrDuplicateAgent    ErrorCode = "DUPLICATE_AGENT"
	ErrDuplicateTask     ErrorCode = "DUPLICATE_TASK"
	ErrTaskNotActive     ErrorCode = "TASK_NOT_ACTIVE"
)

// Configuration and lifecycle conditions
const (
	ErrCommunicationDisabled ErrorCode = "COMMUNICATION_DISABLED"
	ErrInvalidCapability     ErrorCode = "INVALID_CAPABILITY"
	ErrInvalidRequest        ErrorCode = "INVALID_REQUEST"
	ErrUnsupportedAlgorithm  ErrorCode = "UNSUPPORTED_ALGORITHM"
	ErrRuntimeFailure        ErrorCode = "RUNTIME_FAILURE"
	ErrFabricClosed          ErrorCode = "FABRIC_CLOSED"
	ErrEngineClosed          ErrorCode = "ENGINE_CLOSED"
	ErrInternalError         ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error carrying the same code, so that
// errors.Is(err, types.NewError(types.ErrAgentNotFound, "")) matches any
// agent-not-found error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// AsError extracts the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether err carries the given code anywhere in its chain.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
