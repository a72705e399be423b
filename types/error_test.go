package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrRuntimeFailure, "spawn failed").
		WithCause(root).
		WithHTTPStatus(502).
		WithRetryable(true)

	if GetErrorCode(err) != ErrRuntimeFailure {
		t.Fatalf("expected code %s, got %s", ErrRuntimeFailure, GetErrorCode(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("remove agent: %w", Errorf(ErrAgentNotFound, "agent %s not found", "a-1"))

	if !errors.Is(err, NewError(ErrAgentNotFound, "")) {
		t.Fatalf("expected wrapped error to match by code")
	}
	if errors.Is(err, NewError(ErrTaskNotFound, "")) {
		t.Fatalf("expected different code not to match")
	}
	if !IsErrorCode(err, ErrAgentNotFound) {
		t.Fatalf("expected IsErrorCode to see through wrapping")
	}
	if IsRetryable(errors.New("plain")) {
		t.Fatalf("plain errors are never retryable")
	}
	if GetErrorCode(errors.New("plain")) != "" {
		t.Fatalf("plain errors carry no code")
	}
}
