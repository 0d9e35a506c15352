package agent

import (
	"errors"
	"fmt"
)

// Common sentinel errors for agent turn processing
var (
	// ErrServiceUnavailable indicates the completion backend is unreachable or timed out
	ErrServiceUnavailable = errors.New("completion service unavailable")

	// ErrNoProvider indicates no LLM provider is configured
	ErrNoProvider = errors.New("no provider configured")

	// ErrUnknownTool indicates the model requested a tool outside the registry
	ErrUnknownTool = errors.New("unknown tool")

	// ErrDuplicateMessage indicates the same message was submitted twice in a short window
	ErrDuplicateMessage = errors.New("duplicate message")
)

// ValidationError reports malformed tool arguments. It is surfaced to the user
// as a clarification request, never as a raw parse error.
type ValidationError struct {
	Tool   string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Detail)
}

// NewValidationError creates a ValidationError for the given tool.
func NewValidationError(tool, format string, args ...any) *ValidationError {
	return &ValidationError{Tool: tool, Detail: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// VerificationError reports that a mutation's post-condition could not be
// confirmed by read-back after the retry budget was exhausted.
type VerificationError struct {
	Tool   string
	Detail string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("could not verify %s: %s", e.Tool, e.Detail)
}

// IsVerificationError reports whether err is (or wraps) a VerificationError.
func IsVerificationError(err error) bool {
	var ve *VerificationError
	return errors.As(err, &ve)
}
