// Package providers implements completion backend integrations for the
// taskpilot agent. Each provider adapts one vendor API to the
// agent.LLMProvider interface: request conversion, tool schema translation,
// retry of transient failures, and response normalization.
package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// FailReason categorizes why a provider request failed, for retry decisions.
type FailReason string

const (
	// FailRateLimit indicates rate limiting (HTTP 429)
	FailRateLimit FailReason = "rate_limit"

	// FailTimeout indicates a request timeout
	FailTimeout FailReason = "timeout"

	// FailServerError indicates server-side issues (HTTP 5xx)
	FailServerError FailReason = "server_error"

	// FailAuth indicates authentication failure (HTTP 401, 403)
	FailAuth FailReason = "auth"

	// FailInvalidRequest indicates client-side issues (HTTP 400)
	FailInvalidRequest FailReason = "invalid_request"

	// FailUnknown indicates an unclassified error
	FailUnknown FailReason = "unknown"
)

// IsRetryable returns true if the reason suggests retrying may succeed.
func (r FailReason) IsRetryable() bool {
	switch r {
	case FailRateLimit, FailTimeout, FailServerError:
		return true
	default:
		return false
	}
}

// ProviderError is a structured error from a completion backend.
type ProviderError struct {
	Reason   FailReason
	Provider string
	Model    string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s request failed (%s): %v", e.Provider, e.Reason, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// classifyError maps a vendor SDK error onto a FailReason by message
// inspection. Vendor SDKs do not expose a stable typed taxonomy, so string
// matching is the practical option.
func classifyError(err error) FailReason {
	if err == nil {
		return FailUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return FailTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return FailRateLimit
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return FailTimeout
	case strings.Contains(msg, "500") || strings.Contains(msg, "502") ||
		strings.Contains(msg, "503") || strings.Contains(msg, "504") ||
		strings.Contains(msg, "overloaded"):
		return FailServerError
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") ||
		strings.Contains(msg, "unauthorized") || strings.Contains(msg, "api key"):
		return FailAuth
	case strings.Contains(msg, "400") || strings.Contains(msg, "invalid"):
		return FailInvalidRequest
	default:
		return FailUnknown
	}
}
