package agent

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/taskpilot/internal/backoff"
)

// verifyMutation confirms a mutation's post-condition by read-back. On
// mismatch it re-executes the mutation once, then re-verifies; if still
// mismatched, the call is reported unverified so the reply states the
// uncertainty instead of claiming success.
//
// Returns (verified, result, err) where result is the output of whichever
// execution attempt stands.
func (e *Executor) verifyMutation(ctx context.Context, ownerID string, tool Tool, args json.RawMessage, result any) (bool, any, error) {
	verifier := tool.(Verifier)

	if err := verifier.Verify(ctx, ownerID, args, result); err == nil {
		return true, result, nil
	}

	name := string(tool.Name())
	e.logger.Warn("verification mismatch, retrying mutation", "tool", name)

	if err := backoff.Sleep(ctx, backoff.DefaultPolicy(), 0); err != nil {
		if e.metrics != nil {
			e.metrics.RecordVerificationMismatch(name, "failed")
		}
		return false, result, &VerificationError{Tool: name, Detail: "retry interrupted"}
	}

	retried, execErr := tool.Execute(ctx, ownerID, args)
	if execErr == nil {
		result = retried
		if err := verifier.Verify(ctx, ownerID, args, result); err == nil {
			if e.metrics != nil {
				e.metrics.RecordVerificationMismatch(name, "recovered")
			}
			return true, result, nil
		}
	}

	if e.metrics != nil {
		e.metrics.RecordVerificationMismatch(name, "failed")
	}
	e.logger.Error("verification failed after retry", "tool", name)
	return false, result, &VerificationError{Tool: name, Detail: "state did not match expected effect after retry"}
}
