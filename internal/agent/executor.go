package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/haasonsaas/taskpilot/internal/observability"
)

// ExecutedCall is the outcome of one tool invocation within a turn.
type ExecutedCall struct {
	Invocation ToolInvocation

	// Result is the tool's output, nil when Err is set.
	Result any

	// Err captures the per-call failure. One failed call does not abort
	// its siblings.
	Err error

	// Mutating mirrors the tool's mutating flag at execution time.
	Mutating bool

	// Verified is true when the call either needed no verification (reads)
	// or its post-condition was confirmed by read-back. The synthesizer
	// only asserts success for verified calls.
	Verified bool
}

// Executor dispatches invocations against the registry, scoped to the
// authenticated owner. Invocations within one turn run sequentially in
// extraction order because later calls may depend on state left verified by
// earlier ones.
type Executor struct {
	registry *Registry
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewExecutor creates an executor over the given registry. metrics may be nil.
func NewExecutor(registry *Registry, logger *slog.Logger, metrics *observability.Metrics) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{registry: registry, logger: logger, metrics: metrics}
}

// Execute runs all invocations in order and returns one ExecutedCall per
// invocation. The owner identity is injected here from the authenticated
// caller; anything the model put in the arguments cannot widen scope because
// tools only ever read the ownerID parameter.
func (e *Executor) Execute(ctx context.Context, ownerID string, invocations []ToolInvocation) []ExecutedCall {
	results := make([]ExecutedCall, 0, len(invocations))
	for _, inv := range invocations {
		results = append(results, e.executeOne(ctx, ownerID, inv))
	}
	return results
}

func (e *Executor) executeOne(ctx context.Context, ownerID string, inv ToolInvocation) ExecutedCall {
	call := ExecutedCall{Invocation: inv}
	start := time.Now()

	tool, err := e.registry.Get(inv.Name)
	if err != nil {
		call.Err = err
		e.record(inv.Name, "error", start)
		e.logger.Warn("rejected tool invocation", "tool", inv.Name, "error", err)
		return call
	}
	call.Mutating = tool.Mutating()

	args := inv.Arguments
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	if err := e.registry.Validate(tool.Name(), args); err != nil {
		call.Err = err
		e.record(inv.Name, "error", start)
		e.logger.Warn("invalid tool arguments", "tool", inv.Name, "error", err)
		return call
	}

	result, err := tool.Execute(ctx, ownerID, args)
	if err != nil {
		call.Err = err
		e.record(inv.Name, "error", start)
		e.logger.Warn("tool execution failed", "tool", inv.Name, "error", err)
		return call
	}
	call.Result = result

	if !call.Mutating {
		call.Verified = true
		e.record(inv.Name, "success", start)
		return call
	}

	verified, result, err := e.verifyMutation(ctx, ownerID, tool, args, result)
	call.Verified = verified
	if result != nil {
		call.Result = result
	}
	if err != nil {
		call.Err = err
	}
	status := "success"
	if !verified {
		status = "error"
	}
	e.record(inv.Name, status, start)
	return call
}

func (e *Executor) record(tool, status string, start time.Time) {
	if e.metrics != nil {
		e.metrics.RecordToolExecution(tool, status, time.Since(start).Seconds())
	}
}
