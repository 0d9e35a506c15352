package agent

import (
	"context"
	"encoding/json"
	"fmt"
)

// fakeTool is a scriptable tool for registry, executor, and orchestrator
// tests. Mutating fakes implement Verifier through verifyFn.
type fakeTool struct {
	name      ToolName
	mutating  bool
	schema    json.RawMessage
	executeFn func(ctx context.Context, ownerID string, args json.RawMessage) (any, error)
	verifyFn  func(ctx context.Context, ownerID string, args json.RawMessage, result any) error

	executeCalls int
	verifyCalls  int
}

const openSchema = `{"type":"object","additionalProperties":true}`

func newFakeTool(name ToolName, mutating bool) *fakeTool {
	return &fakeTool{
		name:     name,
		mutating: mutating,
		schema:   json.RawMessage(openSchema),
		executeFn: func(ctx context.Context, ownerID string, args json.RawMessage) (any, error) {
			return map[string]any{"status": "ok"}, nil
		},
		verifyFn: func(ctx context.Context, ownerID string, args json.RawMessage, result any) error {
			return nil
		},
	}
}

func (f *fakeTool) Name() ToolName          { return f.name }
func (f *fakeTool) Description() string     { return fmt.Sprintf("fake %s", f.name) }
func (f *fakeTool) Schema() json.RawMessage { return f.schema }
func (f *fakeTool) Mutating() bool          { return f.mutating }

func (f *fakeTool) Execute(ctx context.Context, ownerID string, args json.RawMessage) (any, error) {
	f.executeCalls++
	return f.executeFn(ctx, ownerID, args)
}

func (f *fakeTool) Verify(ctx context.Context, ownerID string, args json.RawMessage, result any) error {
	f.verifyCalls++
	return f.verifyFn(ctx, ownerID, args, result)
}

// unverifiableTool is a mutating tool without a Verifier, for registry
// construction failure tests.
type unverifiableTool struct{}

func (unverifiableTool) Name() ToolName          { return ToolDeleteTask }
func (unverifiableTool) Description() string     { return "mutates without verification" }
func (unverifiableTool) Schema() json.RawMessage { return json.RawMessage(openSchema) }
func (unverifiableTool) Mutating() bool          { return true }
func (unverifiableTool) Execute(ctx context.Context, ownerID string, args json.RawMessage) (any, error) {
	return nil, nil
}

// fakeProvider returns scripted completions in order.
type fakeProvider struct {
	completions []*Completion
	err         error
	requests    []*CompletionRequest
}

func (p *fakeProvider) Complete(ctx context.Context, req *CompletionRequest) (*Completion, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	if len(p.completions) == 0 {
		return &Completion{Text: "ok", StopReason: "end_turn"}, nil
	}
	next := p.completions[0]
	if len(p.completions) > 1 {
		p.completions = p.completions[1:]
	}
	return next, nil
}

func (p *fakeProvider) Name() string { return "fake" }

func mustRegistry(t interface{ Fatalf(string, ...any) }, tools ...Tool) *Registry {
	registry, err := NewRegistry(tools...)
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}
	return registry
}
