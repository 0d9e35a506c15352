package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ToolName is the closed set of tool identifiers the orchestrator dispatches
// on. Model output naming anything outside this set is rejected at the
// boundary rather than dispatched by raw string.
type ToolName string

const (
	ToolAddTask      ToolName = "add_task"
	ToolListTasks    ToolName = "list_tasks"
	ToolUpdateTask   ToolName = "update_task"
	ToolCompleteTask ToolName = "complete_task"
	ToolDeleteTask   ToolName = "delete_task"
	ToolGetAnalytics ToolName = "get_analytics"
)

// ParseToolName maps a raw string from model output onto the closed set.
func ParseToolName(s string) (ToolName, bool) {
	switch ToolName(s) {
	case ToolAddTask, ToolListTasks, ToolUpdateTask, ToolCompleteTask, ToolDeleteTask, ToolGetAnalytics:
		return ToolName(s), true
	default:
		return "", false
	}
}

// Tool defines one executable task operation.
type Tool interface {
	// Name returns the tool's identifier from the closed set.
	Name() ToolName

	// Description returns a natural language description for the model.
	Description() string

	// Schema returns the JSON Schema for the tool's arguments.
	Schema() json.RawMessage

	// Mutating reports whether executing this tool changes stored state.
	// Mutating tools must also implement Verifier.
	Mutating() bool

	// Execute runs the tool scoped to the authenticated owner. The owner
	// identity comes from the caller, never from model output. The
	// returned value must be JSON-marshalable.
	Execute(ctx context.Context, ownerID string, args json.RawMessage) (any, error)
}

// Verifier re-reads stored state after a mutation and confirms the expected
// post-condition. Implemented by every mutating tool.
type Verifier interface {
	// Verify returns nil when the observed state matches the effect the
	// Execute result claims. A non-nil error means the mutation could not
	// be confirmed.
	Verify(ctx context.Context, ownerID string, args json.RawMessage, result any) error
}

// MaxToolArgsSize bounds tool argument JSON accepted from model output.
const MaxToolArgsSize = 64 << 10

// Registry is a static table of tool name to handler. The tool set is fixed
// at construction; there is no runtime registration.
type Registry struct {
	tools    map[ToolName]Tool
	order    []ToolName
	compiled map[ToolName]*jsonschema.Schema
}

// NewRegistry builds a registry from the given tools, compiling each tool's
// argument schema. Mutating tools must implement Verifier.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{
		tools:    make(map[ToolName]Tool, len(tools)),
		compiled: make(map[ToolName]*jsonschema.Schema, len(tools)),
	}
	for _, tool := range tools {
		name := tool.Name()
		if _, ok := ParseToolName(string(name)); !ok {
			return nil, fmt.Errorf("tool %q is not in the closed tool set", name)
		}
		if _, dup := r.tools[name]; dup {
			return nil, fmt.Errorf("tool %q registered twice", name)
		}
		if tool.Mutating() {
			if _, ok := tool.(Verifier); !ok {
				return nil, fmt.Errorf("mutating tool %q does not implement Verifier", name)
			}
		}

		compiler := jsonschema.NewCompiler()
		url := "schema://tools/" + string(name) + ".json"
		if err := compiler.AddResource(url, bytes.NewReader(tool.Schema())); err != nil {
			return nil, fmt.Errorf("failed to load schema for %q: %w", name, err)
		}
		schema, err := compiler.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema for %q: %w", name, err)
		}

		r.tools[name] = tool
		r.compiled[name] = schema
		r.order = append(r.order, name)
	}
	return r, nil
}

// Get returns a tool by its raw name. Unknown names are rejected here, at
// the boundary, before any dispatch happens.
func (r *Registry) Get(raw string) (Tool, error) {
	name, ok := ParseToolName(raw)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, raw)
	}
	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, raw)
	}
	return tool, nil
}

// Validate checks raw argument JSON against the tool's compiled schema.
// An empty argument payload validates as an empty object.
func (r *Registry) Validate(name ToolName, args json.RawMessage) error {
	schema, ok := r.compiled[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	if len(args) > MaxToolArgsSize {
		return NewValidationError(string(name), "arguments exceed %d bytes", MaxToolArgsSize)
	}
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	var decoded any
	if err := json.Unmarshal(args, &decoded); err != nil {
		return NewValidationError(string(name), "arguments are not valid JSON")
	}
	if err := schema.Validate(decoded); err != nil {
		return NewValidationError(string(name), "%v", err)
	}
	return nil
}

// Definitions returns the tool schemas for the completion request, in
// registration order.
func (r *Registry) Definitions() []ToolDefinition {
	defs := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		tool := r.tools[name]
		defs = append(defs, ToolDefinition{
			Name:        string(name),
			Description: tool.Description(),
			InputSchema: tool.Schema(),
		})
	}
	return defs
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []ToolName {
	return append([]ToolName(nil), r.order...)
}
