package agent

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewRegistry(t *testing.T) {
	t.Run("registers tools in order", func(t *testing.T) {
		registry := mustRegistry(t,
			newFakeTool(ToolAddTask, true),
			newFakeTool(ToolListTasks, false),
		)
		names := registry.Names()
		if len(names) != 2 || names[0] != ToolAddTask || names[1] != ToolListTasks {
			t.Errorf("unexpected order: %v", names)
		}
	})

	t.Run("rejects names outside the closed set", func(t *testing.T) {
		tool := newFakeTool("run_shell", false)
		if _, err := NewRegistry(tool); err == nil {
			t.Error("expected error for unknown tool name")
		}
	})

	t.Run("rejects duplicate registration", func(t *testing.T) {
		if _, err := NewRegistry(newFakeTool(ToolAddTask, true), newFakeTool(ToolAddTask, true)); err == nil {
			t.Error("expected error for duplicate tool")
		}
	})

	t.Run("rejects mutating tool without verifier", func(t *testing.T) {
		if _, err := NewRegistry(unverifiableTool{}); err == nil {
			t.Error("expected error for mutating tool without Verifier")
		}
	})

	t.Run("rejects invalid schema", func(t *testing.T) {
		tool := newFakeTool(ToolAddTask, true)
		tool.schema = json.RawMessage(`{"type": 42}`)
		if _, err := NewRegistry(tool); err == nil {
			t.Error("expected schema compile error")
		}
	})
}

func TestRegistry_Get(t *testing.T) {
	registry := mustRegistry(t, newFakeTool(ToolAddTask, true))

	t.Run("returns registered tool", func(t *testing.T) {
		tool, err := registry.Get("add_task")
		if err != nil || tool.Name() != ToolAddTask {
			t.Errorf("expected add_task, got %v (%v)", tool, err)
		}
	})

	t.Run("rejects names outside the closed set", func(t *testing.T) {
		_, err := registry.Get("drop_database")
		if !errors.Is(err, ErrUnknownTool) {
			t.Errorf("expected ErrUnknownTool, got %v", err)
		}
	})

	t.Run("rejects known names that were not registered", func(t *testing.T) {
		_, err := registry.Get("list_tasks")
		if !errors.Is(err, ErrUnknownTool) {
			t.Errorf("expected ErrUnknownTool, got %v", err)
		}
	})
}

func TestRegistry_Validate(t *testing.T) {
	tool := newFakeTool(ToolAddTask, true)
	tool.schema = json.RawMessage(`{
		"type": "object",
		"properties": {
			"title": {"type": "string", "minLength": 1}
		},
		"required": ["title"],
		"additionalProperties": false
	}`)
	registry := mustRegistry(t, tool)

	t.Run("accepts conforming arguments", func(t *testing.T) {
		if err := registry.Validate(ToolAddTask, json.RawMessage(`{"title":"Buy milk"}`)); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("rejects missing required field", func(t *testing.T) {
		err := registry.Validate(ToolAddTask, json.RawMessage(`{}`))
		if !IsValidationError(err) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("rejects unknown properties", func(t *testing.T) {
		err := registry.Validate(ToolAddTask, json.RawMessage(`{"title":"x","owner_id":"someone-else"}`))
		if !IsValidationError(err) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		err := registry.Validate(ToolAddTask, json.RawMessage(`{"title":`))
		if !IsValidationError(err) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("empty arguments validate as empty object", func(t *testing.T) {
		// Schema requires title, so the empty object must fail -- but as a
		// validation error, not a JSON parse error.
		err := registry.Validate(ToolAddTask, nil)
		if !IsValidationError(err) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("rejects oversized argument payloads", func(t *testing.T) {
		big := make(json.RawMessage, MaxToolArgsSize+1)
		err := registry.Validate(ToolAddTask, big)
		if !IsValidationError(err) {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

func TestRegistry_Definitions(t *testing.T) {
	registry := mustRegistry(t,
		newFakeTool(ToolAddTask, true),
		newFakeTool(ToolGetAnalytics, false),
	)
	defs := registry.Definitions()
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}
	if defs[0].Name != "add_task" || defs[1].Name != "get_analytics" {
		t.Errorf("unexpected definition order: %v, %v", defs[0].Name, defs[1].Name)
	}
	if defs[0].Description == "" || len(defs[0].InputSchema) == 0 {
		t.Error("definitions must carry description and schema")
	}
}
