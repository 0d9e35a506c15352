package agent

import (
	"encoding/json"
	"strings"
	"testing"
)

func decodeArgs(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("failed to decode arguments: %v", err)
	}
	return m
}

func TestExtractCalls(t *testing.T) {
	t.Run("plain text yields nil", func(t *testing.T) {
		if calls := ExtractCalls("Sure, I can help with your tasks."); calls != nil {
			t.Errorf("expected nil, got %d calls", len(calls))
		}
	})

	t.Run("empty content yields nil", func(t *testing.T) {
		if calls := ExtractCalls(""); calls != nil {
			t.Errorf("expected nil, got %d calls", len(calls))
		}
	})

	t.Run("parses function with parameters", func(t *testing.T) {
		content := `<function=add_task><parameter=title>Buy milk</parameter><parameter=priority>high</parameter></function>`
		calls := ExtractCalls(content)
		if len(calls) != 1 {
			t.Fatalf("expected 1 call, got %d", len(calls))
		}
		if calls[0].Name != "add_task" {
			t.Errorf("expected add_task, got %q", calls[0].Name)
		}
		if calls[0].ID != "extracted-1" {
			t.Errorf("expected id extracted-1, got %q", calls[0].ID)
		}
		args := decodeArgs(t, calls[0].Arguments)
		if args["title"] != "Buy milk" || args["priority"] != "high" {
			t.Errorf("unexpected arguments: %v", args)
		}
	})

	t.Run("accepts tool_call wrapper", func(t *testing.T) {
		content := `<tool_call><function=complete_task><parameter=task_id>abc</parameter></function></tool_call>`
		calls := ExtractCalls(content)
		if len(calls) != 1 || calls[0].Name != "complete_task" {
			t.Fatalf("expected one complete_task call, got %v", calls)
		}
	})

	t.Run("parses JSON array parameter values", func(t *testing.T) {
		content := `<function=add_task><parameter=title>Pack</parameter><parameter=tags>["travel", "urgent"]</parameter></function>`
		calls := ExtractCalls(content)
		if len(calls) != 1 {
			t.Fatalf("expected 1 call, got %d", len(calls))
		}
		args := decodeArgs(t, calls[0].Arguments)
		tags, ok := args["tags"].([]any)
		if !ok || len(tags) != 2 || tags[0] != "travel" {
			t.Errorf("expected parsed tags array, got %v", args["tags"])
		}
	})

	t.Run("malformed JSON parameter falls back to string", func(t *testing.T) {
		content := `<function=add_task><parameter=tags>[broken</parameter></function>`
		calls := ExtractCalls(content)
		if len(calls) != 1 {
			t.Fatalf("expected 1 call, got %d", len(calls))
		}
		args := decodeArgs(t, calls[0].Arguments)
		if args["tags"] != "[broken" {
			t.Errorf("expected raw string fallback, got %v", args["tags"])
		}
	})

	t.Run("numbers one call per function block", func(t *testing.T) {
		content := `<function=add_task><parameter=title>A</parameter></function>` +
			`some text between` +
			`<function=list_tasks></function>`
		calls := ExtractCalls(content)
		if len(calls) != 2 {
			t.Fatalf("expected 2 calls, got %d", len(calls))
		}
		if calls[0].ID != "extracted-1" || calls[1].ID != "extracted-2" {
			t.Errorf("unexpected ids: %q, %q", calls[0].ID, calls[1].ID)
		}
	})

	t.Run("function with no parameters yields empty object", func(t *testing.T) {
		calls := ExtractCalls(`<function=get_analytics></function>`)
		if len(calls) != 1 {
			t.Fatalf("expected 1 call, got %d", len(calls))
		}
		args := decodeArgs(t, calls[0].Arguments)
		if len(args) != 0 {
			t.Errorf("expected empty arguments, got %v", args)
		}
	})
}

func TestSanitize(t *testing.T) {
	t.Run("plain text is untouched", func(t *testing.T) {
		in := "Here are your tasks for today."
		if got := Sanitize(in); got != in {
			t.Errorf("expected %q, got %q", in, got)
		}
	})

	t.Run("strips complete tool call blocks", func(t *testing.T) {
		in := "I'll add that.\n<tool_call><function=add_task><parameter=title>Buy milk</parameter></function></tool_call>\nDone."
		got := Sanitize(in)
		if strings.Contains(got, "<") {
			t.Errorf("expected grammar removed, got %q", got)
		}
		if !strings.Contains(got, "I'll add that.") || !strings.Contains(got, "Done.") {
			t.Errorf("expected surrounding text kept, got %q", got)
		}
	})

	t.Run("strips stray unclosed tags", func(t *testing.T) {
		in := "Adding now <function=add_task><parameter=title>Buy milk"
		got := Sanitize(in)
		if strings.Contains(got, "<function") || strings.Contains(got, "<parameter") {
			t.Errorf("expected stray tags removed, got %q", got)
		}
	})

	t.Run("collapses blank line runs", func(t *testing.T) {
		got := Sanitize("one\n\n\n\ntwo")
		if got != "one\n\ntwo" {
			t.Errorf("expected collapsed newlines, got %q", got)
		}
	})

	t.Run("pure grammar sanitizes to empty", func(t *testing.T) {
		in := `<tool_call><function=list_tasks></function></tool_call>`
		if got := Sanitize(in); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})
}
