package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/haasonsaas/taskpilot/internal/storage"
)

// Synthesize builds the reply text strictly from executed, verified tool
// results. Unverified model claims never reach the user; generating the
// confirmation in code is more reliable than asking the model to do it.
func Synthesize(calls []ExecutedCall) string {
	var parts []string

	for _, call := range calls {
		if line := describeCall(call); line != "" {
			parts = append(parts, line)
		}
	}

	if len(parts) == 0 {
		return "Done!"
	}
	return strings.Join(parts, " ")
}

func describeCall(call ExecutedCall) string {
	name := call.Invocation.Name

	switch {
	case call.Err != nil && IsVerificationError(call.Err):
		return fmt.Sprintf("I tried to %s, but couldn't confirm it went through. Please check your task list.", toolVerb(name))
	case call.Err != nil && IsValidationError(call.Err):
		return fmt.Sprintf("I didn't understand the details needed to %s. Could you rephrase that?", toolVerb(name))
	case call.Err != nil && errors.Is(call.Err, storage.ErrNotFound):
		return "I couldn't find that task."
	case call.Err != nil && errors.Is(call.Err, ErrUnknownTool):
		return "I tried to use an operation I don't support. Could you rephrase that?"
	case call.Err != nil:
		return fmt.Sprintf("Sorry, there was an error: %v.", call.Err)
	case !call.Verified:
		return fmt.Sprintf("I tried to %s, but couldn't confirm it went through. Please check your task list.", toolVerb(name))
	}

	result := resultFields(call.Result)

	switch ToolName(name) {
	case ToolAddTask:
		title := stringField(result, "title", "your task")
		if rec := stringField(result, "recurrence_pattern", ""); rec != "" && rec != "none" {
			return fmt.Sprintf("Done! I've added '%s' as a %s recurring task.", title, rec)
		}
		return fmt.Sprintf("Done! I've added '%s' to your list.", title)

	case ToolListTasks:
		return describeTaskList(result)

	case ToolCompleteTask:
		title := stringField(result, "title", "task")
		if boolField(result, "already_completed") {
			return fmt.Sprintf("'%s' is already complete.", title)
		}
		line := fmt.Sprintf("Marked '%s' as complete!", title)
		if next, ok := result["next_task"].(map[string]any); ok {
			if nextTitle := stringField(next, "title", ""); nextTitle != "" {
				line += fmt.Sprintf(" Created next recurring task: '%s'.", nextTitle)
			}
		}
		return line

	case ToolDeleteTask:
		title := stringField(result, "title", "task")
		return fmt.Sprintf("Deleted '%s' from your list.", title)

	case ToolUpdateTask:
		title := stringField(result, "title", "task")
		return fmt.Sprintf("Updated '%s'.", title)

	case ToolGetAnalytics:
		return describeAnalytics(result)
	}
	return ""
}

func describeTaskList(result map[string]any) string {
	rawTasks, _ := result["tasks"].([]any)
	count := len(rawTasks)
	if n, ok := result["count"].(float64); ok {
		count = int(n)
	}
	if count == 0 {
		return "You don't have any tasks right now."
	}

	var lines []string
	for i, raw := range rawTasks {
		if i >= 10 {
			break
		}
		task, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		status := "pending"
		if boolField(task, "completed") {
			status = "completed"
		}
		title := stringField(task, "title", "Untitled")
		priority := stringField(task, "priority", "medium")
		lines = append(lines, fmt.Sprintf("%d. %s (%s, %s)", i+1, title, priority, status))
	}
	return fmt.Sprintf("You have %d task(s):\n%s", count, strings.Join(lines, "\n"))
}

func describeAnalytics(result map[string]any) string {
	summary, _ := result["summary"].(map[string]any)
	total := intField(summary, "total_tasks")
	completed := intField(summary, "completed_count")
	pending := intField(summary, "pending_count")
	rate := 0.0
	if v, ok := summary["completion_rate"].(float64); ok {
		rate = v
	}
	return fmt.Sprintf("You have %d total tasks: %d completed, %d pending. Completion rate: %.0f%%.",
		total, completed, pending, rate)
}

// resultFields flattens a tool result into a generic JSON view so the
// synthesizer does not depend on the tool packages' concrete types.
func resultFields(result any) map[string]any {
	if result == nil {
		return nil
	}
	if m, ok := result.(map[string]any); ok {
		return m
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

func stringField(m map[string]any, key, fallback string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func boolField(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func intField(m map[string]any, key string) int {
	if f, ok := m[key].(float64); ok {
		return int(f)
	}
	return 0
}

func toolVerb(name string) string {
	switch ToolName(name) {
	case ToolAddTask:
		return "add the task"
	case ToolUpdateTask:
		return "update the task"
	case ToolCompleteTask:
		return "complete the task"
	case ToolDeleteTask:
		return "delete the task"
	case ToolListTasks:
		return "list your tasks"
	case ToolGetAnalytics:
		return "fetch your stats"
	default:
		return "do that"
	}
}
