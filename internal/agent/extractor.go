package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// The fallback invocation grammar emitted by weaker backends that do not
// support structured function calling:
//
//	<tool_call><function=add_task><parameter=title>Buy milk</parameter></function></tool_call>
//
// The <tool_call> wrapper is optional. This path is a best-effort adapter;
// structured invocations from the provider are always preferred.
var (
	functionPattern  = regexp.MustCompile(`(?s)<function=(\w+)>(.*?)</function>`)
	parameterPattern = regexp.MustCompile(`<parameter=(\w+)>([^<]*)</parameter>`)

	toolCallBlockPattern = regexp.MustCompile(`(?s)<tool_call>.*?</tool_call>`)
	functionBlockPattern = regexp.MustCompile(`(?s)<function=\w+>.*?</function>`)
	parameterTagPattern  = regexp.MustCompile(`(?s)<parameter=\w+>.*?</parameter>`)
	strayToolCallPattern = regexp.MustCompile(`</?tool_call>`)
	strayFunctionPattern = regexp.MustCompile(`</?function[^>]*>`)
	strayParamPattern    = regexp.MustCompile(`</?parameter[^>]*>`)
	blankLinesPattern    = regexp.MustCompile(`\n\s*\n`)
)

// ExtractCalls recovers tool invocations from free-text model output.
// Absence of any grammar markers means plain conversational text and yields
// nil. A function block with no parameters parses as an empty-but-valid
// argument object.
func ExtractCalls(content string) []ToolInvocation {
	if content == "" {
		return nil
	}
	if !strings.Contains(content, "<tool_call>") && !strings.Contains(content, "<function=") {
		return nil
	}

	var calls []ToolInvocation
	for _, match := range functionPattern.FindAllStringSubmatch(content, -1) {
		name := match[1]
		body := match[2]

		params := make(map[string]any)
		for _, pm := range parameterPattern.FindAllStringSubmatch(body, -1) {
			key := pm[1]
			value := strings.TrimSpace(pm[2])
			if strings.HasPrefix(value, "[") || strings.HasPrefix(value, "{") {
				var parsed any
				if err := json.Unmarshal([]byte(value), &parsed); err == nil {
					params[key] = parsed
					continue
				}
			}
			params[key] = value
		}

		args, err := json.Marshal(params)
		if err != nil {
			continue
		}
		calls = append(calls, ToolInvocation{
			ID:        fmt.Sprintf("extracted-%d", len(calls)+1),
			Name:      name,
			Arguments: args,
		})
	}
	return calls
}

// Sanitize strips all invocation-grammar fragments from reply text so the
// user never sees raw tool call syntax.
func Sanitize(content string) string {
	if content == "" {
		return ""
	}

	content = toolCallBlockPattern.ReplaceAllString(content, "")
	content = functionBlockPattern.ReplaceAllString(content, "")
	content = parameterTagPattern.ReplaceAllString(content, "")

	content = strayToolCallPattern.ReplaceAllString(content, "")
	content = strayFunctionPattern.ReplaceAllString(content, "")
	content = strayParamPattern.ReplaceAllString(content, "")

	content = blankLinesPattern.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
