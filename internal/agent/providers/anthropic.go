package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/haasonsaas/taskpilot/internal/agent"
)

const defaultAnthropicMaxTokens = 1024

// AnthropicProvider implements agent.LLMProvider for Anthropic's Messages
// API. Claude supports structured tool use natively, so turns through this
// provider rarely touch the text-extraction fallback.
//
// Thread Safety:
// AnthropicProvider is safe for concurrent use across multiple goroutines.
type AnthropicProvider struct {
	client anthropic.Client

	defaultModel string
	maxAttempts  int
	retryDelay   time.Duration
}

// AnthropicConfig configures an AnthropicProvider.
type AnthropicConfig struct {
	// APIKey authenticates against the Anthropic API. Required.
	APIKey string

	// DefaultModel is used when requests do not specify one.
	DefaultModel string

	// MaxAttempts bounds total attempts per completion, including the
	// first. The default is 2: a transient failure is retried once and
	// never more.
	MaxAttempts int
}

// NewAnthropicProvider creates an Anthropic provider.
func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 2
	}

	return &AnthropicProvider{
		client:       anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		defaultModel: cfg.DefaultModel,
		maxAttempts:  maxAttempts,
		retryDelay:   time.Second,
	}, nil
}

// Name returns the provider identifier used for routing and metrics.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Complete sends one Messages API request and normalizes the reply.
func (p *AnthropicProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (*agent.Completion, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  p.convertMessages(req.Messages),
		MaxTokens: int64(maxTokens),
	}

	// The system prompt travels separately from messages in Anthropic's API.
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: req.System,
			},
		}
	}

	if len(req.Tools) > 0 {
		tools, err := p.convertTools(req.Tools)
		if err != nil {
			return nil, fmt.Errorf("anthropic: failed to convert tools: %w", err)
		}
		params.Tools = tools
	}

	var message *anthropic.Message
	var lastErr error
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.retryDelay * time.Duration(attempt)):
			}
		}

		message, lastErr = p.client.Messages.New(ctx, params)
		if lastErr == nil {
			break
		}
		reason := classifyError(lastErr)
		if !reason.IsRetryable() {
			return nil, &ProviderError{Reason: reason, Provider: p.Name(), Model: model, Err: lastErr}
		}
	}
	if lastErr != nil {
		return nil, &ProviderError{Reason: classifyError(lastErr), Provider: p.Name(), Model: model, Err: fmt.Errorf("max retries exceeded: %w", lastErr)}
	}

	completion := &agent.Completion{
		StopReason: string(message.StopReason),
	}
	for _, block := range message.Content {
		switch block.Type {
		case "text":
			completion.Text += block.Text
		case "tool_use":
			completion.ToolCalls = append(completion.ToolCalls, agent.ToolInvocation{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: json.RawMessage(block.Input),
			})
		}
	}
	return completion, nil
}

func (p *AnthropicProvider) convertMessages(messages []agent.CompletionMessage) []anthropic.MessageParam {
	result := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		block := anthropic.NewTextBlock(msg.Content)
		if msg.Role == "assistant" {
			result = append(result, anthropic.NewAssistantMessage(block))
		} else {
			// User and tool roles both map to user messages.
			result = append(result, anthropic.NewUserMessage(block))
		}
	}
	return result
}

func (p *AnthropicProvider) convertTools(tools []agent.ToolDefinition) ([]anthropic.ToolUnionParam, error) {
	var result []anthropic.ToolUnionParam
	for _, tool := range tools {
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(tool.InputSchema, &schema); err != nil {
			return nil, fmt.Errorf("invalid tool schema for %s: %w", tool.Name, err)
		}

		toolParam := anthropic.ToolUnionParamOfTool(schema, tool.Name)
		if toolParam.OfTool == nil {
			return nil, fmt.Errorf("invalid tool schema for %s: missing tool definition", tool.Name)
		}
		toolParam.OfTool.Description = anthropic.String(tool.Description)

		result = append(result, toolParam)
	}
	return result, nil
}

var _ agent.LLMProvider = (*AnthropicProvider)(nil)
