package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/haasonsaas/taskpilot/internal/agent"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements agent.LLMProvider against any OpenAI-compatible
// chat completion API. Setting BaseURL points it at compatible gateways
// (OpenRouter, local inference servers); those backends are exactly where the
// text-extraction fallback earns its keep, because many of them ignore the
// structured tools parameter.
//
// Thread Safety:
// OpenAIProvider is safe for concurrent use across multiple goroutines.
type OpenAIProvider struct {
	client *openai.Client

	// defaultModel is used when the request does not name a model.
	defaultModel string

	// maxAttempts bounds total attempts for transient failures (rate
	// limits, 5xx, timeouts). Default: 2, one retry at most.
	maxAttempts int

	// retryDelay is the base delay between attempts; actual delay grows
	// linearly with the attempt number.
	retryDelay time.Duration
}

// OpenAIConfig configures an OpenAIProvider.
type OpenAIConfig struct {
	// APIKey authenticates against the backend. Required.
	APIKey string

	// BaseURL overrides the API endpoint for OpenAI-compatible backends.
	BaseURL string

	// DefaultModel is used when requests do not specify one.
	DefaultModel string

	// MaxAttempts bounds total attempts per completion, including the
	// first. The default is 2: a transient failure is retried once and
	// never more.
	MaxAttempts int
}

// NewOpenAIProvider creates an OpenAI-compatible provider.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 2
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIProvider{
		client:       openai.NewClientWithConfig(clientCfg),
		defaultModel: cfg.DefaultModel,
		maxAttempts:  maxAttempts,
		retryDelay:   time.Second,
	}, nil
}

// Name returns the provider identifier used for routing and metrics.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Complete sends one chat completion request and normalizes the reply.
// A transient failure is retried at most once after a short delay;
// non-retryable errors surface immediately.
func (p *OpenAIProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (*agent.Completion, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: p.convertMessages(req.Messages, req.System),
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = p.convertTools(req.Tools)
		chatReq.ToolChoice = "auto"
	}

	var resp openai.ChatCompletionResponse
	var lastErr error
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.retryDelay * time.Duration(attempt)):
			}
		}

		resp, lastErr = p.client.CreateChatCompletion(ctx, chatReq)
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

	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Reason: FailUnknown, Provider: p.Name(), Model: model, Err: errors.New("empty choices in response")}
	}

	choice := resp.Choices[0]
	completion := &agent.Completion{
		Text:       choice.Message.Content,
		StopReason: string(choice.FinishReason),
	}
	for _, tc := range choice.Message.ToolCalls {
		if tc.Function.Name == "" {
			continue
		}
		completion.ToolCalls = append(completion.ToolCalls, agent.ToolInvocation{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return completion, nil
}

func (p *OpenAIProvider) convertMessages(messages []agent.CompletionMessage, system string) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages)+1)

	// OpenAI carries the system prompt as the first message.
	if system != "" {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}

	for _, msg := range messages {
		oaiMsg := openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
		if msg.Role == "tool" {
			oaiMsg.ToolCallID = msg.ToolCallID
		}
		result = append(result, oaiMsg)
	}
	return result
}

func (p *OpenAIProvider) convertTools(tools []agent.ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, len(tools))
	for i, tool := range tools {
		var schemaMap map[string]any
		if err := json.Unmarshal(tool.InputSchema, &schemaMap); err != nil {
			// One bad schema must not break the rest of the tool set.
			schemaMap = map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			}
		}
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  schemaMap,
			},
		}
	}
	return result
}

var _ agent.LLMProvider = (*OpenAIProvider)(nil)
