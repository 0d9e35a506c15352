package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/haasonsaas/taskpilot/internal/cache"
	"github.com/haasonsaas/taskpilot/internal/conversations"
	"github.com/haasonsaas/taskpilot/internal/observability"
	"github.com/haasonsaas/taskpilot/pkg/models"
)

const (
	defaultCompletionTimeout = 60 * time.Second
	defaultDedupeWindow      = 10 * time.Second
	maxMessageLength         = 8 << 10
	titlePreviewLength       = 60
)

// TurnRequest carries one user message into the orchestrator. The owner
// identity must already be authenticated by the caller.
type TurnRequest struct {
	OwnerID        string
	ConversationID string // empty allocates a new conversation
	Message        string
}

// TurnResult is the outcome of one processed turn.
type TurnResult struct {
	ConversationID string            `json:"conversation_id"`
	Response       string            `json:"response"`
	ToolCalls      []models.ToolCall `json:"tool_calls,omitempty"`
}

// OrchestratorConfig configures turn processing. The provider is passed in
// explicitly so tests can substitute a deterministic fake backend.
type OrchestratorConfig struct {
	// Model overrides the provider's default model when non-empty.
	Model string

	// MaxTokens bounds the completion length. 0 uses the provider default.
	MaxTokens int

	// CompletionTimeout bounds the completion call; past it the turn fails
	// with ErrServiceUnavailable instead of hanging.
	CompletionTimeout time.Duration

	// DedupeWindow is how long an identical message in the same
	// conversation is absorbed as a duplicate. 0 uses the default;
	// negative disables deduplication.
	DedupeWindow time.Duration

	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Orchestrator turns a free-form user message into verified task mutations
// and a synthesized reply. It holds no per-conversation state; every turn
// reloads history from the conversation store.
type Orchestrator struct {
	provider LLMProvider
	registry *Registry
	executor *Executor
	convs    conversations.Store
	dedupe   *cache.DedupeCache

	model     string
	maxTokens int
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewOrchestrator wires the turn pipeline together.
func NewOrchestrator(provider LLMProvider, registry *Registry, convs conversations.Store, cfg OrchestratorConfig) (*Orchestrator, error) {
	if provider == nil {
		return nil, ErrNoProvider
	}
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if convs == nil {
		return nil, fmt.Errorf("conversation store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.CompletionTimeout
	if timeout <= 0 {
		timeout = defaultCompletionTimeout
	}

	var dedupe *cache.DedupeCache
	if cfg.DedupeWindow >= 0 {
		window := cfg.DedupeWindow
		if window == 0 {
			window = defaultDedupeWindow
		}
		dedupe = cache.NewDedupeCache(window, 4096)
	}

	return &Orchestrator{
		provider:  provider,
		registry:  registry,
		executor:  NewExecutor(registry, logger, cfg.Metrics),
		convs:     convs,
		dedupe:    dedupe,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   timeout,
		logger:    logger,
		metrics:   cfg.Metrics,
	}, nil
}

// ProcessTurn handles one user message end to end: reconstruct context, call
// the completion backend, execute and verify any tool invocations, and
// persist both sides of the exchange. The assistant message is persisted
// last, only after its tool calls executed and were verified.
func (o *Orchestrator) ProcessTurn(ctx context.Context, req *TurnRequest) (*TurnResult, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, NewValidationError("chat", "message is empty")
	}
	if len(message) > maxMessageLength {
		return nil, NewValidationError("chat", "message exceeds %d bytes", maxMessageLength)
	}

	transcript, err := conversations.Reconstruct(ctx, o.convs, req.OwnerID, req.ConversationID)
	if err != nil {
		o.recordTurn("error")
		return nil, err
	}
	conversationID := transcript.Conversation.ID

	// Dedupe keys on the resolved conversation id so a resend that carries
	// the id allocated by the first attempt still matches. The key is
	// dropped again if the turn fails: a retry after ServiceUnavailable is
	// not a duplicate.
	turnDone := false
	if o.dedupe != nil {
		key := cache.MessageDedupeKey(req.OwnerID, conversationID, message)
		if o.dedupe.Check(key) {
			o.recordTurn("error")
			return nil, ErrDuplicateMessage
		}
		defer func() {
			if !turnDone {
				o.dedupe.Forget(key)
			}
		}()
	}

	userMsg := &models.Message{
		ConversationID: conversationID,
		OwnerID:        req.OwnerID,
		Role:           models.RoleUser,
		Content:        message,
	}
	if err := o.convs.AppendMessage(ctx, userMsg); err != nil {
		o.recordTurn("error")
		return nil, fmt.Errorf("failed to persist user message: %w", err)
	}

	completion, err := o.complete(ctx, transcript.Messages, message)
	if err != nil {
		o.recordTurn("error")
		return nil, err
	}

	invocations := completion.ToolCalls
	if len(invocations) == 0 {
		if extracted := ExtractCalls(completion.Text); len(extracted) > 0 {
			o.logger.Warn("recovered tool calls from free text",
				"conversation_id", conversationID, "count", len(extracted))
			if o.metrics != nil {
				o.metrics.RecordExtractionFallback()
			}
			invocations = extracted
		}
	}

	var (
		response   string
		auditCalls []models.ToolCall
	)
	if len(invocations) > 0 {
		// Caller disconnects must not leave mutations half-verified, so
		// execution and the final persist run detached from the request
		// context.
		execCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
		defer cancel()

		executed := o.executor.Execute(execCtx, req.OwnerID, invocations)
		response = Synthesize(executed)
		auditCalls = auditTrail(executed)

		assistantMsg := &models.Message{
			ConversationID: conversationID,
			OwnerID:        req.OwnerID,
			Role:           models.RoleAssistant,
			Content:        response,
			ToolCalls:      auditCalls,
		}
		if err := o.convs.AppendMessage(execCtx, assistantMsg); err != nil {
			o.recordTurn("error")
			return nil, fmt.Errorf("failed to persist assistant message: %w", err)
		}
	} else {
		response = Sanitize(completion.Text)
		if response == "" {
			response = clarificationResponse
		}

		assistantMsg := &models.Message{
			ConversationID: conversationID,
			OwnerID:        req.OwnerID,
			Role:           models.RoleAssistant,
			Content:        response,
		}
		if err := o.convs.AppendMessage(ctx, assistantMsg); err != nil {
			o.recordTurn("error")
			return nil, fmt.Errorf("failed to persist assistant message: %w", err)
		}
	}

	o.maybeTitle(ctx, transcript, message)
	o.recordTurn("success")
	turnDone = true

	return &TurnResult{
		ConversationID: conversationID,
		Response:       response,
		ToolCalls:      auditCalls,
	}, nil
}

func (o *Orchestrator) complete(ctx context.Context, history []*models.Message, message string) (*Completion, error) {
	msgs := make([]CompletionMessage, 0, len(history)+1)
	for _, m := range history {
		msgs = append(msgs, CompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	msgs = append(msgs, CompletionMessage{Role: string(models.RoleUser), Content: message})

	req := &CompletionRequest{
		Model:     o.model,
		System:    systemInstructions,
		Messages:  msgs,
		Tools:     o.registry.Definitions(),
		MaxTokens: o.maxTokens,
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	completion, err := o.provider.Complete(callCtx, req)
	status := "success"
	if err != nil {
		status = "error"
	}
	if o.metrics != nil {
		o.metrics.RecordLLMRequest(o.provider.Name(), o.model, status, time.Since(start).Seconds())
	}
	if err != nil {
		o.logger.Error("completion failed", "provider", o.provider.Name(), "error", err)
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	return completion, nil
}

// maybeTitle gives a freshly created conversation a title derived from its
// first message.
func (o *Orchestrator) maybeTitle(ctx context.Context, transcript *conversations.Transcript, message string) {
	if len(transcript.Messages) > 0 || transcript.Conversation.Title != "" {
		return
	}
	title := message
	if len(title) > titlePreviewLength {
		cut := titlePreviewLength
		for cut > 0 && !utf8.RuneStart(title[cut]) {
			cut--
		}
		title = title[:cut]
	}
	if err := o.convs.SetTitle(ctx, transcript.Conversation.OwnerID, transcript.Conversation.ID, title); err != nil {
		o.logger.Warn("failed to set conversation title", "conversation_id", transcript.Conversation.ID, "error", err)
	}
}

func (o *Orchestrator) recordTurn(status string) {
	if o.metrics != nil {
		o.metrics.RecordTurn(status)
	}
}

func auditTrail(executed []ExecutedCall) []models.ToolCall {
	calls := make([]models.ToolCall, 0, len(executed))
	for _, ec := range executed {
		call := models.ToolCall{
			ID:        ec.Invocation.ID,
			Tool:      ec.Invocation.Name,
			Arguments: ec.Invocation.Arguments,
			Verified:  ec.Verified,
		}
		if ec.Err != nil {
			call.Error = ec.Err.Error()
		} else if ec.Result != nil {
			if data, err := json.Marshal(ec.Result); err == nil {
				call.Result = data
			}
		}
		calls = append(calls, call)
	}
	return calls
}
