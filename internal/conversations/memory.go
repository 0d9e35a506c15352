package conversations

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/haasonsaas/taskpilot/internal/storage"
	"github.com/haasonsaas/taskpilot/pkg/models"
)

// MemoryStore is an in-memory Store for tests and single-process development.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation
	messages      map[string][]*models.Message
	clock         func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*models.Conversation),
		messages:      make(map[string][]*models.Message),
		clock:         time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (s *MemoryStore) SetClock(clock func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

func (s *MemoryStore) Create(ctx context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock().UTC()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = now
	}
	prepareNewConversation(conv)
	if _, ok := s.conversations[conv.ID]; ok {
		return storage.ErrAlreadyExists
	}
	clone := *conv
	s.conversations[conv.ID] = &clone
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, ownerID, id string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok || conv.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}
	clone := *conv
	return &clone, nil
}

func (s *MemoryStore) List(ctx context.Context, ownerID string, limit int) ([]*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	out := make([]*models.Conversation, 0)
	for _, conv := range s.conversations {
		if conv.OwnerID != ownerID {
			continue
		}
		clone := *conv
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) SetTitle(ctx context.Context, ownerID, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok || conv.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	conv.Title = title
	conv.UpdatedAt = s.clock().UTC()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok || conv.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	delete(s.conversations, id)
	delete(s.messages, id)
	return nil
}

func (s *MemoryStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[msg.ConversationID]
	if !ok || conv.OwnerID != msg.OwnerID {
		return storage.ErrNotFound
	}

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.clock().UTC()
	}
	prepareNewMessage(msg)

	clone := *msg
	clone.ToolCalls = append([]models.ToolCall(nil), msg.ToolCalls...)
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], &clone)
	conv.UpdatedAt = msg.CreatedAt
	return nil
}

func (s *MemoryStore) GetHistory(ctx context.Context, ownerID, conversationID string, limit int) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = HistoryLimit
	}
	conv, ok := s.conversations[conversationID]
	if !ok || conv.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}

	msgs := s.messages[conversationID]
	start := 0
	if len(msgs) > limit {
		start = len(msgs) - limit
	}
	out := make([]*models.Message, 0, len(msgs)-start)
	for _, msg := range msgs[start:] {
		clone := *msg
		clone.ToolCalls = append([]models.ToolCall(nil), msg.ToolCalls...)
		out = append(out, &clone)
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
