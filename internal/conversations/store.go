// Package conversations persists chat threads and their ordered messages,
// and reconstructs model-ready transcripts. It is pure storage: no caching,
// no interpretation of message content.
package conversations

import (
	"context"

	"github.com/haasonsaas/taskpilot/pkg/models"
)

// HistoryLimit is the default number of most-recent messages loaded into a
// transcript.
const HistoryLimit = 50

// Store is the interface for conversation persistence. All reads and writes
// are owner-scoped; a conversation owned by someone else is indistinguishable
// from one that does not exist.
type Store interface {
	// Create persists a new conversation, assigning id and timestamps when
	// unset.
	Create(ctx context.Context, conv *models.Conversation) error

	// Get returns a conversation by id.
	Get(ctx context.Context, ownerID, id string) (*models.Conversation, error)

	// List returns the owner's conversations, most recently updated first.
	List(ctx context.Context, ownerID string, limit int) ([]*models.Conversation, error)

	// SetTitle updates a conversation's title.
	SetTitle(ctx context.Context, ownerID, id, title string) error

	// Delete removes a conversation and all its messages.
	Delete(ctx context.Context, ownerID, id string) error

	// AppendMessage persists a message and bumps the conversation's
	// updated_at in the same transaction.
	AppendMessage(ctx context.Context, msg *models.Message) error

	// GetHistory returns up to limit most recent messages of a conversation
	// in chronological order.
	GetHistory(ctx context.Context, ownerID, conversationID string, limit int) ([]*models.Message, error)

	Close() error
}
