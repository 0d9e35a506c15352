package conversations

import (
	"context"

	"github.com/google/uuid"
	"github.com/haasonsaas/taskpilot/pkg/models"
)

// Transcript is the reconstructed context for one turn: the conversation and
// its prior messages in chronological order. A fresh conversation yields an
// empty message list.
type Transcript struct {
	Conversation *models.Conversation
	Messages     []*models.Message
}

// Reconstruct loads the transcript for a turn. With an empty conversation id
// a new conversation is allocated; otherwise the conversation must belong to
// the owner (storage.ErrNotFound either way — existence is never leaked).
//
// Reconstruction is stateless: nothing is cached between calls, every turn
// re-reads storage.
func Reconstruct(ctx context.Context, store Store, ownerID, conversationID string) (*Transcript, error) {
	if conversationID == "" {
		conv := &models.Conversation{
			ID:      uuid.NewString(),
			OwnerID: ownerID,
		}
		if err := store.Create(ctx, conv); err != nil {
			return nil, err
		}
		return &Transcript{Conversation: conv, Messages: nil}, nil
	}

	conv, err := store.Get(ctx, ownerID, conversationID)
	if err != nil {
		return nil, err
	}

	history, err := store.GetHistory(ctx, ownerID, conv.ID, HistoryLimit)
	if err != nil {
		return nil, err
	}

	return &Transcript{Conversation: conv, Messages: history}, nil
}
