package service

import (
	"classifieds/internal/domain"

	"github.com/google/uuid"
)

// ConversationKey identifies the unordered pair of participants, so (a, b)
// and (b, a) share a key.
func ConversationKey(a, b uuid.UUID) string {
	x, y := a.String(), b.String()
	if y < x {
		x, y = y, x
	}
	return x + "-" + y
}

// AggregateConversations folds the messages of userID, newest first, into one
// conversation per counterpart. The first message seen for a pair becomes its
// last message and the output keeps first-sighting order. Unread counts are
// left at zero.
func AggregateConversations(userID uuid.UUID, messages []domain.MessageDetails) []domain.Conversation {
	conversations := make([]domain.Conversation, 0)
	seen := make(map[string]struct{})

	for _, m := range messages {
		other := m.Sender
		if m.SenderID == userID {
			other = m.Receiver
		}

		key := ConversationKey(userID, other.ID)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		conversations = append(conversations, domain.Conversation{
			ID:          key,
			OtherUser:   other,
			Ad:          m.Ad,
			LastMessage: m,
		})
	}
	return conversations
}
