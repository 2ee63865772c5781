package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopnearby-backend/pkg/enums"
)

const maxBodyLength = 2000

// Message is one line of a support conversation. Seq is strictly increasing
// within a conversation on the instance that serves it.
type Message struct {
	ID             uuid.UUID        `json:"id"`
	ConversationID string           `json:"conversation_id"`
	Seq            int64            `json:"seq"`
	Sender         enums.ChatSender `json:"sender"`
	Body           string           `json:"body"`
	SentAt         time.Time        `json:"sent_at"`
}

// Conversation summarizes a thread for the support dashboard.
type Conversation struct {
	ID           string    `json:"id"`
	MessageCount int       `json:"message_count"`
	LastMessage  *Message  `json:"last_message,omitempty"`
	AwaitsReply  bool      `json:"awaits_reply"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Page is a slice of a conversation's history.
type Page struct {
	Messages []Message `json:"messages"`
	Cursor   string    `json:"cursor,omitempty"`
}
