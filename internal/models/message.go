package models

import "time"

type MessageDirection string

const (
	DirectionIncoming MessageDirection = "incoming"
	DirectionOutgoing MessageDirection = "outgoing"
	DirectionNote     MessageDirection = "internal_note"
)

// Message is one immutable unit of dialogue. Messages are never updated or
// deleted; ordering within a conversation follows CreatedAt.
type Message struct {
	ID             string           `json:"id" db:"id"`
	ConversationID string           `json:"conversation_id" db:"conversation_id"`
	CustomerID     string           `json:"customer_id" db:"customer_id"`
	Direction      MessageDirection `json:"direction" db:"direction"`
	Text           string           `json:"text" db:"text"`
	ProviderMsgID  string           `json:"provider_msg_id,omitempty" db:"provider_msg_id"`
	CommentID      string           `json:"comment_id,omitempty" db:"comment_id"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
}
