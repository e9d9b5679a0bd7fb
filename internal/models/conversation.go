package models

import "time"

type ConversationStatus string

const (
	ConversationOpen   ConversationStatus = "open"
	ConversationClosed ConversationStatus = "closed"
)

// Conversation is a thread of messages with one customer on one channel,
// additionally scoped by thread kind. DM threads have at most one open
// conversation per (customer, channel); comment threads are keyed by the
// provider's comment id regardless of status.
type Conversation struct {
	ID              string             `json:"id" db:"id"`
	CustomerID      string             `json:"customer_id" db:"customer_id"`
	Channel         Channel            `json:"channel" db:"channel"`
	Kind            ThreadKind         `json:"kind" db:"kind"`
	CommentID       string             `json:"comment_id,omitempty" db:"comment_id"`
	Status          ConversationStatus `json:"status" db:"status"`
	AssignedAgentID string             `json:"assigned_agent_id,omitempty" db:"assigned_agent_id"`
	CreatedAt       time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" db:"updated_at"`
}
