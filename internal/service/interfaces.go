package service

import (
	"context"

	"inboxd/internal/models"
	"inboxd/pkg/meta"
)

// Store is the persistence surface the services need. *database.Database
// satisfies it; tests substitute in-memory fakes.
type Store interface {
	CreateCustomer(ctx context.Context, c *models.Customer) error
	GetCustomerByChannelID(ctx context.Context, channel models.Channel, channelID string) (*models.Customer, error)
	GetCustomer(ctx context.Context, id string) (*models.Customer, error)
	TouchCustomer(ctx context.Context, id string) error

	CreateConversation(ctx context.Context, conv *models.Conversation) error
	GetConversationByCommentID(ctx context.Context, commentID string) (*models.Conversation, error)
	GetOpenDMConversation(ctx context.Context, customerID string, channel models.Channel) (*models.Conversation, error)
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	ListConversations(ctx context.Context, status models.ConversationStatus) ([]*models.Conversation, error)
	TouchConversation(ctx context.Context, id string) error
	UpdateConversationStatus(ctx context.Context, id string, status models.ConversationStatus) error
	AssignConversationAgent(ctx context.Context, id, agentID string) error

	SaveMessage(ctx context.Context, m *models.Message) (bool, error)
	ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error)
}

// Notifier pushes inbox changes to connected agent clients. The realtime hub
// implements it; a no-op implementation is fine when nobody is listening.
type Notifier interface {
	ConversationUpserted(conv *models.Conversation)
	MessageCreated(msg *models.Message)
}

// NoopNotifier discards all notifications.
type NoopNotifier struct{}

func (NoopNotifier) ConversationUpserted(*models.Conversation) {}
func (NoopNotifier) MessageCreated(*models.Message)            {}

// MessageSender dispatches outbound text through the provider.
type MessageSender interface {
	SendDirectMessage(ctx context.Context, recipientID, text string) (*meta.SendResult, error)
	ReplyToComment(ctx context.Context, commentID, text string) (*meta.SendResult, error)
}
