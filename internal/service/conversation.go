package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"inboxd/internal/models"
)

// ConversationRouter places an inbound event into its thread. Comments get
// one conversation per provider comment id regardless of status; DMs reuse
// the customer's open thread on that channel or open a new one.
type ConversationRouter struct {
	store  Store
	logger *logrus.Logger
}

func NewConversationRouter(store Store, logger *logrus.Logger) *ConversationRouter {
	return &ConversationRouter{store: store, logger: logger}
}

// Resolve returns the conversation for an event, creating it when none
// qualifies. The second return reports whether this call created the thread.
func (r *ConversationRouter) Resolve(ctx context.Context, customer *models.Customer, event models.IncomingEvent) (*models.Conversation, bool, error) {
	switch event.Kind {
	case models.ThreadComment:
		return r.resolveComment(ctx, customer, event)
	case models.ThreadDM:
		return r.resolveDM(ctx, customer, event)
	default:
		return nil, false, fmt.Errorf("unknown thread kind: %s", event.Kind)
	}
}

func (r *ConversationRouter) resolveComment(ctx context.Context, customer *models.Customer, event models.IncomingEvent) (*models.Conversation, bool, error) {
	existing, err := r.store.GetConversationByCommentID(ctx, event.CommentID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up comment thread: %w", err)
	}
	if existing != nil {
		return r.touch(ctx, existing), false, nil
	}

	conv := r.newConversation(customer, event)
	conv.CommentID = event.CommentID
	if err := r.store.CreateConversation(ctx, conv); err != nil {
		return nil, false, fmt.Errorf("failed to create comment thread: %w", err)
	}

	created, err := r.store.GetConversationByCommentID(ctx, event.CommentID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to re-read comment thread: %w", err)
	}
	if created == nil {
		return nil, false, fmt.Errorf("comment thread vanished after create for %s", event.CommentID)
	}
	return created, created.ID == conv.ID, nil
}

func (r *ConversationRouter) resolveDM(ctx context.Context, customer *models.Customer, event models.IncomingEvent) (*models.Conversation, bool, error) {
	existing, err := r.store.GetOpenDMConversation(ctx, customer.ID, event.Channel)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up open thread: %w", err)
	}
	if existing != nil {
		return r.touch(ctx, existing), false, nil
	}

	conv := r.newConversation(customer, event)
	if err := r.store.CreateConversation(ctx, conv); err != nil {
		return nil, false, fmt.Errorf("failed to create thread: %w", err)
	}

	created, err := r.store.GetOpenDMConversation(ctx, customer.ID, event.Channel)
	if err != nil {
		return nil, false, fmt.Errorf("failed to re-read thread: %w", err)
	}
	if created == nil {
		return nil, false, fmt.Errorf("thread vanished after create for customer %s", customer.ID)
	}
	return created, created.ID == conv.ID, nil
}

func (r *ConversationRouter) newConversation(customer *models.Customer, event models.IncomingEvent) *models.Conversation {
	now := time.Now().UTC()
	return &models.Conversation{
		ID:         uuid.NewString(),
		CustomerID: customer.ID,
		Channel:    event.Channel,
		Kind:       event.Kind,
		Status:     models.ConversationOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (r *ConversationRouter) touch(ctx context.Context, conv *models.Conversation) *models.Conversation {
	if err := r.store.TouchConversation(ctx, conv.ID); err != nil {
		r.logger.WithError(err).WithField(LogFieldConversationID, conv.ID).
			Warn("Failed to update conversation timestamp")
	}
	return conv
}
