package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"inboxd/internal/adapter"
	"inboxd/internal/metrics"
	"inboxd/internal/models"
)

// InboxService runs the inbound pipeline: normalize the webhook payload,
// drop loop-guard hits, resolve the customer, route into a conversation and
// record the message. Each event is processed independently so one bad event
// never blocks the rest of a delivery.
type InboxService struct {
	store     Store
	guard     *LoopGuard
	identity  *IdentityService
	router    *ConversationRouter
	responder *AutoResponder
	notifier  Notifier
	logger    *logrus.Logger
}

func NewInboxService(store Store, guard *LoopGuard, identity *IdentityService, router *ConversationRouter, responder *AutoResponder, notifier Notifier, logger *logrus.Logger) *InboxService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &InboxService{
		store:     store,
		guard:     guard,
		identity:  identity,
		router:    router,
		responder: responder,
		notifier:  notifier,
		logger:    logger,
	}
}

// ProcessWebhook handles one verified webhook delivery. It returns the number
// of messages stored; per-event failures are logged and counted but do not
// produce an error, since the provider would only redeliver the whole batch.
func (s *InboxService) ProcessWebhook(ctx context.Context, payload *models.MetaWebhookPayload) int {
	events := adapter.ExtractEvents(payload)
	metrics.AddCounter("webhook_events_extracted", int64(len(events)))

	stored := 0
	for _, event := range events {
		if err := s.processEvent(ctx, event); err != nil {
			metrics.IncrementCounter("webhook_events_failed")
			s.logger.WithError(err).WithFields(logrus.Fields{
				LogFieldChannel: string(event.Channel),
				LogFieldKind:    string(event.Kind),
			}).Error("Failed to process inbound event")
			continue
		}
		stored++
	}
	return stored
}

func (s *InboxService) processEvent(ctx context.Context, event models.IncomingEvent) error {
	if s.guard.IsAutoReply(event.Text) {
		metrics.IncrementCounter("loopguard_dropped")
		s.logger.WithFields(logrus.Fields{
			LogFieldChannel:       string(event.Channel),
			LogFieldProviderMsgID: event.ProviderMsgID,
		}).Debug("Dropped auto-reply echo")
		return nil
	}

	customer, err := s.identity.ResolveOrCreate(ctx, event)
	if err != nil {
		return err
	}

	conv, created, err := s.router.Resolve(ctx, customer, event)
	if err != nil {
		return err
	}

	msg := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		CustomerID:     customer.ID,
		Direction:      models.DirectionIncoming,
		Text:           event.Text,
		ProviderMsgID:  event.ProviderMsgID,
		CommentID:      event.CommentID,
		CreatedAt:      time.Now().UTC(),
	}

	inserted, err := s.store.SaveMessage(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	if !inserted {
		// Redelivered webhook; everything already happened the first time.
		metrics.IncrementCounter("messages_deduplicated")
		s.logger.WithFields(logrus.Fields{
			LogFieldConversationID: conv.ID,
			LogFieldProviderMsgID:  event.ProviderMsgID,
		}).Debug("Skipped duplicate message")
		return nil
	}

	metrics.IncrementCounter("messages_stored")
	s.logger.WithFields(logrus.Fields{
		LogFieldChannel:        string(event.Channel),
		LogFieldKind:           string(event.Kind),
		LogFieldCustomerID:     customer.ID,
		LogFieldConversationID: conv.ID,
		LogFieldMessageID:      msg.ID,
	}).Info("Stored inbound message")

	if created {
		s.notifier.ConversationUpserted(conv)
	}
	s.notifier.MessageCreated(msg)

	if s.responder != nil && event.Kind == models.ThreadComment {
		s.responder.HandleComment(ctx, event)
	}

	return nil
}
