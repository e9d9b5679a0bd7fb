package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	apperrors "inboxd/internal/errors"
	"inboxd/internal/metrics"
	"inboxd/internal/models"
	"inboxd/pkg/meta"
)

// notePrefix marks an agent message as an internal note. Notes are stored in
// the thread but never dispatched to the customer.
const notePrefix = "/note "

// OutboundService is the agent reply path: dispatch through the Graph API
// first, then mirror the sent message into the conversation. A message that
// the provider rejected is never stored.
type OutboundService struct {
	store      Store
	sender     MessageSender
	notifier   Notifier
	surveyText string
	logger     *logrus.Logger
}

func NewOutboundService(store Store, sender MessageSender, notifier Notifier, surveyText string, logger *logrus.Logger) *OutboundService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &OutboundService{
		store:      store,
		sender:     sender,
		notifier:   notifier,
		surveyText: surveyText,
		logger:     logger,
	}
}

// SendReply handles the raw send_reply action: dispatch by message type and,
// when the target thread is known to the store, mirror the outgoing message
// into it. The result carries the provider's response body.
func (s *OutboundService) SendReply(ctx context.Context, req *models.SendReplyRequest) (*meta.SendResult, error) {
	if req.Message == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "message text is required")
	}

	var conv *models.Conversation
	var err error

	switch req.MessageType {
	case models.ReplyTypeComment:
		if req.CommentID == "" {
			return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "comment_id is required for comment replies")
		}
		conv, err = s.store.GetConversationByCommentID(ctx, req.CommentID)
	case models.ReplyTypeDM:
		if req.RecipientID == "" {
			return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "recipient_id is required for direct messages")
		}
		conv, err = s.findDMConversation(ctx, models.Channel(req.Channel), req.RecipientID)
	default:
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput,
			fmt.Sprintf("unknown message_type: %s", req.MessageType))
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorageQuery, "failed to resolve target conversation")
	}

	if strings.HasPrefix(req.Message, notePrefix) {
		if conv == nil {
			return nil, apperrors.New(apperrors.ErrCodeNotFound, "no conversation found for internal note")
		}
		if _, err := s.recordNote(ctx, conv, strings.TrimPrefix(req.Message, notePrefix)); err != nil {
			return nil, err
		}
		return &meta.SendResult{}, nil
	}

	var result *meta.SendResult
	switch req.MessageType {
	case models.ReplyTypeComment:
		result, err = s.sender.ReplyToComment(ctx, req.CommentID, req.Message)
	case models.ReplyTypeDM:
		result, err = s.sender.SendDirectMessage(ctx, req.RecipientID, req.Message)
	}
	if err != nil {
		metrics.IncrementCounter("outbound_send_failed")
		return nil, apperrors.Wrap(err, apperrors.ErrCodeProviderAPI, "provider rejected outbound message")
	}
	metrics.IncrementCounter("outbound_sent")

	if conv != nil {
		s.mirror(ctx, conv, req.Message, result)
	}
	return result, nil
}

// ReplyToConversation sends an agent reply addressed by conversation id.
// A message starting with the note prefix is stored as an internal note and
// never dispatched.
func (s *OutboundService) ReplyToConversation(ctx context.Context, conversationID, text string) (*models.Message, error) {
	if text == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "message text is required")
	}

	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorageQuery, "failed to load conversation")
	}
	if conv == nil {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "conversation not found")
	}

	if strings.HasPrefix(text, notePrefix) {
		return s.recordNote(ctx, conv, strings.TrimPrefix(text, notePrefix))
	}

	var result *meta.SendResult
	if conv.Kind == models.ThreadComment {
		result, err = s.sender.ReplyToComment(ctx, conv.CommentID, text)
	} else {
		recipientID, lookupErr := s.customerChannelID(ctx, conv)
		if lookupErr != nil {
			return nil, lookupErr
		}
		result, err = s.sender.SendDirectMessage(ctx, recipientID, text)
	}
	if err != nil {
		metrics.IncrementCounter("outbound_send_failed")
		return nil, apperrors.Wrap(err, apperrors.ErrCodeProviderAPI, "provider rejected outbound message")
	}
	metrics.IncrementCounter("outbound_sent")

	return s.mirror(ctx, conv, text, result), nil
}

// AssignAgent sets the conversation's assigned agent and leaves an internal
// note recording the handover.
func (s *OutboundService) AssignAgent(ctx context.Context, conversationID, agentID string) (*models.Conversation, error) {
	if agentID == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "agent id is required")
	}

	if err := s.store.AssignConversationAgent(ctx, conversationID, agentID); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeNotFound, "failed to assign agent")
	}

	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil || conv == nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorageQuery, "failed to reload conversation")
	}

	if _, err := s.recordNote(ctx, conv, "Conversation assigned to "+agentID); err != nil {
		s.logger.WithError(err).WithField(LogFieldConversationID, conversationID).
			Warn("Failed to record assignment note")
	}

	s.logger.WithFields(logrus.Fields{
		LogFieldConversationID: conversationID,
		LogFieldAgentID:        agentID,
	}).Info("Assigned conversation")

	s.notifier.ConversationUpserted(conv)
	return conv, nil
}

// CloseConversation transitions the thread to closed and, for direct-message
// threads, sends the configured satisfaction survey. The survey is best
// effort: a send failure never reopens or fails the close.
func (s *OutboundService) CloseConversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	if err := s.store.UpdateConversationStatus(ctx, conversationID, models.ConversationClosed); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeNotFound, "failed to close conversation")
	}

	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil || conv == nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorageQuery, "failed to reload conversation")
	}

	metrics.IncrementCounter("conversations_closed")
	s.logger.WithField(LogFieldConversationID, conversationID).Info("Closed conversation")

	if s.surveyText != "" && conv.Kind == models.ThreadDM {
		if recipientID, lookupErr := s.customerChannelID(ctx, conv); lookupErr == nil {
			if _, sendErr := s.sender.SendDirectMessage(ctx, recipientID, s.surveyText); sendErr != nil {
				s.logger.WithError(sendErr).WithField(LogFieldConversationID, conversationID).
					Warn("Failed to send close survey")
			} else {
				metrics.IncrementCounter("surveys_sent")
			}
		}
	}

	s.notifier.ConversationUpserted(conv)
	return conv, nil
}

func (s *OutboundService) findDMConversation(ctx context.Context, channel models.Channel, recipientID string) (*models.Conversation, error) {
	if channel != models.ChannelWhatsApp && channel != models.ChannelInstagram {
		channel = models.ChannelInstagram
	}
	customer, err := s.store.GetCustomerByChannelID(ctx, channel, recipientID)
	if err != nil || customer == nil {
		return nil, err
	}
	return s.store.GetOpenDMConversation(ctx, customer.ID, channel)
}

func (s *OutboundService) customerChannelID(ctx context.Context, conv *models.Conversation) (string, error) {
	customer, err := s.store.GetCustomer(ctx, conv.CustomerID)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeStorageQuery, "failed to load customer")
	}
	if customer == nil {
		return "", apperrors.New(apperrors.ErrCodeNotFound, "customer not found")
	}
	channelID := customer.ChannelID(conv.Channel)
	if channelID == "" {
		return "", apperrors.New(apperrors.ErrCodeInvalidInput,
			fmt.Sprintf("customer has no %s identifier", conv.Channel))
	}
	return channelID, nil
}

// mirror stores the agent's sent message in the thread. The dispatch already
// succeeded; a mirroring failure is logged, not surfaced.
func (s *OutboundService) mirror(ctx context.Context, conv *models.Conversation, text string, result *meta.SendResult) *models.Message {
	msg := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		CustomerID:     conv.CustomerID,
		Direction:      models.DirectionOutgoing,
		Text:           text,
		CreatedAt:      time.Now().UTC(),
	}
	if result != nil {
		msg.ProviderMsgID = result.MessageID
	}

	if _, err := s.store.SaveMessage(ctx, msg); err != nil {
		s.logger.WithError(err).WithField(LogFieldConversationID, conv.ID).
			Warn("Failed to mirror outgoing message")
		return nil
	}
	if err := s.store.TouchConversation(ctx, conv.ID); err != nil {
		s.logger.WithError(err).WithField(LogFieldConversationID, conv.ID).
			Warn("Failed to update conversation timestamp")
	}

	s.notifier.MessageCreated(msg)
	return msg
}

func (s *OutboundService) recordNote(ctx context.Context, conv *models.Conversation, text string) (*models.Message, error) {
	msg := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		CustomerID:     conv.CustomerID,
		Direction:      models.DirectionNote,
		Text:           text,
		CreatedAt:      time.Now().UTC(),
	}
	if _, err := s.store.SaveMessage(ctx, msg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorageQuery, "failed to save internal note")
	}
	s.notifier.MessageCreated(msg)
	return msg, nil
}
