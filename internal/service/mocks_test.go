package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"inboxd/internal/models"
	"inboxd/pkg/meta"
)

// memStore is an in-memory Store honoring the same uniqueness rules as the
// SQLite schema: channel ids unique per customer, one conversation per
// comment id, one open dm per (customer, channel), message dedup on
// (conversation, provider_msg_id).
type memStore struct {
	mu            sync.Mutex
	customers     map[string]*models.Customer
	conversations map[string]*models.Conversation
	messages      []*models.Message

	failSaveMessage bool
}

func newMemStore() *memStore {
	return &memStore{
		customers:     make(map[string]*models.Customer),
		conversations: make(map[string]*models.Conversation),
	}
}

func (s *memStore) CreateCustomer(_ context.Context, c *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.customers {
		if c.WhatsAppID != "" && existing.WhatsAppID == c.WhatsAppID {
			return nil
		}
		if c.InstagramID != "" && existing.InstagramID == c.InstagramID {
			return nil
		}
	}
	clone := *c
	s.customers[c.ID] = &clone
	return nil
}

func (s *memStore) GetCustomerByChannelID(_ context.Context, channel models.Channel, channelID string) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.customers {
		if c.ChannelID(channel) == channelID {
			clone := *c
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetCustomer(_ context.Context, id string) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.customers[id]; ok {
		clone := *c
		return &clone, nil
	}
	return nil, nil
}

func (s *memStore) TouchCustomer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.customers[id]; ok {
		c.LastInteraction = time.Now().UTC()
	}
	return nil
}

func (s *memStore) CreateConversation(_ context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.conversations {
		if conv.CommentID != "" && existing.CommentID == conv.CommentID {
			return nil
		}
		if conv.Kind == models.ThreadDM && existing.Kind == models.ThreadDM &&
			existing.Status == models.ConversationOpen &&
			existing.CustomerID == conv.CustomerID && existing.Channel == conv.Channel {
			return nil
		}
	}
	clone := *conv
	s.conversations[conv.ID] = &clone
	return nil
}

func (s *memStore) GetConversationByCommentID(_ context.Context, commentID string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conv := range s.conversations {
		if conv.CommentID == commentID {
			clone := *conv
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetOpenDMConversation(_ context.Context, customerID string, channel models.Channel) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conv := range s.conversations {
		if conv.Kind == models.ThreadDM && conv.Status == models.ConversationOpen &&
			conv.CustomerID == customerID && conv.Channel == channel {
			clone := *conv
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetConversation(_ context.Context, id string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.conversations[id]; ok {
		clone := *conv
		return &clone, nil
	}
	return nil, nil
}

func (s *memStore) ListConversations(_ context.Context, status models.ConversationStatus) ([]*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Conversation
	for _, conv := range s.conversations {
		if status == "" || conv.Status == status {
			clone := *conv
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *memStore) TouchConversation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.conversations[id]; ok {
		conv.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (s *memStore) UpdateConversationStatus(_ context.Context, id string, status models.ConversationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return fmt.Errorf("no conversation found with ID: %s", id)
	}
	conv.Status = status
	conv.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memStore) AssignConversationAgent(_ context.Context, id, agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return fmt.Errorf("no conversation found with ID: %s", id)
	}
	conv.AssignedAgentID = agentID
	conv.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memStore) SaveMessage(_ context.Context, m *models.Message) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSaveMessage {
		return false, fmt.Errorf("save message failed")
	}
	if m.ProviderMsgID != "" {
		for _, existing := range s.messages {
			if existing.ConversationID == m.ConversationID && existing.ProviderMsgID == m.ProviderMsgID {
				return false, nil
			}
		}
	}
	clone := *m
	s.messages = append(s.messages, &clone)
	return true, nil
}

func (s *memStore) ListMessages(_ context.Context, conversationID string) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Message
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			clone := *m
			out = append(out, &clone)
		}
	}
	return out, nil
}

// sentCall records one dispatch through the mock sender.
type sentCall struct {
	kind   string // "dm" or "comment"
	target string
	text   string
}

type mockSender struct {
	mu    sync.Mutex
	calls []sentCall

	failDM      bool
	failComment bool
}

func (m *mockSender) SendDirectMessage(_ context.Context, recipientID, text string) (*meta.SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDM {
		return nil, &meta.APIError{Message: "message window expired", Code: 10, HTTPStatus: 400}
	}
	m.calls = append(m.calls, sentCall{kind: "dm", target: recipientID, text: text})
	return &meta.SendResult{MessageID: fmt.Sprintf("mid.%d", len(m.calls)), RecipientID: recipientID}, nil
}

func (m *mockSender) ReplyToComment(_ context.Context, commentID, text string) (*meta.SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failComment {
		return nil, &meta.APIError{Message: "comment not found", Code: 100, HTTPStatus: 400}
	}
	m.calls = append(m.calls, sentCall{kind: "comment", target: commentID, text: text})
	return &meta.SendResult{MessageID: fmt.Sprintf("cid.%d", len(m.calls))}, nil
}

func (m *mockSender) sentCalls() []sentCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// recordingNotifier captures broadcast events.
type recordingNotifier struct {
	mu            sync.Mutex
	conversations []*models.Conversation
	messages      []*models.Message
}

func (n *recordingNotifier) ConversationUpserted(conv *models.Conversation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.conversations = append(n.conversations, conv)
}

func (n *recordingNotifier) MessageCreated(msg *models.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}
