package service

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inboxd/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type inboxFixture struct {
	store    *memStore
	sender   *mockSender
	guard    *LoopGuard
	notifier *recordingNotifier
	inbox    *InboxService
}

func newInboxFixture(t *testing.T, guardSignatures []string, responderCfg models.AutoResponderConfig) *inboxFixture {
	t.Helper()
	logger := testLogger()
	store := newMemStore()
	sender := &mockSender{}
	guard := NewLoopGuard(guardSignatures)
	notifier := &recordingNotifier{}

	var responder *AutoResponder
	if responderCfg.Enabled {
		responder = NewAutoResponder(responderCfg, sender, guard, logger)
	}

	identity := NewIdentityService(store, logger)
	router := NewConversationRouter(store, logger)
	inbox := NewInboxService(store, guard, identity, router, responder, notifier, logger)

	return &inboxFixture{store: store, sender: sender, guard: guard, notifier: notifier, inbox: inbox}
}

func instagramDMPayload(senderID, mid, text string) *models.MetaWebhookPayload {
	return &models.MetaWebhookPayload{
		Object: models.ObjectInstagram,
		Entry: []models.WebhookEntry{{
			ID: "page-1",
			Messaging: []models.MessagingEvent{
				func() models.MessagingEvent {
					var ev models.MessagingEvent
					ev.Sender.ID = senderID
					ev.Message = &struct {
						MID    string `json:"mid"`
						Text   string `json:"text"`
						IsEcho bool   `json:"is_echo"`
					}{MID: mid, Text: text}
					return ev
				}(),
			},
		}},
	}
}

func instagramCommentPayload(commenterID, username, commentID, text string) *models.MetaWebhookPayload {
	var value models.ChangeValue
	value.ID = commentID
	value.Text = text
	value.From = &struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}{ID: commenterID, Username: username}

	return &models.MetaWebhookPayload{
		Object: models.ObjectInstagram,
		Entry: []models.WebhookEntry{{
			ID:      "page-1",
			Changes: []models.ChangeEvent{{Field: models.ChangeFieldComments, Value: value}},
		}},
	}
}

func whatsappPayload(waID, name, msgID, body string) *models.MetaWebhookPayload {
	var value models.ChangeValue
	value.Contacts = []models.WhatsAppContact{{
		WaID: waID,
		Profile: &struct {
			Name string `json:"name"`
		}{Name: name},
	}}
	value.Messages = []models.WhatsAppMessage{{
		ID:   msgID,
		From: waID,
		Type: "text",
		Text: &struct {
			Body string `json:"body"`
		}{Body: body},
	}}

	return &models.MetaWebhookPayload{
		Object: models.ObjectWhatsApp,
		Entry: []models.WebhookEntry{{
			ID:      "waba-1",
			Changes: []models.ChangeEvent{{Field: "messages", Value: value}},
		}},
	}
}

func TestProcessWebhook_InstagramDMCreatesEverything(t *testing.T) {
	f := newInboxFixture(t, nil, models.AutoResponderConfig{})
	ctx := context.Background()

	stored := f.inbox.ProcessWebhook(ctx, instagramDMPayload("ig-user-1", "mid.1", "hola"))
	assert.Equal(t, 1, stored)

	customer, err := f.store.GetCustomerByChannelID(ctx, models.ChannelInstagram, "ig-user-1")
	require.NoError(t, err)
	require.NotNil(t, customer)
	assert.Equal(t, models.DefaultCustomerName, customer.Name)

	conv, err := f.store.GetOpenDMConversation(ctx, customer.ID, models.ChannelInstagram)
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.Equal(t, models.ThreadDM, conv.Kind)

	messages, err := f.store.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, models.DirectionIncoming, messages[0].Direction)
	assert.Equal(t, "hola", messages[0].Text)
	assert.Equal(t, "mid.1", messages[0].ProviderMsgID)

	require.Len(t, f.notifier.conversations, 1)
	require.Len(t, f.notifier.messages, 1)
}

func TestProcessWebhook_SecondDMReusesOpenConversation(t *testing.T) {
	f := newInboxFixture(t, nil, models.AutoResponderConfig{})
	ctx := context.Background()

	f.inbox.ProcessWebhook(ctx, instagramDMPayload("ig-user-1", "mid.1", "first"))
	f.inbox.ProcessWebhook(ctx, instagramDMPayload("ig-user-1", "mid.2", "second"))

	conversations, err := f.store.ListConversations(ctx, "")
	require.NoError(t, err)
	require.Len(t, conversations, 1)

	messages, err := f.store.ListMessages(ctx, conversations[0].ID)
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestProcessWebhook_RedeliveryIsIdempotent(t *testing.T) {
	f := newInboxFixture(t, nil, models.AutoResponderConfig{})
	ctx := context.Background()

	payload := instagramDMPayload("ig-user-1", "mid.1", "hola")
	f.inbox.ProcessWebhook(ctx, payload)
	f.inbox.ProcessWebhook(ctx, payload)

	conversations, err := f.store.ListConversations(ctx, "")
	require.NoError(t, err)
	require.Len(t, conversations, 1)

	messages, err := f.store.ListMessages(ctx, conversations[0].ID)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestProcessWebhook_CommentCreatesCommentThread(t *testing.T) {
	f := newInboxFixture(t, nil, models.AutoResponderConfig{})
	ctx := context.Background()

	stored := f.inbox.ProcessWebhook(ctx,
		instagramCommentPayload("ig-user-2", "maria_g", "comment-77", "nice product"))
	assert.Equal(t, 1, stored)

	conv, err := f.store.GetConversationByCommentID(ctx, "comment-77")
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.Equal(t, models.ThreadComment, conv.Kind)

	customer, err := f.store.GetCustomer(ctx, conv.CustomerID)
	require.NoError(t, err)
	require.NotNil(t, customer)
	assert.Equal(t, "maria_g", customer.Name)
}

func TestProcessWebhook_CommentOnClosedThreadReusesIt(t *testing.T) {
	f := newInboxFixture(t, nil, models.AutoResponderConfig{})
	ctx := context.Background()

	f.inbox.ProcessWebhook(ctx, instagramCommentPayload("ig-user-2", "maria_g", "comment-77", "first"))
	conv, err := f.store.GetConversationByCommentID(ctx, "comment-77")
	require.NoError(t, err)
	require.NoError(t, f.store.UpdateConversationStatus(ctx, conv.ID, models.ConversationClosed))

	// A redelivered or edited comment with a new provider message id still
	// lands in the same thread even though it is closed.
	payload := instagramCommentPayload("ig-user-2", "maria_g", "comment-77", "first")
	f.inbox.ProcessWebhook(ctx, payload)

	conversations, err := f.store.ListConversations(ctx, "")
	require.NoError(t, err)
	assert.Len(t, conversations, 1)
}

func TestProcessWebhook_WhatsAppUsesProfileName(t *testing.T) {
	f := newInboxFixture(t, nil, models.AutoResponderConfig{})
	ctx := context.Background()

	stored := f.inbox.ProcessWebhook(ctx, whatsappPayload("5215550001", "Juan", "wamid.1", "hola"))
	assert.Equal(t, 1, stored)

	customer, err := f.store.GetCustomerByChannelID(ctx, models.ChannelWhatsApp, "5215550001")
	require.NoError(t, err)
	require.NotNil(t, customer)
	assert.Equal(t, "Juan", customer.Name)
	assert.Equal(t, "5215550001", customer.WhatsAppID)
}

func TestProcessWebhook_LoopGuardDropsAutoReply(t *testing.T) {
	f := newInboxFixture(t, []string{"Thanks for your interest"}, models.AutoResponderConfig{})
	ctx := context.Background()

	stored := f.inbox.ProcessWebhook(ctx,
		instagramDMPayload("ig-user-1", "mid.1", "Thanks for your interest, Maria!"))
	assert.Equal(t, 0, stored)

	customer, err := f.store.GetCustomerByChannelID(ctx, models.ChannelInstagram, "ig-user-1")
	require.NoError(t, err)
	assert.Nil(t, customer)
}

func TestProcessWebhook_AutoResponderRepliesToKeywordComment(t *testing.T) {
	cfg := models.AutoResponderConfig{
		Enabled:      true,
		Keywords:     []string{"precio", "info"},
		CommentReply: "Thanks! Check your DMs for details.",
		DMReply:      "Here is the info you asked for.",
	}
	f := newInboxFixture(t, nil, cfg)
	ctx := context.Background()

	f.inbox.ProcessWebhook(ctx,
		instagramCommentPayload("ig-user-3", "pepe", "comment-9", "Cual es el PRECIO?"))

	calls := f.sender.sentCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "comment", calls[0].kind)
	assert.Equal(t, "comment-9", calls[0].target)
	assert.Equal(t, cfg.CommentReply, calls[0].text)
	assert.Equal(t, "dm", calls[1].kind)
	assert.Equal(t, "ig-user-3", calls[1].target)

	// The responder's own texts are now guarded against echoes.
	assert.True(t, f.guard.IsAutoReply(cfg.CommentReply))
	assert.True(t, f.guard.IsAutoReply(cfg.DMReply))
}

func TestProcessWebhook_AutoResponderIgnoresNonMatching(t *testing.T) {
	cfg := models.AutoResponderConfig{
		Enabled:      true,
		Keywords:     []string{"precio"},
		CommentReply: "Thanks! Check your DMs.",
	}
	f := newInboxFixture(t, nil, cfg)

	f.inbox.ProcessWebhook(context.Background(),
		instagramCommentPayload("ig-user-3", "pepe", "comment-9", "love this"))

	assert.Empty(t, f.sender.sentCalls())
}

func TestProcessWebhook_StorageFailureDoesNotAbortBatch(t *testing.T) {
	f := newInboxFixture(t, nil, models.AutoResponderConfig{})
	f.store.failSaveMessage = true

	stored := f.inbox.ProcessWebhook(context.Background(),
		instagramDMPayload("ig-user-1", "mid.1", "hola"))
	assert.Equal(t, 0, stored)
}

func TestProcessWebhook_UnknownObjectYieldsNothing(t *testing.T) {
	f := newInboxFixture(t, nil, models.AutoResponderConfig{})

	stored := f.inbox.ProcessWebhook(context.Background(),
		&models.MetaWebhookPayload{Object: "page"})
	assert.Equal(t, 0, stored)
}
