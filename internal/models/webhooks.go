package models

// Meta webhook object discriminators
const (
	ObjectInstagram = "instagram"
	ObjectWhatsApp  = "whatsapp_business_account"
)

// ChangeFieldComments is the only change field the adapter emits events for.
const ChangeFieldComments = "comments"

// MetaWebhookPayload is the envelope Meta delivers for both Instagram and
// WhatsApp Business events. A single entry may carry both a messaging array
// (Instagram DMs) and a changes array (comments / WhatsApp values).
type MetaWebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID        string           `json:"id"`
	Time      int64            `json:"time"`
	Messaging []MessagingEvent `json:"messaging,omitempty"`
	Changes   []ChangeEvent    `json:"changes,omitempty"`
}

// MessagingEvent is one Instagram direct-message event.
type MessagingEvent struct {
	Sender struct {
		ID string `json:"id"`
	} `json:"sender"`
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Timestamp int64 `json:"timestamp"`
	Message   *struct {
		MID    string `json:"mid"`
		Text   string `json:"text"`
		IsEcho bool   `json:"is_echo"`
	} `json:"message,omitempty"`
}

// ChangeEvent carries Instagram comment changes and WhatsApp message batches,
// discriminated by Field.
type ChangeEvent struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

type ChangeValue struct {
	// Instagram comment fields
	ID   string `json:"id,omitempty"`
	Text string `json:"text,omitempty"`
	From *struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"from,omitempty"`
	Media *struct {
		ID string `json:"id"`
	} `json:"media,omitempty"`

	// WhatsApp Business fields
	MessagingProduct string            `json:"messaging_product,omitempty"`
	Contacts         []WhatsAppContact `json:"contacts,omitempty"`
	Messages         []WhatsAppMessage `json:"messages,omitempty"`
}

type WhatsAppContact struct {
	WaID    string `json:"wa_id"`
	Profile *struct {
		Name string `json:"name"`
	} `json:"profile,omitempty"`
}

type WhatsAppMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
}

// ActionSendReply is the only action the webhook endpoint accepts on agent
// POSTs.
const ActionSendReply = "send_reply"

// Agent reply message types.
const (
	ReplyTypeComment = "comment"
	ReplyTypeDM      = "dm"
)

// SendReplyRequest is the action-style POST body the agent dashboard submits
// to the webhook endpoint.
type SendReplyRequest struct {
	Action      string `json:"action"`
	MessageType string `json:"message_type"`
	Channel     string `json:"channel,omitempty"`
	RecipientID string `json:"recipient_id,omitempty"`
	CommentID   string `json:"comment_id,omitempty"`
	Message     string `json:"message"`
}

// SendReplyResponse mirrors the dashboard contract: success plus the raw
// provider response, or a provider error text.
type SendReplyResponse struct {
	Success      bool        `json:"success"`
	MetaResponse interface{} `json:"meta_response,omitempty"`
	Error        string      `json:"error,omitempty"`
}
