package meta

import (
	"encoding/json"
	"fmt"
	"time"
)

// ClientConfig configures the Graph API client.
type ClientConfig struct {
	BaseURL     string
	APIVersion  string
	PageID      string
	AccessToken string
	Timeout     time.Duration
	RetryCount  int
}

// SendResult carries the provider's acknowledgment of an outbound send.
// Raw preserves the full response body for callers that pass it through.
type SendResult struct {
	MessageID   string          `json:"message_id,omitempty"`
	RecipientID string          `json:"recipient_id,omitempty"`
	Raw         json.RawMessage `json:"-"`
}

// APIError is a structured Graph API rejection.
type APIError struct {
	Message    string `json:"message"`
	Type       string `json:"type"`
	Code       int    `json:"code"`
	Subcode    int    `json:"error_subcode,omitempty"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s (Cod: %d)", e.Message, e.Code)
	}
	return e.Message
}

// graphErrorEnvelope is the wire shape of a Graph API error response.
type graphErrorEnvelope struct {
	Error *APIError `json:"error"`
}

// sendMessageRequest is the /{page-id}/messages request body.
type sendMessageRequest struct {
	Recipient recipient   `json:"recipient"`
	Message   messageBody `json:"message"`
}

type recipient struct {
	ID string `json:"id"`
}

type messageBody struct {
	Text string `json:"text"`
}

// commentReplyRequest is the /{comment-id}/replies request body.
type commentReplyRequest struct {
	Message string `json:"message"`
}
