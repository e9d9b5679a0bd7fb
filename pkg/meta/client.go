// Package meta is a minimal Meta Graph API client covering the two send
// shapes the inbox needs: direct messages to a user and public replies to a
// comment.
package meta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Client interface {
	SendDirectMessage(ctx context.Context, recipientID, text string) (*SendResult, error)
	ReplyToComment(ctx context.Context, commentID, text string) (*SendResult, error)
}

type GraphClient struct {
	baseURL     string
	apiVersion  string
	pageID      string
	accessToken string
	retryCount  int
	client      *http.Client
}

func NewClient(cfg ClientConfig) *GraphClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retryCount := cfg.RetryCount
	if retryCount < 1 {
		retryCount = 1
	}

	return &GraphClient{
		baseURL:     cfg.BaseURL,
		apiVersion:  cfg.APIVersion,
		pageID:      cfg.PageID,
		accessToken: cfg.AccessToken,
		retryCount:  retryCount,
		client:      &http.Client{Timeout: timeout},
	}
}

// SendDirectMessage sends a private message to a user the page has an open
// messaging window with.
func (c *GraphClient) SendDirectMessage(ctx context.Context, recipientID, text string) (*SendResult, error) {
	payload := sendMessageRequest{
		Recipient: recipient{ID: recipientID},
		Message:   messageBody{Text: text},
	}
	endpoint := fmt.Sprintf("/%s/messages", c.pageID)
	return c.post(ctx, endpoint, payload)
}

// ReplyToComment posts a public reply under an existing comment.
func (c *GraphClient) ReplyToComment(ctx context.Context, commentID, text string) (*SendResult, error) {
	payload := commentReplyRequest{Message: text}
	endpoint := fmt.Sprintf("/%s/replies", commentID)
	return c.post(ctx, endpoint, payload)
}

func (c *GraphClient) post(ctx context.Context, endpoint string, payload interface{}) (*SendResult, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s%s", c.baseURL, c.apiVersion, endpoint)

	var lastErr error
	for attempt := 0; attempt < c.retryCount; attempt++ {
		result, retryable, err := c.doPost(ctx, url, jsonData)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 500 * time.Millisecond):
		}
	}
	return nil, lastErr
}

// doPost performs one request. The second return reports whether the failure
// is worth retrying (network errors and 5xx; Graph rejections are final).
func (c *GraphClient) doPost(ctx context.Context, url string, body []byte) (*SendResult, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeAPIError(respBody, resp.StatusCode)
		return nil, resp.StatusCode >= 500, apiErr
	}

	result := &SendResult{Raw: json.RawMessage(respBody)}
	_ = json.Unmarshal(respBody, result)
	if result.MessageID == "" {
		// Comment replies return {"id": ...} rather than message/recipient ids.
		var generic struct {
			ID string `json:"id"`
		}
		if json.Unmarshal(respBody, &generic) == nil && generic.ID != "" {
			result.MessageID = generic.ID
		}
	}

	return result, false, nil
}

func decodeAPIError(body []byte, status int) error {
	var envelope graphErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		envelope.Error.HTTPStatus = status
		return envelope.Error
	}
	return &APIError{
		Message:    string(body),
		HTTPStatus: status,
	}
}
