package mailer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
)

// HTTPMailer posts messages to a transactional mail API as JSON.
type HTTPMailer struct {
	client *resty.Client
	url    string
	from   string
}

type sendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

type sendResponse struct {
	ID        string `json:"id"`
	MessageID string `json:"messageId"`
}

// NewHTTPMailer builds an API transport authenticated with a bearer key.
func NewHTTPMailer(url, apiKey, from string) *HTTPMailer {
	client := resty.New().
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &HTTPMailer{client: client, url: url, from: from}
}

// Send posts msg. Client errors other than 429 are permanent and not retried.
func (m *HTTPMailer) Send(ctx context.Context, msg Message) (string, error) {
	var out sendResponse
	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(sendRequest{From: m.from, To: msg.To, Subject: msg.Subject, HTML: msg.HTML, Text: msg.Text}).
		SetResult(&out).
		Post(m.url)
	if err != nil {
		return "", fmt.Errorf("mail api request: %w", err)
	}

	if resp.IsError() {
		apiErr := fmt.Errorf("mail api returned %d: %s", resp.StatusCode(), resp.String())
		if resp.StatusCode() < http.StatusInternalServerError && resp.StatusCode() != http.StatusTooManyRequests {
			return "", backoff.Permanent(apiErr)
		}
		return "", apiErr
	}

	if out.MessageID != "" {
		return out.MessageID, nil
	}
	return out.ID, nil
}
