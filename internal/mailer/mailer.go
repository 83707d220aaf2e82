// Package mailer delivers finished assessment reports by email through
// the Resend HTTP API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultBaseURL = "https://api.resend.com"
	defaultFrom    = "Datrix Business Intelligence Scanner <datrix@navvicorp.com>"
)

var ErrNotConfigured = errors.New("mailer: not configured")

// Message is one outbound email.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

// Sender delivers a message and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Client talks to the Resend REST API.
type Client struct {
	baseURL    string
	apiKey     string
	from       string
	http       *http.Client
	maxElapsed time.Duration
}

func NewClient(apiKey string) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		from:       defaultFrom,
		http:       &http.Client{Timeout: 10 * time.Second},
		maxElapsed: 15 * time.Second,
	}
}

// NewClientFromEnv returns ErrNotConfigured when RESEND_API_KEY is unset,
// so callers can degrade to a 503 instead of failing startup.
func NewClientFromEnv() (*Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("RESEND_API_KEY"))
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	c := NewClient(apiKey)
	if from := strings.TrimSpace(os.Getenv("DATRIX_MAIL_FROM")); from != "" {
		c.from = from
	}
	if base := strings.TrimSpace(os.Getenv("RESEND_BASE_URL")); base != "" {
		c.baseURL = strings.TrimRight(base, "/")
	}
	return c, nil
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendResponse struct {
	ID string `json:"id"`
}

func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	if msg.To == "" {
		return "", errors.New("mailer: recipient required")
	}
	body, err := json.Marshal(sendRequest{
		From:    c.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("mailer: encode request: %w", err)
	}

	var id string
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("mailer: build request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("mailer: send: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("mailer: send: status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(fmt.Errorf("mailer: send: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
		}

		var out sendResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return backoff.Permanent(fmt.Errorf("mailer: decode response: %w", err))
		}
		id = out.ID
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxElapsed
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return "", err
	}
	return id, nil
}
