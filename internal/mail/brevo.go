package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// BrevoAPIURL is the transactional email endpoint of Brevo.
const BrevoAPIURL = "https://api.brevo.com/v3/smtp/email"

// BrevoSender sends mail through the Brevo HTTP API.
type BrevoSender struct {
	apiKey    string
	fromEmail string
	fromName  string
	endpoint  string
	http      *http.Client
}

// NewBrevoSender returns a sender for the given credentials. An empty endpoint
// selects BrevoAPIURL.
func NewBrevoSender(apiKey, fromEmail, fromName, endpoint string) (*BrevoSender, error) {
	if apiKey == "" || fromEmail == "" {
		return nil, errors.New("brevo: api key and sender email are required")
	}
	if endpoint == "" {
		endpoint = BrevoAPIURL
	}
	return &BrevoSender{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
		endpoint:  endpoint,
		http:      &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type brevoAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoRequest struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

// Send posts the message. Any non-2xx status is an error.
func (s *BrevoSender) Send(ctx context.Context, to, subject, html string) error {
	body, err := json.Marshal(brevoRequest{
		Sender:      brevoAddress{Email: s.fromEmail, Name: s.fromName},
		To:          []brevoAddress{{Email: to}},
		Subject:     subject,
		HTMLContent: html,
	})
	if err != nil {
		return fmt.Errorf("brevo: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("brevo: request: %w", err)
	}
	req.Header.Set("api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("brevo: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("brevo: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}
