package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ukaseai/brandlab/internal/config"
	"github.com/ukaseai/brandlab/internal/pkg/httpretry"
	"github.com/ukaseai/brandlab/internal/pkg/logger"
)

// SendGrid sends through the SendGrid v3 Mail Send API.
type SendGrid struct {
	apiKey  string
	baseURL string
	client  httpretry.HTTPDoer
}

// NewSendGrid creates a SendGrid sender with transient-error retries.
func NewSendGrid(cfg config.SendGridConfig) (*SendGrid, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("transport: SendGrid API key not configured")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.sendgrid.com/v3"
	}
	httpClient := &http.Client{Timeout: cfg.Timeout()}
	return &SendGrid{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpretry.NewRetryClient(httpClient, cfg.MaxRetries),
	}, nil
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgMail struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

// Send delivers msg. Any non-2xx status is an error carrying the status
// and response body.
func (s *SendGrid) Send(ctx context.Context, msg *Message) error {
	payload := sgMail{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: msg.To}}}},
		From:             parseAddress(msg.From),
		Subject:          msg.Subject,
		Content:          []sgContent{{Type: "text/html", Value: msg.HTML}},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sendgrid: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/mail/send", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("sendgrid: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Provider: "sendgrid", Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	logger.Debug("[SendGrid] sent", "to", msg.To, "message_id", resp.Header.Get("X-Message-Id"))
	return nil
}

// parseAddress splits "Name <addr>" into its parts.
func parseAddress(s string) sgAddress {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "<"); i >= 0 && strings.HasSuffix(s, ">") {
		return sgAddress{
			Email: strings.TrimSpace(s[i+1 : len(s)-1]),
			Name:  strings.Trim(strings.TrimSpace(s[:i]), `"`),
		}
	}
	return sgAddress{Email: s}
}
