// Package transport delivers personalized campaign messages through an email
// provider.
package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ukaseai/brandlab/internal/config"
)

// ErrNotConfigured is returned by New when no provider is selected.
var ErrNotConfigured = errors.New("transport: no email provider configured")

// Message is one fully personalized email.
type Message struct {
	To      string
	From    string
	Subject string
	HTML    string
}

// Sender delivers a single message. A nil error means the provider accepted
// it; anything else is that recipient's failure.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// StatusError is a non-2xx answer from an HTTP provider.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Code, e.Body)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg *Message) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, msg *Message) error { return f(ctx, msg) }

// New builds the configured provider, wrapped in a circuit breaker when
// enabled.
func New(ctx context.Context, cfg config.EmailConfig) (Sender, error) {
	var (
		s   Sender
		err error
	)
	switch strings.ToLower(cfg.Provider) {
	case "":
		return nil, ErrNotConfigured
	case "ses":
		s, err = NewSES(ctx, cfg.SES)
	case "sendgrid":
		s, err = NewSendGrid(cfg.SendGrid)
	default:
		return nil, fmt.Errorf("transport: unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CircuitBreaker.Enabled {
		s = NewBreaker(cfg.Provider, s, cfg.CircuitBreaker)
	}
	return s, nil
}
