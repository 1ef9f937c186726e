package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukaseai/brandlab/internal/config"
)

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func testMessage() *Message {
	return &Message{
		To:      "ann@example.com",
		From:    "BrandLab <hello@brandlab.test>",
		Subject: "Hi Ann",
		HTML:    "<p>Hello</p>",
	}
}

func TestSESSend(t *testing.T) {
	fake := &fakeSES{}
	s := newSES(fake, "campaigns")

	require.NoError(t, s.Send(context.Background(), testMessage()))
	require.NotNil(t, fake.input)
	assert.Equal(t, "BrandLab <hello@brandlab.test>", aws.ToString(fake.input.FromEmailAddress))
	assert.Equal(t, []string{"ann@example.com"}, fake.input.Destination.ToAddresses)
	assert.Equal(t, "Hi Ann", aws.ToString(fake.input.Content.Simple.Subject.Data))
	assert.Equal(t, "<p>Hello</p>", aws.ToString(fake.input.Content.Simple.Body.Html.Data))
	assert.Equal(t, "campaigns", aws.ToString(fake.input.ConfigurationSetName))
}

func TestSESSendError(t *testing.T) {
	s := newSES(&fakeSES{err: errors.New("MessageRejected: Email address is not verified")}, "")
	err := s.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MessageRejected")
}

func TestSendGridSend(t *testing.T) {
	var got sgMail
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer sg-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("X-Message-Id", "sg-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	s, err := NewSendGrid(config.SendGridConfig{APIKey: "sg-key", BaseURL: server.URL + "/", TimeoutSeconds: 5, MaxRetries: 1})
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), testMessage()))
	assert.Equal(t, "ann@example.com", got.Personalizations[0].To[0].Email)
	assert.Equal(t, sgAddress{Email: "hello@brandlab.test", Name: "BrandLab"}, got.From)
	assert.Equal(t, "Hi Ann", got.Subject)
	assert.Equal(t, []sgContent{{Type: "text/html", Value: "<p>Hello</p>"}}, got.Content)
}

func TestSendGridRejects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors":[{"message":"invalid to"}]}`))
	}))
	defer server.Close()

	s, err := NewSendGrid(config.SendGridConfig{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	err = s.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "invalid to")
	assert.False(t, ProviderFault(err))
}

func TestNewSendGridRequiresKey(t *testing.T) {
	_, err := NewSendGrid(config.SendGridConfig{})
	assert.Error(t, err)
}

func TestParseAddress(t *testing.T) {
	assert.Equal(t, sgAddress{Email: "a@x.com"}, parseAddress(" a@x.com "))
	assert.Equal(t, sgAddress{Email: "a@x.com", Name: "Ann Lee"}, parseAddress(`"Ann Lee" <a@x.com>`))
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	var calls int32
	failing := SenderFunc(func(ctx context.Context, msg *Message) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("smtp down")
	})
	b := NewBreaker("test", failing, config.CircuitBreakerConfig{MinRequests: 3, FailureRatio: 0.5, OpenSeconds: 60})

	for i := 0; i < 3; i++ {
		assert.EqualError(t, b.Send(context.Background(), testMessage()), "smtp down")
	}
	assert.Equal(t, "open", b.State())

	err := b.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "open breaker must not call the provider")
}

func TestBreakerIgnoresRecipientRejections(t *testing.T) {
	var calls int32
	rejecting := SenderFunc(func(ctx context.Context, msg *Message) error {
		atomic.AddInt32(&calls, 1)
		return &StatusError{Provider: "sendgrid", Code: http.StatusBadRequest, Body: "invalid to"}
	})
	b := NewBreaker("sendgrid", rejecting, config.CircuitBreakerConfig{MinRequests: 3, FailureRatio: 0.5, OpenSeconds: 60})

	for i := 0; i < 6; i++ {
		err := b.Send(context.Background(), testMessage())
		var status *StatusError
		require.ErrorAs(t, err, &status)
		assert.Equal(t, http.StatusBadRequest, status.Code)
	}
	assert.Equal(t, "closed", b.State())
	assert.Equal(t, int32(6), atomic.LoadInt32(&calls))
}

func TestProviderFault(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network", errors.New("dial tcp: connection refused"), true},
		{"send timeout", fmt.Errorf("sendgrid: %w", context.DeadlineExceeded), true},
		{"canceled", fmt.Errorf("sendgrid: %w", context.Canceled), false},
		{"sendgrid 400", &StatusError{Provider: "sendgrid", Code: 400}, false},
		{"sendgrid 403", &StatusError{Provider: "sendgrid", Code: 403}, false},
		{"sendgrid 429", &StatusError{Provider: "sendgrid", Code: 429}, true},
		{"sendgrid 503", &StatusError{Provider: "sendgrid", Code: 503}, true},
		{"ses rejected", fmt.Errorf("ses: %w", &types.MessageRejected{Message: aws.String("Email address is not verified")}), false},
		{"ses bad request", fmt.Errorf("ses: %w", &types.BadRequestException{Message: aws.String("bad")}), false},
		{"ses throttled", fmt.Errorf("ses: %w", &types.TooManyRequestsException{Message: aws.String("slow down")}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProviderFault(tt.err))
		})
	}
}

func TestNew(t *testing.T) {
	_, err := New(context.Background(), config.EmailConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = New(context.Background(), config.EmailConfig{Provider: "pigeon"})
	assert.Error(t, err)

	s, err := New(context.Background(), config.EmailConfig{
		Provider:       "sendgrid",
		SendGrid:       config.SendGridConfig{APIKey: "k"},
		CircuitBreaker: config.CircuitBreakerConfig{Enabled: true},
	})
	require.NoError(t, err)
	_, ok := s.(*Breaker)
	assert.True(t, ok)
}
