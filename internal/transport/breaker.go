package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/sony/gobreaker"

	"github.com/ukaseai/brandlab/internal/config"
	"github.com/ukaseai/brandlab/internal/pkg/logger"
)

// Breaker stops calling a provider that keeps failing. While open, sends
// fail immediately and each recipient records the breaker error. Only
// provider faults count toward opening it; a message the provider refuses
// is that recipient's failure alone.
type Breaker struct {
	next Sender
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker wraps next. The breaker opens once at least MinRequests calls
// were made in the interval and the failure ratio reaches FailureRatio.
func NewBreaker(name string, next Sender, cfg config.CircuitBreakerConfig) *Breaker {
	minRequests := cfg.MinRequests
	if minRequests == 0 {
		minRequests = 5
	}
	ratio := cfg.FailureRatio
	if ratio == 0 {
		ratio = 0.5
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Duration(cfg.IntervalSeconds) * time.Second,
		Timeout:     time.Duration(cfg.OpenSeconds) * time.Second,
		IsSuccessful: func(err error) bool {
			return !ProviderFault(err)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && failureRatio >= ratio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("transport circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return &Breaker{next: next, cb: cb}
}

// Send forwards to the wrapped sender through the breaker.
func (b *Breaker) Send(ctx context.Context, msg *Message) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Send(ctx, msg)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return fmt.Errorf("transport: %s provider unavailable: %w", b.cb.Name(), err)
	}
	return err
}

// State reports the breaker state.
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// ProviderFault reports whether err means the provider itself is unhealthy:
// a network failure, a send timeout, throttling or a 5xx. Per-message
// rejections such as a SendGrid 4xx or SES MessageRejected are not faults,
// and neither is a canceled request.
func ProviderFault(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var (
		throttled  *types.TooManyRequestsException
		rejected   *types.MessageRejected
		badRequest *types.BadRequestException
	)
	switch {
	case errors.As(err, &throttled):
		return true
	case errors.As(err, &rejected), errors.As(err, &badRequest):
		return false
	}

	var status *StatusError
	if errors.As(err, &status) {
		return faultStatus(status.Code)
	}
	var resp *awshttp.ResponseError
	if errors.As(err, &resp) {
		return faultStatus(resp.HTTPStatusCode())
	}
	return true
}

func faultStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
