// Package ai talks to the generative backends that produce campaign copy,
// brand names and images. Backends never return Go errors; every call yields
// a tagged Result so callers can branch on the failure kind.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ukaseai/brandlab/internal/config"
	"github.com/ukaseai/brandlab/internal/metrics"
)

// TextRequest asks for generated text. ResponseMIMEType "application/json"
// together with an optional ResponseSchema requests structured output.
type TextRequest struct {
	Prompt           string          `json:"prompt"`
	ResponseMIMEType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}

// WantsJSON reports whether the caller asked for structured output.
func (r TextRequest) WantsJSON() bool {
	return strings.EqualFold(r.ResponseMIMEType, "application/json") || len(r.ResponseSchema) > 0
}

// ImageRequest asks for one generated image.
type ImageRequest struct {
	Prompt string `json:"prompt"`
}

// Backend generates text and images.
type Backend interface {
	GenerateText(ctx context.Context, req TextRequest) Result
	GenerateImage(ctx context.Context, req ImageRequest) Result
}

// New builds the configured backend. A Gemini backend without an API key
// still comes back, answering every call with KindNotConfigured.
func New(ctx context.Context, cfg config.AIConfig) (Backend, error) {
	var b Backend
	switch strings.ToLower(cfg.Provider) {
	case "", "gemini":
		if cfg.Gemini.APIKey == "" {
			b = Unconfigured{Reason: "AI key not configured"}
			break
		}
		b = NewGemini(cfg.Gemini, cfg.MaxRetries)
	case "bedrock":
		br, err := NewBedrock(ctx, cfg.Bedrock)
		if err != nil {
			return nil, err
		}
		b = br
	default:
		return nil, fmt.Errorf("ai: unknown provider %q", cfg.Provider)
	}
	return Instrument(b), nil
}

// Unconfigured answers every call with KindNotConfigured.
type Unconfigured struct {
	Reason string
}

func (u Unconfigured) GenerateText(context.Context, TextRequest) Result {
	return Failed(KindNotConfigured, "%s", u.Reason)
}

func (u Unconfigured) GenerateImage(context.Context, ImageRequest) Result {
	return Failed(KindNotConfigured, "%s", u.Reason)
}

type instrumented struct {
	next Backend
}

// Instrument counts calls per kind and outcome.
func Instrument(b Backend) Backend {
	return instrumented{next: b}
}

func (i instrumented) GenerateText(ctx context.Context, req TextRequest) Result {
	res := i.next.GenerateText(ctx, req)
	metrics.AIRequests.WithLabelValues("text", outcome(res)).Inc()
	return res
}

func (i instrumented) GenerateImage(ctx context.Context, req ImageRequest) Result {
	res := i.next.GenerateImage(ctx, req)
	metrics.AIRequests.WithLabelValues("image", outcome(res)).Inc()
	return res
}

func outcome(r Result) string {
	if r.OK {
		return "ok"
	}
	return string(r.ErrorKind)
}
