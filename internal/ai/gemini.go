package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ukaseai/brandlab/internal/config"
	"github.com/ukaseai/brandlab/internal/pkg/httpretry"
	"github.com/ukaseai/brandlab/internal/pkg/logger"
)

// Gemini calls the Google Generative Language REST API: generateContent for
// text and the Imagen predict endpoint for images.
type Gemini struct {
	apiKey      string
	baseURL     string
	textModel   string
	imageModel  string
	textClient  httpretry.HTTPDoer
	imageClient httpretry.HTTPDoer
}

// NewGemini creates a Gemini backend. Text and image calls get separate
// timeouts since image generation is much slower.
func NewGemini(cfg config.GeminiConfig, maxRetries int) *Gemini {
	textTimeout, imageTimeout := cfg.TextTimeout(), cfg.ImageTimeout()
	if textTimeout == 0 {
		textTimeout = 30 * time.Second
	}
	if imageTimeout == 0 {
		imageTimeout = 60 * time.Second
	}
	return &Gemini{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		textModel:   cfg.TextModel,
		imageModel:  cfg.ImageModel,
		textClient:  httpretry.NewRetryClient(&http.Client{Timeout: textTimeout}, maxRetries),
		imageClient: httpretry.NewRetryClient(&http.Client{Timeout: imageTimeout}, maxRetries),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	ResponseMIMEType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}

type geminiTextRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiTextResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type imagenRequest struct {
	Instances  []imagenInstance `json:"instances"`
	Parameters imagenParameters `json:"parameters"`
}

type imagenInstance struct {
	Prompt string `json:"prompt"`
}

type imagenParameters struct {
	SampleCount int `json:"sampleCount"`
}

type imagenResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MIMEType           string `json:"mimeType"`
	} `json:"predictions"`
}

type googleError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GenerateText returns the first candidate's first text part.
func (g *Gemini) GenerateText(ctx context.Context, req TextRequest) Result {
	if strings.TrimSpace(req.Prompt) == "" {
		return Failed(KindBadRequest, "prompt is required")
	}

	payload := geminiTextRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
	}
	if req.ResponseMIMEType != "" || len(req.ResponseSchema) > 0 {
		payload.GenerationConfig = &geminiGenerationConfig{
			ResponseMIMEType: req.ResponseMIMEType,
			ResponseSchema:   req.ResponseSchema,
		}
	}

	var out geminiTextResponse
	if res, ok := g.call(ctx, g.textClient, g.textModel, "generateContent", payload, &out); !ok {
		return res
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 || out.Candidates[0].Content.Parts[0].Text == "" {
		return Failed(KindEmptyPayload, "no text returned")
	}
	return TextResult(out.Candidates[0].Content.Parts[0].Text)
}

// GenerateImage returns the decoded bytes of the first prediction.
func (g *Gemini) GenerateImage(ctx context.Context, req ImageRequest) Result {
	if strings.TrimSpace(req.Prompt) == "" {
		return Failed(KindBadRequest, "prompt is required")
	}

	payload := imagenRequest{
		Instances:  []imagenInstance{{Prompt: req.Prompt}},
		Parameters: imagenParameters{SampleCount: 1},
	}

	var out imagenResponse
	if res, ok := g.call(ctx, g.imageClient, g.imageModel, "predict", payload, &out); !ok {
		return res
	}
	if len(out.Predictions) == 0 || out.Predictions[0].BytesBase64Encoded == "" {
		return Failed(KindEmptyPayload, "no image data returned")
	}
	img, err := base64.StdEncoding.DecodeString(out.Predictions[0].BytesBase64Encoded)
	if err != nil {
		return Failed(KindUpstream, "decode image: %v", err)
	}
	return ImageResult(img)
}

// call posts payload to models/<model>:<method> and decodes into out. On
// failure it returns the Result to hand back and false.
func (g *Gemini) call(ctx context.Context, client httpretry.HTTPDoer, model, method string, payload, out any) (Result, bool) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Failed(KindBadRequest, "marshal request: %v", err), false
	}

	endpoint := fmt.Sprintf("%s/models/%s:%s?key=%s", g.baseURL, model, method, url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Failed(KindBadRequest, "create request: %v", err), false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		// the URL carries the key; keep it out of messages
		if uerr, ok := err.(*url.Error); ok {
			err = uerr.Err
		}
		logger.Warn("gemini request failed", "model", model, "method", method, "error", err)
		return Failed(KindUpstream, "%s: %v", method, err), false
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Failed(KindUpstream, "read response: %v", err), false
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(data))
		var gerr googleError
		if json.Unmarshal(data, &gerr) == nil && gerr.Error.Message != "" {
			msg = gerr.Error.Message
		}
		logger.Warn("gemini returned error", "model", model, "status", resp.StatusCode, "message", msg)
		return Failed(KindUpstream, "%s: status %d: %s", method, resp.StatusCode, msg), false
	}

	if err := json.Unmarshal(data, out); err != nil {
		return Failed(KindUpstream, "decode response: %v", err), false
	}
	return Result{}, true
}
