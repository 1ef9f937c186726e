package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/ukaseai/brandlab/internal/config"
	"github.com/ukaseai/brandlab/internal/pkg/logger"
)

type bedrockAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Bedrock generates text with an Anthropic model and images with Titan
// through the Bedrock runtime.
type Bedrock struct {
	client       bedrockAPI
	textModelID  string
	imageModelID string
	maxTokens    int
}

// NewBedrock loads AWS config for the region (and profile, if set).
func NewBedrock(ctx context.Context, cfg config.BedrockConfig) (*Bedrock, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("ai: load AWS config: %w", err)
	}
	logger.Info("bedrock backend initialized", "region", cfg.Region, "text_model", cfg.TextModelID, "image_model", cfg.ImageModelID)
	return newBedrock(bedrockruntime.NewFromConfig(awsCfg), cfg), nil
}

func newBedrock(client bedrockAPI, cfg config.BedrockConfig) *Bedrock {
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4000
	}
	return &Bedrock{
		client:       client,
		textModelID:  cfg.TextModelID,
		imageModelID: cfg.ImageModelID,
		maxTokens:    maxTokens,
	}
}

type anthropicBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	System           string             `json:"system,omitempty"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []anthropicBlock `json:"content"`
}

type titanRequest struct {
	TaskType              string                `json:"taskType"`
	TextToImageParams     titanTextToImage      `json:"textToImageParams"`
	ImageGenerationConfig titanGenerationConfig `json:"imageGenerationConfig"`
}

type titanTextToImage struct {
	Text string `json:"text"`
}

type titanGenerationConfig struct {
	NumberOfImages int `json:"numberOfImages"`
}

type titanResponse struct {
	Images []string `json:"images"`
	Error  string   `json:"error"`
}

// GenerateText sends the prompt as a single user turn. Structured requests
// get a system instruction asking for bare JSON, with the schema if given.
func (b *Bedrock) GenerateText(ctx context.Context, req TextRequest) Result {
	if strings.TrimSpace(req.Prompt) == "" {
		return Failed(KindBadRequest, "prompt is required")
	}

	payload := anthropicRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        b.maxTokens,
		Messages: []anthropicMessage{{
			Role:    "user",
			Content: []anthropicBlock{{Type: "text", Text: req.Prompt}},
		}},
	}
	if req.WantsJSON() {
		payload.System = "Respond with a single JSON value and nothing else."
		if len(req.ResponseSchema) > 0 {
			payload.System += " The JSON must match this schema: " + string(req.ResponseSchema)
		}
	}

	var out anthropicResponse
	if res, ok := b.invoke(ctx, b.textModelID, payload, &out); !ok {
		return res
	}

	var text strings.Builder
	for _, c := range out.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	if text.Len() == 0 {
		return Failed(KindEmptyPayload, "no text returned")
	}
	return TextResult(text.String())
}

// GenerateImage asks Titan for one image.
func (b *Bedrock) GenerateImage(ctx context.Context, req ImageRequest) Result {
	if strings.TrimSpace(req.Prompt) == "" {
		return Failed(KindBadRequest, "prompt is required")
	}

	payload := titanRequest{
		TaskType:              "TEXT_IMAGE",
		TextToImageParams:     titanTextToImage{Text: req.Prompt},
		ImageGenerationConfig: titanGenerationConfig{NumberOfImages: 1},
	}

	var out titanResponse
	if res, ok := b.invoke(ctx, b.imageModelID, payload, &out); !ok {
		return res
	}
	if out.Error != "" {
		return Failed(KindUpstream, "titan: %s", out.Error)
	}
	if len(out.Images) == 0 || out.Images[0] == "" {
		return Failed(KindEmptyPayload, "no image data returned")
	}
	img, err := base64.StdEncoding.DecodeString(out.Images[0])
	if err != nil {
		return Failed(KindUpstream, "decode image: %v", err)
	}
	return ImageResult(img)
}

func (b *Bedrock) invoke(ctx context.Context, modelID string, payload, out any) (Result, bool) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Failed(KindBadRequest, "marshal request: %v", err), false
	}

	output, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		logger.Warn("bedrock invoke failed", "model", modelID, "error", err)
		return Failed(KindUpstream, "bedrock: %v", err), false
	}

	if err := json.Unmarshal(output.Body, out); err != nil {
		return Failed(KindUpstream, "decode response: %v", err), false
	}
	return Result{}, true
}
