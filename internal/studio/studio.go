// Package studio turns AI output into branded artifacts: text carries the
// provenance signature and images carry the visible watermark plus an
// embedded copyright chunk.
package studio

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ukaseai/brandlab/internal/ai"
	"github.com/ukaseai/brandlab/internal/config"
	"github.com/ukaseai/brandlab/internal/metrics"
	"github.com/ukaseai/brandlab/internal/pkg/logger"
	"github.com/ukaseai/brandlab/internal/prompts"
	"github.com/ukaseai/brandlab/internal/provenance"
	"github.com/ukaseai/brandlab/internal/storage"
	"github.com/ukaseai/brandlab/internal/watermark"
)

// ErrUnexpectedResponse is returned when structured AI output does not have
// the requested shape.
var ErrUnexpectedResponse = errors.New("studio: unexpected AI response")

// Publisher stores a finished image and returns its public URL.
type Publisher interface {
	Publish(ctx context.Context, png []byte) (string, error)
}

// Image is a branded PNG and, when published, its URL.
type Image struct {
	PNG []byte
	URL string
}

// DataURL returns the image inlined as a data: URL.
func (i *Image) DataURL() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(i.PNG)
}

// Options wires a Studio.
type Options struct {
	Backend   ai.Backend
	Prompts   *prompts.Library
	Embedder  *provenance.Embedder
	Watermark watermark.Spec
	// Publisher is optional; without it images are returned inline only.
	Publisher Publisher
}

// Studio generates branded content.
type Studio struct {
	backend   ai.Backend
	prompts   *prompts.Library
	embedder  *provenance.Embedder
	watermark watermark.Spec
	publisher Publisher
}

// New returns a Studio. Prompts default to the built-in library.
func New(opts Options) *Studio {
	if opts.Prompts == nil {
		opts.Prompts = prompts.MustNew()
	}
	return &Studio{
		backend:   opts.Backend,
		prompts:   opts.Prompts,
		embedder:  opts.Embedder,
		watermark: opts.Watermark,
		publisher: opts.Publisher,
	}
}

// WatermarkSpec builds the watermark from branding config. Logo paths may be
// local or s3://; empty paths use the bundled marks. Assets are read once
// here, not per image.
func WatermarkSpec(ctx context.Context, cfg config.BrandingConfig, f storage.Fetcher) (watermark.Spec, error) {
	spec := watermark.DefaultSpec()
	if cfg.Product != "" && cfg.Platform != "" {
		spec.Text = provenance.Signature(cfg.Product, cfg.Platform)
	}
	if cfg.Watermark.Text != "" {
		spec.Text = cfg.Watermark.Text
	}
	if cfg.Watermark.Font != "" {
		spec.Font = cfg.Watermark.Font
	}
	if cfg.Watermark.Color != "" {
		spec.Color = cfg.Watermark.Color
	}
	spec.Padding = cfg.Watermark.PaddingPx()

	if _, err := watermark.ParseFont(spec.Font); err != nil {
		return watermark.Spec{}, err
	}
	if _, err := watermark.ParseColor(spec.Color); err != nil {
		return watermark.Spec{}, err
	}

	var err error
	if cfg.Watermark.LogoApp != "" {
		if spec.LogoA, err = storage.ReadAsset(ctx, f, cfg.Watermark.LogoApp); err != nil {
			return watermark.Spec{}, fmt.Errorf("studio: app logo: %w", err)
		}
	}
	if cfg.Watermark.LogoCompany != "" {
		if spec.LogoB, err = storage.ReadAsset(ctx, f, cfg.Watermark.LogoCompany); err != nil {
			return watermark.Spec{}, fmt.Errorf("studio: company logo: %w", err)
		}
	}
	return spec, nil
}

// Text generates text and stamps it for kind. Structured (JSON) requests
// come back untouched since a trailer would make them unparseable.
func (s *Studio) Text(ctx context.Context, req ai.TextRequest, kind provenance.Kind) (string, error) {
	res := s.backend.GenerateText(ctx, req)
	if err := res.Err(); err != nil {
		return "", err
	}
	if req.WantsJSON() {
		return res.Text, nil
	}
	return s.embedder.Embed(res.Text, kind), nil
}

// Image generates an image from prompt and brands it: watermark, then the
// copyright chunk, then an optional publish. A failed publish is logged and
// the inline image is still returned.
func (s *Studio) Image(ctx context.Context, prompt string) (*Image, error) {
	res := s.backend.GenerateImage(ctx, ai.ImageRequest{Prompt: prompt})
	if err := res.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	marked, err := watermark.Watermark(res.Image, s.watermark)
	metrics.WatermarkDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	stamped, err := s.embedder.EmbedPNG(marked)
	if err != nil {
		return nil, err
	}

	img := &Image{PNG: stamped}
	if s.publisher != nil {
		url, err := s.publisher.Publish(ctx, stamped)
		if err != nil {
			logger.Warn("studio: publish failed, returning inline image", "error", err)
		} else {
			img.URL = url
		}
	}
	return img, nil
}

// ImageFromPrompt renders the free-form image prompt and generates it.
func (s *Studio) ImageFromPrompt(ctx context.Context, prompt string) (*Image, error) {
	p, err := s.prompts.ImageFromPrompt(prompt)
	if err != nil {
		return nil, err
	}
	return s.Image(ctx, p)
}

// LogoConcept is one proposed logo.
type LogoConcept struct {
	LogoDescription string `json:"logoDescription"`
	Slogan          string `json:"slogan"`
}

// DraftBody is one email body variant.
type DraftBody struct {
	Label string `json:"label"`
	HTML  string `json:"html"`
}

// EmailDrafts is a set of subject lines, bodies and call-to-action ideas.
type EmailDrafts struct {
	Subjects []string    `json:"subjects"`
	Bodies   []DraftBody `json:"bodies"`
	CTAIdeas []string    `json:"ctaIdeas"`
}

var (
	stringListSchema = json.RawMessage(`{"type":"ARRAY","items":{"type":"STRING"}}`)

	logoConceptsSchema = json.RawMessage(`{"type":"ARRAY","items":{"type":"OBJECT","properties":{` +
		`"logoDescription":{"type":"STRING"},"slogan":{"type":"STRING"}},` +
		`"required":["logoDescription","slogan"]}}`)

	emailDraftsSchema = json.RawMessage(`{"type":"OBJECT","properties":{` +
		`"subjects":{"type":"ARRAY","items":{"type":"STRING"}},` +
		`"bodies":{"type":"ARRAY","items":{"type":"OBJECT","properties":{"label":{"type":"STRING"},"html":{"type":"STRING"}}}},` +
		`"ctaIdeas":{"type":"ARRAY","items":{"type":"STRING"}}},` +
		`"required":["subjects","bodies"]}`)
)

// BrandNames proposes brand names for an idea.
func (s *Studio) BrandNames(ctx context.Context, idea string) ([]string, error) {
	p, err := s.prompts.BrandNames(idea)
	if err != nil {
		return nil, err
	}
	var names []string
	if err := s.structured(ctx, p, stringListSchema, &names); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no names", ErrUnexpectedResponse)
	}
	return names, nil
}

// LogoConcepts proposes logo descriptions and slogans.
func (s *Studio) LogoConcepts(ctx context.Context, idea, name string) ([]LogoConcept, error) {
	p, err := s.prompts.LogoConcepts(idea, name)
	if err != nil {
		return nil, err
	}
	var concepts []LogoConcept
	if err := s.structured(ctx, p, logoConceptsSchema, &concepts); err != nil {
		return nil, err
	}
	if len(concepts) == 0 {
		return nil, fmt.Errorf("%w: no concepts", ErrUnexpectedResponse)
	}
	return concepts, nil
}

// LogoImage renders a logo concept description into a branded image.
func (s *Studio) LogoImage(ctx context.Context, description string) (*Image, error) {
	p, err := s.prompts.LogoImage(description)
	if err != nil {
		return nil, err
	}
	return s.Image(ctx, p)
}

func (s *Studio) SocialPost(ctx context.Context, platform, topic string) (string, error) {
	p, err := s.prompts.SocialPost(platform, topic)
	if err != nil {
		return "", err
	}
	return s.Text(ctx, ai.TextRequest{Prompt: p}, provenance.KindPlain)
}

func (s *Studio) SEOOutline(ctx context.Context, topic, keywords string) (string, error) {
	p, err := s.prompts.SEOOutline(topic, keywords)
	if err != nil {
		return "", err
	}
	return s.Text(ctx, ai.TextRequest{Prompt: p}, provenance.KindMarkdown)
}

func (s *Studio) SEOArticle(ctx context.Context, topic, keywords string) (string, error) {
	p, err := s.prompts.SEOArticle(topic, keywords)
	if err != nil {
		return "", err
	}
	return s.Text(ctx, ai.TextRequest{Prompt: p}, provenance.KindMarkdown)
}

// EmailDrafts proposes campaign copy from a brief. Bodies are returned
// unsigned; dispatch signs each message when it is sent.
func (s *Studio) EmailDrafts(ctx context.Context, brief string) (*EmailDrafts, error) {
	p, err := s.prompts.EmailDrafts(brief)
	if err != nil {
		return nil, err
	}
	var drafts EmailDrafts
	if err := s.structured(ctx, p, emailDraftsSchema, &drafts); err != nil {
		return nil, err
	}
	if len(drafts.Subjects) == 0 || len(drafts.Bodies) == 0 {
		return nil, fmt.Errorf("%w: drafts need subjects and bodies", ErrUnexpectedResponse)
	}
	return &drafts, nil
}

func (s *Studio) structured(ctx context.Context, prompt string, schema json.RawMessage, dst any) error {
	text, err := s.Text(ctx, ai.TextRequest{
		Prompt:           prompt,
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}, provenance.KindPlain)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(stripFences(text)), dst); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	return nil
}

// stripFences removes a ```json fence some models wrap around JSON output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
