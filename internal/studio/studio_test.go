package studio

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukaseai/brandlab/internal/ai"
	"github.com/ukaseai/brandlab/internal/config"
	"github.com/ukaseai/brandlab/internal/provenance"
	"github.com/ukaseai/brandlab/internal/watermark"
)

type fakeBackend struct {
	text     ai.Result
	image    ai.Result
	lastText ai.TextRequest
	lastImg  ai.ImageRequest
}

func (f *fakeBackend) GenerateText(_ context.Context, req ai.TextRequest) ai.Result {
	f.lastText = req
	return f.text
}

func (f *fakeBackend) GenerateImage(_ context.Context, req ai.ImageRequest) ai.Result {
	f.lastImg = req
	return f.image
}

type fakePublisher struct {
	url   string
	err   error
	calls int
}

func (p *fakePublisher) Publish(context.Context, []byte) (string, error) {
	p.calls++
	return p.url, p.err
}

func solidPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newStudio(b ai.Backend, pub Publisher) *Studio {
	return New(Options{
		Backend:   b,
		Embedder:  provenance.NewEmbedder(""),
		Watermark: watermark.DefaultSpec(),
		Publisher: pub,
	})
}

func TestTextEmbedsSignature(t *testing.T) {
	b := &fakeBackend{text: ai.TextResult("Hello")}
	out, err := newStudio(b, nil).Text(context.Background(), ai.TextRequest{Prompt: "hi"}, provenance.KindHTML)
	require.NoError(t, err)
	assert.Equal(t, provenance.Embed("Hello", provenance.KindHTML), out)
}

func TestTextLeavesJSONUntouched(t *testing.T) {
	b := &fakeBackend{text: ai.TextResult(`["a"]`)}
	out, err := newStudio(b, nil).Text(context.Background(),
		ai.TextRequest{Prompt: "hi", ResponseMIMEType: "application/json"}, provenance.KindHTML)
	require.NoError(t, err)
	assert.Equal(t, `["a"]`, out)
}

func TestTextPropagatesFailureKind(t *testing.T) {
	b := &fakeBackend{text: ai.Failed(ai.KindNotConfigured, "no key")}
	_, err := newStudio(b, nil).Text(context.Background(), ai.TextRequest{Prompt: "hi"}, provenance.KindPlain)

	var upstream *ai.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, ai.KindNotConfigured, upstream.Kind)
}

func TestImageBrandsAndPublishes(t *testing.T) {
	b := &fakeBackend{image: ai.ImageResult(solidPNG(t, 200, 150))}
	pub := &fakePublisher{url: "https://cdn.test/branded/x.png"}

	img, err := newStudio(b, pub).Image(context.Background(), "a fox")
	require.NoError(t, err)
	assert.Equal(t, "a fox", b.lastImg.Prompt)
	assert.Equal(t, "https://cdn.test/branded/x.png", img.URL)
	assert.Equal(t, 1, pub.calls)

	sig, ok := provenance.PNGSignature(img.PNG)
	require.True(t, ok)
	assert.Equal(t, provenance.DefaultSignature, sig)

	decoded, err := png.Decode(bytes.NewReader(img.PNG))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 150), decoded.Bounds())
	assert.True(t, strings.HasPrefix(img.DataURL(), "data:image/png;base64,"))
}

func TestImagePublishFailureKeepsInlineImage(t *testing.T) {
	b := &fakeBackend{image: ai.ImageResult(solidPNG(t, 64, 64))}
	pub := &fakePublisher{err: errors.New("access denied")}

	img, err := newStudio(b, pub).Image(context.Background(), "x")
	require.NoError(t, err)
	assert.Empty(t, img.URL)
	assert.NotEmpty(t, img.PNG)
}

func TestImageUndecodableSource(t *testing.T) {
	b := &fakeBackend{image: ai.ImageResult([]byte("not an image"))}
	_, err := newStudio(b, nil).Image(context.Background(), "x")

	var de *watermark.DecodeError
	assert.True(t, errors.As(err, &de))
}

func TestBrandNames(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    []string
		wantErr error
	}{
		{name: "plain json", text: `["Cuply","Leafcup"]`, want: []string{"Cuply", "Leafcup"}},
		{name: "fenced json", text: "```json\n[\"Cuply\"]\n```", want: []string{"Cuply"}},
		{name: "empty list", text: `[]`, wantErr: ErrUnexpectedResponse},
		{name: "prose", text: `Here are some names`, wantErr: ErrUnexpectedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{text: ai.TextResult(tt.text)}
			names, err := newStudio(b, nil).BrandNames(context.Background(), "eco cups")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, names)
			assert.True(t, b.lastText.WantsJSON())
			assert.Contains(t, b.lastText.Prompt, "eco cups")
		})
	}
}

func TestLogoConcepts(t *testing.T) {
	b := &fakeBackend{text: ai.TextResult(`[{"logoDescription":"a leaf","slogan":"Sip green"}]`)}
	concepts, err := newStudio(b, nil).LogoConcepts(context.Background(), "eco cups", "Cuply")
	require.NoError(t, err)
	assert.Equal(t, []LogoConcept{{LogoDescription: "a leaf", Slogan: "Sip green"}}, concepts)
	assert.Contains(t, b.lastText.Prompt, `brand name "Cuply"`)
}

func TestLogoImageUsesLogoPrompt(t *testing.T) {
	b := &fakeBackend{image: ai.ImageResult(solidPNG(t, 64, 64))}
	_, err := newStudio(b, nil).LogoImage(context.Background(), "a leaf")
	require.NoError(t, err)
	assert.Contains(t, b.lastImg.Prompt, `representing: "a leaf"`)
}

func TestSocialAndSEOAreSigned(t *testing.T) {
	b := &fakeBackend{text: ai.TextResult("Body")}
	s := newStudio(b, nil)

	post, err := s.SocialPost(context.Background(), "LinkedIn", "launch")
	require.NoError(t, err)
	assert.Equal(t, provenance.Embed("Body", provenance.KindPlain), post)

	outline, err := s.SEOOutline(context.Background(), "cups", "")
	require.NoError(t, err)
	assert.Equal(t, provenance.Embed("Body", provenance.KindMarkdown), outline)

	article, err := s.SEOArticle(context.Background(), "cups", "eco")
	require.NoError(t, err)
	assert.Equal(t, provenance.Embed("Body", provenance.KindMarkdown), article)
}

func TestEmailDrafts(t *testing.T) {
	b := &fakeBackend{text: ai.TextResult(`{"subjects":["Hi"],"bodies":[{"label":"Short","html":"<p>x</p>"}],"ctaIdeas":["Buy"]}`)}
	drafts, err := newStudio(b, nil).EmailDrafts(context.Background(), "spring sale")
	require.NoError(t, err)
	assert.Equal(t, []string{"Hi"}, drafts.Subjects)
	assert.Equal(t, "<p>x</p>", drafts.Bodies[0].HTML)
	assert.False(t, provenance.NewEmbedder("").Has(drafts.Bodies[0].HTML))

	b.text = ai.TextResult(`{"subjects":[],"bodies":[]}`)
	_, err = newStudio(b, nil).EmailDrafts(context.Background(), "spring sale")
	assert.ErrorIs(t, err, ErrUnexpectedResponse)
}

func TestWatermarkSpecDefaults(t *testing.T) {
	spec, err := WatermarkSpec(context.Background(), config.BrandingConfig{}, nil)
	require.NoError(t, err)

	a, b := watermark.DefaultLogos()
	assert.Equal(t, a, spec.LogoA)
	assert.Equal(t, b, spec.LogoB)
	assert.Equal(t, provenance.DefaultSignature, spec.Text)
	assert.Equal(t, 20, spec.Padding)
}

func TestWatermarkSpecZeroPadding(t *testing.T) {
	cfg := config.BrandingConfig{}
	zero := 0
	cfg.Watermark.Padding = &zero

	spec, err := WatermarkSpec(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, spec.Padding)
}

func TestWatermarkSpecFromConfig(t *testing.T) {
	logo := filepath.Join(t.TempDir(), "app.png")
	require.NoError(t, os.WriteFile(logo, solidPNG(t, 8, 8), 0644))

	cfg := config.BrandingConfig{Product: "Acme", Platform: "Rocket"}
	cfg.Watermark.LogoApp = logo
	cfg.Watermark.Color = "#ff0000"
	padding := 12
	cfg.Watermark.Padding = &padding

	spec, err := WatermarkSpec(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "© Acme Powered by Rocket", spec.Text)
	assert.Equal(t, "#ff0000", spec.Color)
	assert.Equal(t, 12, spec.Padding)

	raw, _ := os.ReadFile(logo)
	assert.Equal(t, raw, spec.LogoA)
}

func TestWatermarkSpecErrors(t *testing.T) {
	cfg := config.BrandingConfig{}
	cfg.Watermark.Font = "bold"
	_, err := WatermarkSpec(context.Background(), cfg, nil)
	assert.Error(t, err)

	cfg = config.BrandingConfig{}
	cfg.Watermark.LogoCompany = filepath.Join(t.TempDir(), "missing.png")
	_, err = WatermarkSpec(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `[1]`, stripFences("```json\n[1]\n```"))
	assert.Equal(t, `[1]`, stripFences("  [1] "))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}```"))
}
