// Package prompts renders the instructions sent to the AI backend for each
// studio feature. Prompts are Liquid templates parsed once at startup.
package prompts

import (
	"fmt"
	"strings"

	"github.com/osteele/liquid"
)

// Template names.
const (
	BrandNamesTemplate      = "brand_names"
	LogoConceptsTemplate    = "logo_concepts"
	LogoImageTemplate       = "logo_image"
	ImageFromPromptTemplate = "image_from_prompt"
	SocialPostTemplate      = "social_post"
	SEOOutlineTemplate      = "seo_outline"
	SEOArticleTemplate      = "seo_article"
	EmailDraftsTemplate     = "email_drafts"
)

var sources = map[string]string{
	BrandNamesTemplate: `
Act as a branding expert. Generate 5 short, modern brand names for: "{{ idea }}".
Return a JSON array of strings only.`,

	LogoConceptsTemplate: `
Act as a branding expert. Create 3 logo concepts for "{{ idea }}"{% if name != "" %} with brand name "{{ name }}"{% endif %}.
Each concept must include:
- "logoDescription": a brief evocative description
- "slogan": a catchy slogan
Return a JSON array of objects with keys "logoDescription" and "slogan" only.`,

	LogoImageTemplate: `
A high-quality, minimal, professional, vector-style icon representing: "{{ description }}".
No text or letters in the image. Simple, clean, centered.`,

	ImageFromPromptTemplate: `{{ prompt }}`,

	SocialPostTemplate: `
Generate a {{ platform }}-ready post for: "{{ topic }}".
- Tone appropriate to {{ platform }}
- Include relevant hashtags
Return ONLY the post content (no title).`,

	SEOOutlineTemplate: `
Create a detailed SEO blog outline for "{{ topic }}" using keywords: {{ keywords | default: "none" }}.
Include intro, 3-4 sections with sub-headings, and conclusion.
Return markdown-like text (no headings like ##, just bold for titles).`,

	SEOArticleTemplate: `
Write a complete SEO blog post for "{{ topic }}" using keywords: {{ keywords | default: "none" }}.
Use bold for section titles (no # marks). Return only the content, no extra commentary.`,

	EmailDraftsTemplate: `
Act as an email copywriter.
From this brief: "{{ brief }}"
Return JSON with:
{
  "subjects": ["...", "...", "...", "...", "..."],
  "bodies": [
    {"label":"Short","html":"<p>...</p>"},
    {"label":"Standard","html":"<p>...</p>"},
    {"label":"Long","html":"<p>...</p>"}
  ],
  "ctaIdeas": ["...", "...", "..."]
}
Keep HTML simple (p, a, strong, br).`,
}

// Library holds the parsed prompt templates.
type Library struct {
	templates map[string]*liquid.Template
}

// New parses every prompt template.
func New() (*Library, error) {
	engine := liquid.NewEngine()
	lib := &Library{templates: make(map[string]*liquid.Template, len(sources))}
	for name, src := range sources {
		tpl, err := engine.ParseString(src)
		if err != nil {
			return nil, fmt.Errorf("prompts: parse %s: %w", name, err)
		}
		lib.templates[name] = tpl
	}
	return lib, nil
}

// MustNew is New for package initialization.
func MustNew() *Library {
	lib, err := New()
	if err != nil {
		panic(err)
	}
	return lib
}

// Render executes the named template with bindings.
func (l *Library) Render(name string, bindings map[string]any) (string, error) {
	tpl, ok := l.templates[name]
	if !ok {
		return "", fmt.Errorf("prompts: unknown template %q", name)
	}
	out, err := tpl.RenderString(bindings)
	if err != nil {
		return "", fmt.Errorf("prompts: render %s: %w", name, err)
	}
	return strings.TrimSpace(out), nil
}

func (l *Library) BrandNames(idea string) (string, error) {
	return l.Render(BrandNamesTemplate, map[string]any{"idea": idea})
}

// LogoConcepts mentions the brand name only when one is given.
func (l *Library) LogoConcepts(idea, name string) (string, error) {
	return l.Render(LogoConceptsTemplate, map[string]any{"idea": idea, "name": name})
}

func (l *Library) LogoImage(description string) (string, error) {
	return l.Render(LogoImageTemplate, map[string]any{"description": description})
}

// ImageFromPrompt passes a free-form prompt through unchanged.
func (l *Library) ImageFromPrompt(prompt string) (string, error) {
	return l.Render(ImageFromPromptTemplate, map[string]any{"prompt": prompt})
}

func (l *Library) SocialPost(platform, topic string) (string, error) {
	return l.Render(SocialPostTemplate, map[string]any{"platform": platform, "topic": topic})
}

// SEOOutline and SEOArticle render empty keywords as "none".
func (l *Library) SEOOutline(topic, keywords string) (string, error) {
	return l.Render(SEOOutlineTemplate, map[string]any{"topic": topic, "keywords": keywords})
}

func (l *Library) SEOArticle(topic, keywords string) (string, error) {
	return l.Render(SEOArticleTemplate, map[string]any{"topic": topic, "keywords": keywords})
}

func (l *Library) EmailDrafts(brief string) (string, error) {
	return l.Render(EmailDraftsTemplate, map[string]any{"brief": brief})
}
