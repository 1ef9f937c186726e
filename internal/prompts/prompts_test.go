package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLibraryParsesAllTemplates(t *testing.T) {
	lib, err := New()
	require.NoError(t, err)
	assert.Len(t, lib.templates, len(sources))
}

func TestPrompts(t *testing.T) {
	lib := MustNew()

	tests := []struct {
		name     string
		render   func() (string, error)
		contains []string
		excludes []string
	}{
		{
			name:     "brand names",
			render:   func() (string, error) { return lib.BrandNames("eco coffee cups") },
			contains: []string{`brand names for: "eco coffee cups".`, "JSON array of strings"},
		},
		{
			name:     "logo concepts with name",
			render:   func() (string, error) { return lib.LogoConcepts("eco cups", "Cuply") },
			contains: []string{`concepts for "eco cups" with brand name "Cuply".`, `"logoDescription"`},
		},
		{
			name:     "logo concepts without name",
			render:   func() (string, error) { return lib.LogoConcepts("eco cups", "") },
			contains: []string{`concepts for "eco cups".`},
			excludes: []string{"with brand name"},
		},
		{
			name:     "logo image",
			render:   func() (string, error) { return lib.LogoImage("a leaf in a cup") },
			contains: []string{`representing: "a leaf in a cup".`, "No text or letters"},
		},
		{
			name:     "social post",
			render:   func() (string, error) { return lib.SocialPost("LinkedIn", "launch day") },
			contains: []string{`LinkedIn-ready post for: "launch day"`, "Tone appropriate to LinkedIn"},
		},
		{
			name:     "seo outline keywords default",
			render:   func() (string, error) { return lib.SEOOutline("cups", "") },
			contains: []string{"using keywords: none."},
		},
		{
			name:     "seo article keywords",
			render:   func() (string, error) { return lib.SEOArticle("cups", "eco, reusable") },
			contains: []string{`post for "cups" using keywords: eco, reusable.`},
		},
		{
			name:     "email drafts",
			render:   func() (string, error) { return lib.EmailDrafts("spring sale") },
			contains: []string{`From this brief: "spring sale"`, `"subjects"`, `{"label":"Short","html":"<p>...</p>"}`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.render()
			require.NoError(t, err)
			assert.NotRegexp(t, `^\s`, out)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestImageFromPromptIsVerbatim(t *testing.T) {
	out, err := MustNew().ImageFromPrompt("a red fox, watercolor")
	require.NoError(t, err)
	assert.Equal(t, "a red fox, watercolor", out)
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := MustNew().Render("nope", nil)
	assert.Error(t, err)
}
