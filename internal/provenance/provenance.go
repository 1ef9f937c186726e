// Package provenance appends a brand signature to generated content.
//
// Text content gets a trailer in a form the content kind tolerates: an HTML
// comment, a Markdown link-reference comment, or a plain trailing line.
// PNG images get the signature as an iTXt "Copyright" chunk.
package provenance

import (
	"fmt"
	"strings"
)

// Kind identifies how content is rendered downstream.
type Kind string

const (
	KindHTML     Kind = "html"
	KindMarkdown Kind = "markdown"
	KindPlain    Kind = "plain"
)

// DefaultSignature is the ownership notice applied when none is configured.
const DefaultSignature = "© BrandLab Powered by UkaseAI"

// Signature builds the notice for a product and its platform.
func Signature(product, platform string) string {
	return fmt.Sprintf("© %s Powered by %s", product, platform)
}

// ParseKind maps a request string to a Kind. Unknown values are plain.
func ParseKind(s string) Kind {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindHTML:
		return KindHTML
	case KindMarkdown:
		return KindMarkdown
	default:
		return KindPlain
	}
}

// Embedder stamps content with Signature. The zero value uses
// DefaultSignature.
type Embedder struct {
	Signature string
}

// NewEmbedder returns an Embedder for sig, falling back to DefaultSignature.
func NewEmbedder(sig string) *Embedder {
	return &Embedder{Signature: sig}
}

func (e *Embedder) signature() string {
	if e == nil || e.Signature == "" {
		return DefaultSignature
	}
	return e.Signature
}

// Embed appends the signature to content. The original text is kept intact
// as a prefix of the result. Embedding already-signed content appends again;
// use Has to check first.
func (e *Embedder) Embed(content string, kind Kind) string {
	sig := e.signature()
	switch kind {
	case KindHTML:
		return content + "\n<!-- " + sig + " -->"
	case KindMarkdown:
		return content + "\n\n[//]: # (" + sig + ")"
	default:
		return content + "\n\n" + sig
	}
}

// Has reports whether content already carries the signature.
func (e *Embedder) Has(content string) bool {
	return strings.Contains(content, e.signature())
}

// Embed appends DefaultSignature to content.
func Embed(content string, kind Kind) string {
	return (*Embedder)(nil).Embed(content, kind)
}
