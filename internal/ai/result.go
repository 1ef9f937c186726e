package ai

import "fmt"

// ErrorKind classifies a failed generation.
type ErrorKind string

const (
	// KindUpstream covers transport failures and non-2xx answers.
	KindUpstream ErrorKind = "upstream"
	// KindEmptyPayload means the backend answered but carried no text or image.
	KindEmptyPayload ErrorKind = "empty_payload"
	// KindBadRequest means the request was rejected before calling out.
	KindBadRequest ErrorKind = "bad_request"
	// KindNotConfigured means no credentials are available for the backend.
	KindNotConfigured ErrorKind = "not_configured"
)

// Result is the outcome of one generation. When OK is true exactly one of
// Text or Image is set; otherwise ErrorKind and Message describe the failure.
type Result struct {
	OK        bool      `json:"ok"`
	Text      string    `json:"text,omitempty"`
	Image     []byte    `json:"-"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// TextResult wraps generated text.
func TextResult(text string) Result {
	return Result{OK: true, Text: text}
}

// ImageResult wraps generated image bytes.
func ImageResult(img []byte) Result {
	return Result{OK: true, Image: img}
}

// Failed builds a failure result.
func Failed(kind ErrorKind, format string, args ...any) Result {
	return Result{ErrorKind: kind, Message: fmt.Sprintf(format, args...)}
}

// Err returns nil for a successful result and an *UpstreamError otherwise.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return &UpstreamError{Kind: r.ErrorKind, Message: r.Message}
}

// UpstreamError is a failed generation surfaced as an error.
type UpstreamError struct {
	Kind    ErrorKind
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return "ai: " + string(e.Kind)
	}
	return "ai: " + e.Message
}
