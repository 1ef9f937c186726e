package api

import (
	"errors"
	"net/http"

	"github.com/ukaseai/brandlab/internal/ai"
	"github.com/ukaseai/brandlab/internal/dispatch"
	"github.com/ukaseai/brandlab/internal/pkg/httputil"
	"github.com/ukaseai/brandlab/internal/pkg/logger"
	"github.com/ukaseai/brandlab/internal/studio"
	"github.com/ukaseai/brandlab/internal/watermark"
)

// =============================================================================
// ERROR SANITIZER
// Maps domain errors to status codes. Upstream AI messages are safe to show;
// anything unclassified is logged in full and answered with a generic 500.
// =============================================================================

// statusFor picks the HTTP status and public message for err.
func statusFor(err error) (int, string) {
	var upstream *ai.UpstreamError
	var invalid *dispatch.ValidationError
	var decode *watermark.DecodeError

	switch {
	case errors.As(err, &upstream):
		switch upstream.Kind {
		case ai.KindBadRequest:
			return http.StatusBadRequest, upstream.Message
		case ai.KindNotConfigured:
			return http.StatusNotImplemented, upstream.Message
		default:
			return http.StatusBadGateway, upstream.Message
		}
	case errors.As(err, &invalid):
		return http.StatusBadRequest, invalid.Error()
	case errors.Is(err, studio.ErrUnexpectedResponse):
		return http.StatusBadGateway, err.Error()
	case errors.As(err, &decode):
		// the AI backend returned bytes that are not an image
		return http.StatusBadGateway, decode.Error()
	default:
		return http.StatusInternalServerError, "An internal error occurred"
	}
}

// respondSafeError logs the internal error and sends a sanitized envelope.
func respondSafeError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		logger.Error("request failed", "path", r.URL.Path, "status", code, "error", err)
	} else {
		logger.Warn("request rejected", "path", r.URL.Path, "status", code, "error", err)
	}
	httputil.Error(w, code, msg)
}
