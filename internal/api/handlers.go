package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ukaseai/brandlab/internal/ai"
	"github.com/ukaseai/brandlab/internal/dispatch"
	"github.com/ukaseai/brandlab/internal/personalize"
	"github.com/ukaseai/brandlab/internal/pkg/distlock"
	"github.com/ukaseai/brandlab/internal/pkg/httputil"
	"github.com/ukaseai/brandlab/internal/pkg/logger"
	"github.com/ukaseai/brandlab/internal/provenance"
	"github.com/ukaseai/brandlab/internal/recipients"
	"github.com/ukaseai/brandlab/internal/studio"
)

// Deps are the collaborators behind the handlers.
type Deps struct {
	Studio     *studio.Studio
	Dispatcher *dispatch.Orchestrator
	// EmailEnabled is false when no transport is configured; live sends
	// are then refused with 501 while dry runs still work.
	EmailEnabled bool
	// Locks guards live dispatches against double submission. Optional.
	Locks *distlock.Factory
}

// Handlers contains all HTTP handlers
type Handlers struct {
	studio       *studio.Studio
	dispatcher   *dispatch.Orchestrator
	emailEnabled bool
	locks        *distlock.Factory
}

// NewHandlers creates a new Handlers instance
func NewHandlers(d Deps) *Handlers {
	return &Handlers{
		studio:       d.Studio,
		dispatcher:   d.Dispatcher,
		emailEnabled: d.EmailEnabled,
		locks:        d.Locks,
	}
}

func required(w http.ResponseWriter, name, value string) bool {
	if strings.TrimSpace(value) == "" {
		httputil.BadRequest(w, name+" is required")
		return false
	}
	return true
}

// =============================================================================
// AI STUDIO
// =============================================================================

type textRequest struct {
	ai.TextRequest
	// Kind selects how the signature is attached: html (default), markdown
	// or plain.
	Kind string `json:"kind,omitempty"`
}

type textResponse struct {
	Text string `json:"text"`
}

type imageRequest struct {
	Prompt string `json:"prompt"`
}

type imageResponse struct {
	Image string `json:"image"`
	URL   string `json:"url,omitempty"`
}

// GenerateText handles POST /api/ai/text.
func (h *Handlers) GenerateText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !httputil.Decode(w, r, &req) || !required(w, "prompt", req.Prompt) {
		return
	}
	kind := provenance.KindHTML
	if req.Kind != "" {
		kind = provenance.ParseKind(req.Kind)
	}

	text, err := h.studio.Text(r.Context(), req.TextRequest, kind)
	if err != nil {
		respondSafeError(w, r, err)
		return
	}
	httputil.OK(w, textResponse{Text: text})
}

// GenerateImage handles POST /api/ai/image.
func (h *Handlers) GenerateImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if !httputil.Decode(w, r, &req) || !required(w, "prompt", req.Prompt) {
		return
	}
	img, err := h.studio.ImageFromPrompt(r.Context(), req.Prompt)
	h.respondImage(w, r, img, err)
}

func (h *Handlers) respondImage(w http.ResponseWriter, r *http.Request, img *studio.Image, err error) {
	if err != nil {
		respondSafeError(w, r, err)
		return
	}
	httputil.OK(w, imageResponse{Image: img.DataURL(), URL: img.URL})
}

// BrandNames handles POST /api/brand/names.
func (h *Handlers) BrandNames(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Idea string `json:"idea"`
	}
	if !httputil.Decode(w, r, &req) || !required(w, "idea", req.Idea) {
		return
	}
	names, err := h.studio.BrandNames(r.Context(), req.Idea)
	if err != nil {
		respondSafeError(w, r, err)
		return
	}
	httputil.OK(w, map[string]any{"names": names})
}

// LogoConcepts handles POST /api/brand/concepts.
func (h *Handlers) LogoConcepts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Idea string `json:"idea"`
		Name string `json:"name"`
	}
	if !httputil.Decode(w, r, &req) || !required(w, "idea", req.Idea) {
		return
	}
	concepts, err := h.studio.LogoConcepts(r.Context(), req.Idea, req.Name)
	if err != nil {
		respondSafeError(w, r, err)
		return
	}
	httputil.OK(w, map[string]any{"concepts": concepts})
}

// LogoImage handles POST /api/brand/logo.
func (h *Handlers) LogoImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
	}
	if !httputil.Decode(w, r, &req) || !required(w, "description", req.Description) {
		return
	}
	img, err := h.studio.LogoImage(r.Context(), req.Description)
	h.respondImage(w, r, img, err)
}

// SocialPost handles POST /api/social/post.
func (h *Handlers) SocialPost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Platform string `json:"platform"`
		Topic    string `json:"topic"`
	}
	if !httputil.Decode(w, r, &req) || !required(w, "platform", req.Platform) || !required(w, "topic", req.Topic) {
		return
	}
	text, err := h.studio.SocialPost(r.Context(), req.Platform, req.Topic)
	if err != nil {
		respondSafeError(w, r, err)
		return
	}
	httputil.OK(w, textResponse{Text: text})
}

type seoRequest struct {
	Topic    string `json:"topic"`
	Keywords string `json:"keywords"`
}

// SEOOutline handles POST /api/seo/outline.
func (h *Handlers) SEOOutline(w http.ResponseWriter, r *http.Request) {
	var req seoRequest
	if !httputil.Decode(w, r, &req) || !required(w, "topic", req.Topic) {
		return
	}
	text, err := h.studio.SEOOutline(r.Context(), req.Topic, req.Keywords)
	if err != nil {
		respondSafeError(w, r, err)
		return
	}
	httputil.OK(w, textResponse{Text: text})
}

// SEOArticle handles POST /api/seo/article.
func (h *Handlers) SEOArticle(w http.ResponseWriter, r *http.Request) {
	var req seoRequest
	if !httputil.Decode(w, r, &req) || !required(w, "topic", req.Topic) {
		return
	}
	text, err := h.studio.SEOArticle(r.Context(), req.Topic, req.Keywords)
	if err != nil {
		respondSafeError(w, r, err)
		return
	}
	httputil.OK(w, textResponse{Text: text})
}

// =============================================================================
// EMAIL CAMPAIGNS
// =============================================================================

// ParseRecipients handles POST /api/recipients/parse.
func (h *Handlers) ParseRecipients(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Raw string `json:"raw"`
	}
	if !httputil.Decode(w, r, &req) {
		return
	}
	httputil.OK(w, recipients.Parse(req.Raw))
}

type previewRequest struct {
	Campaign   dispatch.Campaign      `json:"campaign"`
	Recipients []recipients.Recipient `json:"recipients"`
	Index      int                    `json:"index"`
}

type previewResponse struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// PreviewEmail handles POST /api/email/preview. The index is clamped to the
// recipient list; an empty list renders the raw templates.
func (h *Handlers) PreviewEmail(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	subject, body := personalize.Preview(req.Campaign.Subject, req.Campaign.Body, req.Recipients, req.Index)
	httputil.OK(w, previewResponse{Subject: subject, HTML: body})
}

// EmailDrafts handles POST /api/email/drafts.
func (h *Handlers) EmailDrafts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Brief string `json:"brief"`
	}
	if !httputil.Decode(w, r, &req) || !required(w, "brief", req.Brief) {
		return
	}
	drafts, err := h.studio.EmailDrafts(r.Context(), req.Brief)
	if err != nil {
		respondSafeError(w, r, err)
		return
	}
	httputil.OK(w, drafts)
}

type sendRequest struct {
	Campaign   dispatch.Campaign      `json:"campaign"`
	Recipients []recipients.Recipient `json:"recipients"`
	DryRun     bool                   `json:"dryRun"`
}

// SendEmail handles POST /api/email/send. Live sends of the same campaign
// to the same list are serialized through the lock factory; a second submit
// while the first is running gets 409.
func (h *Handlers) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if err := req.Campaign.Validate(); err != nil {
		respondSafeError(w, r, err)
		return
	}
	list := recipients.Dedupe(req.Recipients)

	if req.DryRun {
		httputil.OK(w, h.dispatcher.Dispatch(r.Context(), req.Campaign, list, true))
		return
	}
	if !h.emailEnabled {
		httputil.NotImplemented(w, "email transport not configured")
		return
	}

	emails := make([]string, len(list))
	for i, rc := range list {
		emails[i] = rc.Email
	}
	key := distlock.Key("dispatch", append([]string{req.Campaign.Subject, req.Campaign.Body}, emails...)...)

	var res dispatch.Result
	err := h.locks.Run(r.Context(), key, func() error {
		res = h.dispatcher.Dispatch(r.Context(), req.Campaign, list, false)
		return nil
	})
	if errors.Is(err, distlock.ErrNotAcquired) {
		httputil.Conflict(w, "this campaign is already being sent to this list")
		return
	}
	if err != nil {
		logger.Error("dispatch lock failed", "error", err)
		httputil.Error(w, http.StatusServiceUnavailable, "could not acquire dispatch lock")
		return
	}
	httputil.OK(w, res)
}

// DispatchStatusCSV handles POST /api/email/status.csv, turning a dispatch
// result into a downloadable report.
func (h *Handlers) DispatchStatusCSV(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Result dispatch.Result `json:"result"`
	}
	if !httputil.Decode(w, r, &req) {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="dispatch-status.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := req.Result.WriteCSV(w); err != nil {
		logger.Error("writing dispatch CSV", "error", err)
	}
}
