package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ukaseai/brandlab/internal/config"
)

// SetupRoutes configures all API routes.
func SetupRoutes(cfg config.ServerConfig, h *Handlers, health *HealthChecker) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	if health != nil {
		r.Get("/health", health.HandleHealth)
		r.Get("/health/live", health.HandleLiveness)
		r.Get("/health/ready", health.HandleReadiness)
	}
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(limitBody(int64(cfg.MaxBodyMB) << 20))

		// AI studio
		r.Post("/ai/text", h.GenerateText)
		r.Post("/ai/image", h.GenerateImage)
		r.Post("/brand/names", h.BrandNames)
		r.Post("/brand/concepts", h.LogoConcepts)
		r.Post("/brand/logo", h.LogoImage)
		r.Post("/social/post", h.SocialPost)
		r.Post("/seo/outline", h.SEOOutline)
		r.Post("/seo/article", h.SEOArticle)

		// Email campaigns
		r.Post("/recipients/parse", h.ParseRecipients)
		r.Post("/email/preview", h.PreviewEmail)
		r.Post("/email/drafts", h.EmailDrafts)
		r.Post("/email/send", h.SendEmail)
		r.Post("/email/status.csv", h.DispatchStatusCSV)
	})

	return r
}

// limitBody caps request bodies; recipient pastes and base64 logos are the
// largest payloads.
func limitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if n > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}
