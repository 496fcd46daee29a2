package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/platform"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/repository"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/service"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/health"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/middleware"
)

// RouterConfig bundles the dependencies of the HTTP surface.
type RouterConfig struct {
	Campaigns         *service.CampaignService
	Redemptions       *service.RedemptionService
	Stores            repository.StoreRepository
	Platform          *platform.Client
	WebhookSecret     string
	Health            *health.Handler
	Logger            *slog.Logger
	PprofAllowedCIDRs []string
}

// NewRouter creates a chi router with all routes registered: the admin
// campaign API, the checkout widget API, the install flow, and the platform
// webhooks.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.PrometheusMetrics("descuentos"))
	r.Use(middleware.Tracing("descuentos"))
	r.Use(middleware.RequestLogger(cfg.Logger))

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, cfg.Logger)

	campaignHandler := NewCampaignHandler(cfg.Campaigns, cfg.Logger)
	checkoutHandler := NewCheckoutHandler(cfg.Redemptions, cfg.Logger)
	oauthHandler := NewOAuthHandler(cfg.Platform, cfg.Stores, cfg.Logger)
	webhookHandler := NewWebhookHandler(cfg.Redemptions, cfg.Stores, cfg.WebhookSecret, cfg.Logger)

	// Install flow
	r.Get("/install", oauthHandler.Install)
	r.Get("/auth/callback", oauthHandler.Callback)

	// Platform webhooks, authenticated by HMAC signature rather than token.
	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/orders/created", webhookHandler.OrderCreated)
		r.Post("/app/uninstalled", webhookHandler.AppUninstalled)
	})

	storeAuth := middleware.StoreAuth(func(ctx context.Context, token string) (string, error) {
		store, err := cfg.Stores.GetByToken(ctx, token)
		if err != nil {
			return "", err
		}
		return store.ID, nil
	})

	// Admin API
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/templates", campaignHandler.ListTemplates)

		r.Group(func(r chi.Router) {
			r.Use(storeAuth)

			r.Route("/campaigns", func(r chi.Router) {
				r.Post("/", campaignHandler.CreateCampaign)
				r.Get("/", campaignHandler.ListCampaigns)

				// Must come before /{id} to avoid conflict.
				r.Get("/stats", campaignHandler.CampaignStats)

				r.Get("/{id}", campaignHandler.GetCampaign)
				r.Put("/{id}", campaignHandler.UpdateCampaign)
				r.Delete("/{id}", campaignHandler.DeleteCampaign)
				r.Post("/{id}/pause", campaignHandler.PauseCampaign)
				r.Post("/{id}/activate", campaignHandler.ActivateCampaign)
			})
		})
	})

	// Checkout widget API
	r.Route("/api/checkout", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/code/set", checkoutHandler.ApplyCode)
		r.Post("/code/validate", checkoutHandler.ValidateCode)
		r.Get("/code", checkoutHandler.GetApplied)
		r.Delete("/code", checkoutHandler.RemoveCode)
	})

	return r
}
