package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/domain"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/platform"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/repository"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/httputil"
)

// OAuthHandler implements the app install flow against the commerce platform.
type OAuthHandler struct {
	platform *platform.Client
	stores   repository.StoreRepository
	logger   *slog.Logger
}

// NewOAuthHandler creates a new OAuth HTTP handler.
func NewOAuthHandler(client *platform.Client, stores repository.StoreRepository, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{
		platform: client,
		stores:   stores,
		logger:   logger,
	}
}

// InstallResponse is returned after a completed install.
type InstallResponse struct {
	StoreID string `json:"store_id"`
	Name    string `json:"name,omitempty"`
}

// Install handles GET /install: it redirects the merchant to the platform's
// authorization page.
func (h *OAuthHandler) Install(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	if state == "" {
		state = uuid.New().String()
	}
	http.Redirect(w, r, h.platform.AuthorizeURL(state), http.StatusFound)
}

// Callback handles GET /auth/callback: the platform redirects here with an
// authorization code after the merchant approves the install.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, err := h.platform.ExchangeCode(ctx, r.URL.Query().Get("code"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	store := &domain.Store{
		ID:          token.StoreID(),
		AccessToken: token.AccessToken,
		Scope:       token.Scope,
		InstalledAt: time.Now().UTC(),
	}

	// The store name is cosmetic; an install must not fail because the
	// metadata lookup did.
	if info, err := h.platform.GetStore(ctx, store.ID, token.AccessToken); err != nil {
		h.logger.WarnContext(ctx, "could not fetch store metadata",
			slog.String("store_id", store.ID),
			slog.String("error", err.Error()),
		)
	} else {
		store.Name = info.Name
	}

	if err := h.stores.Save(ctx, store); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.logger.InfoContext(ctx, "app installed",
		slog.String("store_id", store.ID),
		slog.String("store_name", store.Name),
	)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: InstallResponse{
		StoreID: store.ID,
		Name:    store.Name,
	}})
}
