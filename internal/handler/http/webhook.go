package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/repository"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/service"
	apperrors "github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/errors"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/httputil"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/validator"
)

// signatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const signatureHeader = "X-Hmac-Sha256"

// WebhookHandler receives platform webhooks. Handlers return 200 for payloads
// that cannot be acted on (no coupon, unknown code, already uninstalled) so
// the platform does not retry them forever.
type WebhookHandler struct {
	redemptions *service.RedemptionService
	stores      repository.StoreRepository
	secret      string
	logger      *slog.Logger
}

// NewWebhookHandler creates a new webhook HTTP handler. An empty secret
// disables signature verification, for local development only.
func NewWebhookHandler(redemptions *service.RedemptionService, stores repository.StoreRepository, secret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		redemptions: redemptions,
		stores:      stores,
		secret:      secret,
		logger:      logger,
	}
}

// --- Payloads ---

// OrderCreatedPayload is the subset of the order-created webhook this app
// consumes.
type OrderCreatedPayload struct {
	StoreID        string          `json:"store_id" validate:"required"`
	OrderID        string          `json:"order_id" validate:"required"`
	ClientID       string          `json:"client_id"`
	SessionID      string          `json:"session_id"`
	DiscountCode   string          `json:"discount_code"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

// AppUninstalledPayload is the app-uninstalled webhook body.
type AppUninstalledPayload struct {
	StoreID string `json:"store_id" validate:"required"`
}

type webhookResult struct {
	Status       string `json:"status"`
	RedemptionID string `json:"redemption_id,omitempty"`
}

// --- Handlers ---

// OrderCreated handles POST /webhooks/orders/created
func (h *WebhookHandler) OrderCreated(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readVerifiedBody(w, r)
	if !ok {
		return
	}

	var payload OrderCreatedPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid webhook body: "+err.Error()), h.logger)
		return
	}
	if err := validator.Validate(payload); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if payload.DiscountCode == "" {
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: webhookResult{Status: "ignored"}})
		return
	}

	input := &service.CommitRedemptionInput{
		OrderID:   payload.OrderID,
		ClientID:  payload.ClientID,
		SessionID: payload.SessionID,
		Code:      payload.DiscountCode,
		Amount:    payload.DiscountAmount,
	}

	redemption, err := h.redemptions.CommitRedemption(r.Context(), payload.StoreID, input)
	if err != nil {
		// Retrying cannot repair an order that references a code this app
		// never issued.
		if errors.Is(err, apperrors.ErrNotFound) {
			h.logger.WarnContext(r.Context(), "order references unknown discount code",
				slog.String("store_id", payload.StoreID),
				slog.String("order_id", payload.OrderID),
				slog.String("code", payload.DiscountCode),
			)
			httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: webhookResult{Status: "ignored"}})
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: webhookResult{
		Status:       "ok",
		RedemptionID: redemption.ID,
	}})
}

// AppUninstalled handles POST /webhooks/app/uninstalled
func (h *WebhookHandler) AppUninstalled(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readVerifiedBody(w, r)
	if !ok {
		return
	}

	var payload AppUninstalledPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid webhook body: "+err.Error()), h.logger)
		return
	}
	if err := validator.Validate(payload); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.stores.Delete(r.Context(), payload.StoreID); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.logger.InfoContext(r.Context(), "app uninstalled",
		slog.String("store_id", payload.StoreID),
	)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: webhookResult{Status: "ok"}})
}

// readVerifiedBody reads the request body and checks its HMAC signature.
// On failure it writes the error response and returns ok=false.
func (h *WebhookHandler) readVerifiedBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("could not read webhook body"), h.logger)
		return nil, false
	}

	if h.secret == "" {
		return body, true
	}

	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	got := strings.ToLower(r.Header.Get(signatureHeader))
	if got == "" || !hmac.Equal([]byte(want), []byte(got)) {
		h.logger.WarnContext(r.Context(), "webhook signature mismatch",
			slog.String("path", r.URL.Path),
		)
		httputil.WriteError(w, r, apperrors.Unauthorized("invalid webhook signature"), h.logger)
		return nil, false
	}
	return body, true
}
