package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/domain"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/service"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/httputil"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/validator"
)

// errInvalidRequest is the widget error string for malformed requests, as
// opposed to the decision outcomes produced by the discount engine.
const errInvalidRequest = "invalid_request"

// CheckoutHandler handles the storefront widget endpoints. Responses use the
// flat widget contract ({ok, code, amount, label} / {ok:false, error}) rather
// than the admin API envelope, because the widget script consumes them
// directly.
type CheckoutHandler struct {
	service *service.RedemptionService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(svc *service.RedemptionService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

type cartItemRequest struct {
	ProductID  string          `json:"product_id"`
	CategoryID string          `json:"category_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity" validate:"gt=0"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

type cartRequest struct {
	Items []cartItemRequest `json:"items" validate:"dive"`
}

// validate rejects cart lines the validator tags cannot cover. Prices arrive
// as decimals from an untrusted widget; a negative line must never reach the
// discount engine.
func (c cartRequest) validate() error {
	for _, item := range c.Items {
		if item.UnitPrice.IsNegative() {
			return errors.New("unit_price must not be negative")
		}
	}
	return nil
}

func (c cartRequest) toDomain() domain.Cart {
	items := make([]domain.CartItem, len(c.Items))
	for i, item := range c.Items {
		items[i] = domain.CartItem{
			ProductID:  item.ProductID,
			CategoryID: item.CategoryID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
		}
	}
	return domain.Cart{Items: items}
}

// ApplyCodeRequest is the JSON request body for applying a code to a session.
type ApplyCodeRequest struct {
	StoreID   string      `json:"store_id" validate:"required"`
	SessionID string      `json:"session_id" validate:"required"`
	ClientID  string      `json:"client_id"`
	Code      string      `json:"code" validate:"required"`
	Cart      cartRequest `json:"cart"`
}

// ValidateCodeRequest is the JSON request body for a dry-run validation.
type ValidateCodeRequest struct {
	StoreID string      `json:"store_id" validate:"required"`
	Code    string      `json:"code" validate:"required"`
	Cart    cartRequest `json:"cart"`
}

// --- Response DTO ---

// widgetResponse is the flat contract consumed by the checkout widget.
type widgetResponse struct {
	OK   bool   `json:"ok"`
	Code string `json:"code,omitempty"`
	// Amount carries no omitempty: a zero discount on a successful apply is
	// still part of the contract.
	Amount float64 `json:"amount"`
	Label  string  `json:"label,omitempty"`
	Error  string  `json:"error,omitempty"`
}

func widgetOK(applied *domain.AppliedDiscount) widgetResponse {
	return widgetResponse{
		OK:     true,
		Code:   applied.Code,
		Amount: applied.Amount.InexactFloat64(),
		Label:  applied.Label,
	}
}

// writeDecision maps a discount decision to the widget contract. Expected
// outcomes are 200 with ok:false; only infrastructure failures are 500.
func (h *CheckoutHandler) writeDecision(w http.ResponseWriter, r *http.Request, applied *domain.AppliedDiscount, kind domain.ErrorKind, err error) {
	if err != nil {
		h.logger.ErrorContext(r.Context(), "discount decision failed",
			slog.String("error", err.Error()),
			slog.String("path", r.URL.Path),
		)
		httputil.WriteJSON(w, http.StatusInternalServerError,
			widgetResponse{OK: false, Error: string(domain.ErrorKindInternal)})
		return
	}
	if kind != domain.ErrorKindNone {
		httputil.WriteJSON(w, http.StatusOK, widgetResponse{OK: false, Error: string(kind)})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, widgetOK(applied))
}

func (h *CheckoutHandler) writeInvalidRequest(w http.ResponseWriter, message string) {
	httputil.WriteJSON(w, http.StatusBadRequest, widgetResponse{OK: false, Error: errInvalidRequest + ": " + message})
}

// --- Handlers ---

// ApplyCode handles POST /api/checkout/code/set
func (h *CheckoutHandler) ApplyCode(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req ApplyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeInvalidRequest(w, "invalid request body")
		return
	}
	if err := validator.Validate(req); err != nil {
		h.writeInvalidRequest(w, err.Error())
		return
	}
	if err := req.Cart.validate(); err != nil {
		h.writeInvalidRequest(w, err.Error())
		return
	}

	input := &service.ApplyCodeInput{
		SessionID: req.SessionID,
		ClientID:  req.ClientID,
		Code:      req.Code,
		Cart:      req.Cart.toDomain(),
	}

	applied, kind, err := h.service.ApplyCode(r.Context(), req.StoreID, input)
	h.writeDecision(w, r, applied, kind, err)
}

// ValidateCode handles POST /api/checkout/code/validate
func (h *CheckoutHandler) ValidateCode(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req ValidateCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeInvalidRequest(w, "invalid request body")
		return
	}
	if err := validator.Validate(req); err != nil {
		h.writeInvalidRequest(w, err.Error())
		return
	}
	if err := req.Cart.validate(); err != nil {
		h.writeInvalidRequest(w, err.Error())
		return
	}

	applied, kind, err := h.service.ValidateCode(r.Context(), req.StoreID, req.Code, req.Cart.toDomain())
	h.writeDecision(w, r, applied, kind, err)
}

// GetApplied handles GET /api/checkout/code
func (h *CheckoutHandler) GetApplied(w http.ResponseWriter, r *http.Request) {
	storeID := r.URL.Query().Get("store_id")
	sessionID := r.URL.Query().Get("session_id")
	if storeID == "" || sessionID == "" {
		h.writeInvalidRequest(w, "store_id and session_id are required")
		return
	}

	applied, err := h.service.GetApplied(r.Context(), storeID, sessionID)
	if err != nil {
		h.writeDecision(w, r, nil, domain.ErrorKindInternal, err)
		return
	}
	if applied == nil {
		httputil.WriteJSON(w, http.StatusOK, widgetResponse{OK: false})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, widgetOK(applied))
}

// RemoveCode handles DELETE /api/checkout/code
func (h *CheckoutHandler) RemoveCode(w http.ResponseWriter, r *http.Request) {
	storeID := r.URL.Query().Get("store_id")
	sessionID := r.URL.Query().Get("session_id")
	if storeID == "" || sessionID == "" {
		h.writeInvalidRequest(w, "store_id and session_id are required")
		return
	}

	if err := h.service.RemoveCode(r.Context(), storeID, sessionID, r.URL.Query().Get("client_id")); err != nil {
		h.writeDecision(w, r, nil, domain.ErrorKindInternal, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, widgetResponse{OK: true})
}
