package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/domain"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/repository"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/service"
	apperrors "github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/errors"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/httputil"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/middleware"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/pagination"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/validator"
)

const maxBodySize = 1 << 20 // 1 MB limit

// dateLayout is the wire format for validity bounds. Bounds are calendar
// dates, not timestamps.
const dateLayout = "2006-01-02"

// CampaignHandler handles the admin-side campaign endpoints.
type CampaignHandler struct {
	service *service.CampaignService
	logger  *slog.Logger
}

// NewCampaignHandler creates a new campaign HTTP handler.
func NewCampaignHandler(svc *service.CampaignService, logger *slog.Logger) *CampaignHandler {
	return &CampaignHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateCampaignRequest is the JSON request body for creating a campaign.
type CreateCampaignRequest struct {
	Code               string           `json:"code" validate:"required,min=1,max=50"`
	Name               string           `json:"name" validate:"required,min=1,max=255"`
	DiscountType       string           `json:"discount_type" validate:"required,oneof=percent absolute"`
	DiscountValue      decimal.Decimal  `json:"discount_value"`
	ValidFrom          string           `json:"valid_from"`
	ValidUntil         string           `json:"valid_until"`
	ApplyScope         string           `json:"apply_scope" validate:"omitempty,oneof=all categories products"`
	IncludeCategoryIDs []string         `json:"include_category_ids"`
	ExcludeCategoryIDs []string         `json:"exclude_category_ids"`
	IncludeProductIDs  []string         `json:"include_product_ids"`
	ExcludeProductIDs  []string         `json:"exclude_product_ids"`
	MaxDiscountAmount  *decimal.Decimal `json:"max_discount_amount"`
	MinCartAmount      *decimal.Decimal `json:"min_cart_amount"`
	MonthlyUsageLimit  int              `json:"monthly_usage_limit" validate:"gte=0"`
	Status             string           `json:"status" validate:"omitempty,oneof=active paused"`
}

// UpdateCampaignRequest is the JSON request body for a partial campaign
// update. Absent fields are left unchanged. An empty valid_from or
// valid_until string clears the bound; a zero max_discount_amount or
// min_cart_amount clears the cap.
type UpdateCampaignRequest struct {
	Code               *string          `json:"code" validate:"omitempty,min=1,max=50"`
	Name               *string          `json:"name" validate:"omitempty,min=1,max=255"`
	DiscountType       *string          `json:"discount_type" validate:"omitempty,oneof=percent absolute"`
	DiscountValue      *decimal.Decimal `json:"discount_value"`
	ValidFrom          *string          `json:"valid_from"`
	ValidUntil         *string          `json:"valid_until"`
	ApplyScope         *string          `json:"apply_scope" validate:"omitempty,oneof=all categories products"`
	IncludeCategoryIDs []string         `json:"include_category_ids"`
	ExcludeCategoryIDs []string         `json:"exclude_category_ids"`
	IncludeProductIDs  []string         `json:"include_product_ids"`
	ExcludeProductIDs  []string         `json:"exclude_product_ids"`
	MaxDiscountAmount  *decimal.Decimal `json:"max_discount_amount"`
	MinCartAmount      *decimal.Decimal `json:"min_cart_amount"`
	MonthlyUsageLimit  *int             `json:"monthly_usage_limit" validate:"omitempty,gte=0"`
	Status             *string          `json:"status" validate:"omitempty,oneof=active paused"`
}

// --- Response DTOs ---

// campaignResponse augments a campaign with its date-derived expired flag so
// the admin UI does not have to recompute it.
type campaignResponse struct {
	*domain.Campaign
	Expired bool `json:"expired"`
}

func newCampaignResponse(c *domain.Campaign) campaignResponse {
	return campaignResponse{Campaign: c, Expired: c.IsExpired(time.Now().UTC())}
}

func newCampaignResponses(campaigns []domain.Campaign) []campaignResponse {
	out := make([]campaignResponse, len(campaigns))
	for i := range campaigns {
		out[i] = newCampaignResponse(&campaigns[i])
	}
	return out
}

// --- Handlers ---

// CreateCampaign handles POST /api/v1/campaigns
func (h *CampaignHandler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	validFrom, err := parseDate(req.ValidFrom)
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("valid_from must be a YYYY-MM-DD date"), h.logger)
		return
	}
	validUntil, err := parseDate(req.ValidUntil)
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("valid_until must be a YYYY-MM-DD date"), h.logger)
		return
	}

	input := &service.CreateCampaignInput{
		Code:               req.Code,
		Name:               req.Name,
		DiscountType:       req.DiscountType,
		DiscountValue:      req.DiscountValue,
		ValidFrom:          validFrom,
		ValidUntil:         validUntil,
		ApplyScope:         req.ApplyScope,
		IncludeCategoryIDs: req.IncludeCategoryIDs,
		ExcludeCategoryIDs: req.ExcludeCategoryIDs,
		IncludeProductIDs:  req.IncludeProductIDs,
		ExcludeProductIDs:  req.ExcludeProductIDs,
		MaxDiscountAmount:  req.MaxDiscountAmount,
		MinCartAmount:      req.MinCartAmount,
		MonthlyUsageLimit:  req.MonthlyUsageLimit,
		Status:             req.Status,
	}

	campaign, err := h.service.CreateCampaign(r.Context(), middleware.StoreIDFromContext(r.Context()), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: newCampaignResponse(campaign)})
}

// ListCampaigns handles GET /api/v1/campaigns
func (h *CampaignHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	filter := repository.CampaignFilter{
		Page:    params.Page,
		PerPage: params.PerPage,
	}

	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = &v
	}
	if v := r.URL.Query().Get("scope"); v != "" {
		filter.Scope = &v
	}

	campaigns, total, err := h.service.ListCampaigns(r.Context(), middleware.StoreIDFromContext(r.Context()), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK,
		httputil.NewPaginatedResponse(newCampaignResponses(campaigns), total, filter.Page, filter.PerPage))
}

// GetCampaign handles GET /api/v1/campaigns/{id}
func (h *CampaignHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("campaign id is required"), h.logger)
		return
	}

	campaign, err := h.service.GetCampaign(r.Context(), middleware.StoreIDFromContext(r.Context()), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newCampaignResponse(campaign)})
}

// UpdateCampaign handles PUT /api/v1/campaigns/{id}
func (h *CampaignHandler) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	id := chi.URLParam(r, "id")
	if id == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("campaign id is required"), h.logger)
		return
	}

	var req UpdateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := &service.UpdateCampaignInput{
		Code:               req.Code,
		Name:               req.Name,
		DiscountType:       req.DiscountType,
		DiscountValue:      req.DiscountValue,
		ApplyScope:         req.ApplyScope,
		IncludeCategoryIDs: req.IncludeCategoryIDs,
		ExcludeCategoryIDs: req.ExcludeCategoryIDs,
		IncludeProductIDs:  req.IncludeProductIDs,
		ExcludeProductIDs:  req.ExcludeProductIDs,
		MonthlyUsageLimit:  req.MonthlyUsageLimit,
		Status:             req.Status,
	}

	if req.ValidFrom != nil {
		if *req.ValidFrom == "" {
			input.ClearValidFrom = true
		} else {
			validFrom, err := parseDate(*req.ValidFrom)
			if err != nil {
				httputil.WriteError(w, r, apperrors.InvalidInput("valid_from must be a YYYY-MM-DD date"), h.logger)
				return
			}
			input.ValidFrom = validFrom
		}
	}
	if req.ValidUntil != nil {
		if *req.ValidUntil == "" {
			input.ClearValidUntil = true
		} else {
			validUntil, err := parseDate(*req.ValidUntil)
			if err != nil {
				httputil.WriteError(w, r, apperrors.InvalidInput("valid_until must be a YYYY-MM-DD date"), h.logger)
				return
			}
			input.ValidUntil = validUntil
		}
	}
	if req.MaxDiscountAmount != nil {
		if req.MaxDiscountAmount.IsZero() {
			input.ClearMaxDiscount = true
		} else {
			input.MaxDiscountAmount = req.MaxDiscountAmount
		}
	}
	if req.MinCartAmount != nil {
		if req.MinCartAmount.IsZero() {
			input.ClearMinCart = true
		} else {
			input.MinCartAmount = req.MinCartAmount
		}
	}

	campaign, err := h.service.UpdateCampaign(r.Context(), middleware.StoreIDFromContext(r.Context()), id, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newCampaignResponse(campaign)})
}

// DeleteCampaign handles DELETE /api/v1/campaigns/{id}
func (h *CampaignHandler) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("campaign id is required"), h.logger)
		return
	}

	if err := h.service.DeleteCampaign(r.Context(), middleware.StoreIDFromContext(r.Context()), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PauseCampaign handles POST /api/v1/campaigns/{id}/pause
func (h *CampaignHandler) PauseCampaign(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.service.PauseCampaign)
}

// ActivateCampaign handles POST /api/v1/campaigns/{id}/activate
func (h *CampaignHandler) ActivateCampaign(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.service.ActivateCampaign)
}

func (h *CampaignHandler) setStatus(w http.ResponseWriter, r *http.Request, change func(ctx context.Context, storeID, id string) (*domain.Campaign, error)) {
	id := chi.URLParam(r, "id")
	if id == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("campaign id is required"), h.logger)
		return
	}

	campaign, err := change(r.Context(), middleware.StoreIDFromContext(r.Context()), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newCampaignResponse(campaign)})
}

// CampaignStats handles GET /api/v1/campaigns/stats
func (h *CampaignHandler) CampaignStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.CampaignStats(r.Context(), middleware.StoreIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: stats})
}

// ListTemplates handles GET /api/v1/templates
func (h *CampaignHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: service.CampaignTemplates()})
}

// parseDate parses an optional YYYY-MM-DD date; an empty string yields nil.
func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
