package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/domain"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/event"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/repository"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/service"
	apperrors "github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/errors"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/httputil"
	pkgkafka "github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/kafka"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/middleware"
)

const testStoreID = "store-001"

// ============================================================================
// Mock repositories
// ============================================================================

type mockCampaignRepository struct {
	mock.Mock
}

func (m *mockCampaignRepository) Create(ctx context.Context, campaign *domain.Campaign) error {
	args := m.Called(ctx, campaign)
	return args.Error(0)
}

func (m *mockCampaignRepository) GetByID(ctx context.Context, storeID, id string) (*domain.Campaign, error) {
	args := m.Called(ctx, storeID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Campaign), args.Error(1)
}

func (m *mockCampaignRepository) GetByCode(ctx context.Context, storeID, code string) (*domain.Campaign, error) {
	args := m.Called(ctx, storeID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Campaign), args.Error(1)
}

func (m *mockCampaignRepository) List(ctx context.Context, storeID string, filter repository.CampaignFilter) ([]domain.Campaign, int, error) {
	args := m.Called(ctx, storeID, filter)
	return args.Get(0).([]domain.Campaign), args.Int(1), args.Error(2)
}

func (m *mockCampaignRepository) Update(ctx context.Context, campaign *domain.Campaign) error {
	args := m.Called(ctx, campaign)
	return args.Error(0)
}

func (m *mockCampaignRepository) Delete(ctx context.Context, storeID, id string) error {
	args := m.Called(ctx, storeID, id)
	return args.Error(0)
}

type mockRedemptionRepository struct {
	mock.Mock
}

func (m *mockRedemptionRepository) Record(ctx context.Context, redemption *domain.Redemption) error {
	args := m.Called(ctx, redemption)
	return args.Error(0)
}

func (m *mockRedemptionRepository) StatsByCampaign(ctx context.Context, storeID string) ([]domain.CampaignStats, error) {
	args := m.Called(ctx, storeID)
	return args.Get(0).([]domain.CampaignStats), args.Error(1)
}

// ============================================================================
// Test helpers
// ============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testEventProducer() *event.Producer {
	logger := testLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	kafkaProducer := pkgkafka.NewProducer(kafkaCfg, logger)
	return event.NewProducer(kafkaProducer, logger)
}

func testCampaignHandler(campaigns *mockCampaignRepository, redemptions *mockRedemptionRepository) *CampaignHandler {
	svc := service.NewCampaignService(campaigns, redemptions, testEventProducer(), testLogger())
	return NewCampaignHandler(svc, testLogger())
}

// setupAdminRouter creates a chi router matching the production admin route
// layout, with the store identity injected the way StoreAuth would.
func setupAdminRouter(handler *CampaignHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithStoreID(r.Context(), testStoreID)))
		})
	})
	r.Route("/api/v1/campaigns", func(r chi.Router) {
		r.Post("/", handler.CreateCampaign)
		r.Get("/", handler.ListCampaigns)
		r.Get("/stats", handler.CampaignStats)
		r.Get("/{id}", handler.GetCampaign)
		r.Put("/{id}", handler.UpdateCampaign)
		r.Delete("/{id}", handler.DeleteCampaign)
		r.Post("/{id}/pause", handler.PauseCampaign)
		r.Post("/{id}/activate", handler.ActivateCampaign)
	})
	r.Get("/api/v1/templates", handler.ListTemplates)
	return r
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	return resp
}

// campaignListItem is the subset of the list payload the tests assert on.
type campaignListItem struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	Expired bool   `json:"expired"`
}

func decodeListResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.PaginatedResponse[campaignListItem] {
	t.Helper()
	var resp httputil.PaginatedResponse[campaignListItem]
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	return resp
}

// sampleCampaign returns a domain.Campaign suitable for test assertions.
func sampleCampaign() *domain.Campaign {
	now := time.Now().UTC()
	maxDiscount := decimal.NewFromInt(100)
	return &domain.Campaign{
		ID:                 "550e8400-e29b-41d4-a716-446655440001",
		StoreID:            testStoreID,
		Code:               "merci10",
		Name:               "Bienvenida",
		DiscountType:       domain.DiscountTypePercent,
		DiscountValue:      decimal.NewFromInt(10),
		ApplyScope:         domain.ScopeAll,
		IncludeCategoryIDs: []string{},
		ExcludeCategoryIDs: []string{},
		IncludeProductIDs:  []string{},
		ExcludeProductIDs:  []string{},
		MaxDiscountAmount:  &maxDiscount,
		MonthlyUsageLimit:  5,
		Status:             domain.CampaignStatusActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// validCreateCampaignJSON returns a valid JSON payload for CreateCampaign.
func validCreateCampaignJSON() []byte {
	req := CreateCampaignRequest{
		Code:          "MERCI10",
		Name:          "Bienvenida",
		DiscountType:  "percent",
		DiscountValue: decimal.NewFromInt(10),
		ValidFrom:     "2025-06-01",
		ValidUntil:    "2025-12-31",
	}
	b, _ := json.Marshal(req)
	return b
}

// ============================================================================
// POST /api/v1/campaigns - CreateCampaign
// ============================================================================

func TestCreateCampaign_Success(t *testing.T) {
	campaigns := new(mockCampaignRepository)
	handler := testCampaignHandler(campaigns, new(mockRedemptionRepository))
	router := setupAdminRouter(handler)

	campaigns.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Campaign) bool {
		return c.StoreID == testStoreID && c.Code == "merci10"
	})).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns", bytes.NewReader(validCreateCampaignJSON()))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	assert.NotNil(t, resp.Data)
	campaigns.AssertExpectations(t)
}

func TestCreateCampaign_InvalidJSON(t *testing.T) {
	handler := testCampaignHandler(new(mockCampaignRepository), new(mockRedemptionRepository))
	router := setupAdminRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns", bytes.NewReader([]byte(`{invalid json`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "invalid request body")
}

func TestCreateCampaign_ValidationError_MissingName(t *testing.T) {
	handler := testCampaignHandler(new(mockCampaignRepository), new(mockRedemptionRepository))
	router := setupAdminRouter(handler)

	reqBody := CreateCampaignRequest{
		// Name intentionally omitted
		Code:          "MERCI10",
		DiscountType:  "percent",
		DiscountValue: decimal.NewFromInt(10),
	}
	b, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestCreateCampaign_InvalidDateFormat(t *testing.T) {
	handler := testCampaignHandler(new(mockCampaignRepository), new(mockRedemptionRepository))
	router := setupAdminRouter(handler)

	reqBody := CreateCampaignRequest{
		Code:          "MERCI10",
		Name:          "Bienvenida",
		DiscountType:  "percent",
		DiscountValue: decimal.NewFromInt(10),
		ValidFrom:     "01/06/2025",
	}
	b, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "valid_from must be a YYYY-MM-DD date")
}

func TestCreateCampaign_PercentOutOfRange(t *testing.T) {
	handler := testCampaignHandler(new(mockCampaignRepository), new(mockRedemptionRepository))
	router := setupAdminRouter(handler)

	reqBody := CreateCampaignRequest{
		Code:          "MERCI150",
		Name:          "Demasiado",
		DiscountType:  "percent",
		DiscountValue: decimal.NewFromInt(150),
	}
	b, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

// ============================================================================
// GET /api/v1/campaigns - ListCampaigns
// ============================================================================

func TestListCampaigns_Success(t *testing.T) {
	campaigns := new(mockCampaignRepository)
	handler := testCampaignHandler(campaigns, new(mockRedemptionRepository))
	router := setupAdminRouter(handler)

	campaigns.On("List", mock.Anything, testStoreID, mock.MatchedBy(func(f repository.CampaignFilter) bool {
		return f.Page == 1 && f.PerPage == 20 && f.Status != nil && *f.Status == "active"
	})).Return([]domain.Campaign{*sampleCampaign()}, 1, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns?status=active", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeListResponse(t, rec)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "merci10", resp.Data[0].Code)
	assert.False(t, resp.Data[0].Expired)
	assert.Equal(t, 1, resp.TotalCount)
	campaigns.AssertExpectations(t)
}

func TestListCampaigns_ExpiredFlagDerivedFromDates(t *testing.T) {
	campaigns := new(mockCampaignRepository)
	handler := testCampaignHandler(campaigns, new(mockRedemptionRepository))
	router := setupAdminRouter(handler)

	expired := sampleCampaign()
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	expired.ValidUntil = &yesterday

	campaigns.On("List", mock.Anything, testStoreID, mock.Anything).
		Return([]domain.Campaign{*expired}, 1, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeListResponse(t, rec)
	require.Len(t, resp.Data, 1)
	assert.True(t, resp.Data[0].Expired)
}

// ============================================================================
// GET /api/v1/campaigns/{id} - GetCampaign
// ============================================================================

func TestGetCampaign_Success(t *testing.T) {
	campaigns := new(mockCampaignRepository)
	handler := testCampaignHandler(campaigns, new(mockRedemptionRepository))
	router := setupAdminRouter(handler)

	campaign := sampleCampaign()
	campaigns.On("GetByID", mock.Anything, testStoreID, campaign.ID).Return(campaign, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns/"+campaign.ID, nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	assert.NotNil(t, resp.Data)
}

func TestGetCampaign_NotFound(t *testing.T) {
	campaigns := new(mockCampaignRepository)
	handler := testCampaignHandler(campaigns, new(mockRedemptionRepository))
	router := setupAdminRouter(handler)

	campaigns.On("GetByID", mock.Anything, testStoreID, "missing").
		Return(nil, apperrors.NotFound("campaign", "missing"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns/missing", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

// ============================================================================
// PUT /api/v1/campaigns/{id} - UpdateCampaign
// ============================================================================

func TestUpdateCampaign_Success(t *testing.T) {
	campaigns := new(mockCampaignRepository)
	handler := testCampaignHandler(campaigns, new(mockRedemptionRepository))
	router := setupAdminRouter(handler)

	campaign := sampleCampaign()
	campaigns.On("GetByID", mock.Anything, testStoreID, campaign.ID).Return(campaign, nil)
	campaigns.On("Update", mock.Anything, mock.MatchedBy(func(c *domain.Campaign) bool {
		return c.Name == "Bienvenida 2.0"
	})).Return(nil)

	body := []byte(`{"name":"Bienvenida 2.0"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/campaigns/"+campaign.ID, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	campaigns.AssertExpectations(t)
}

func TestUpdateCampaign_EmptyDateClearsBound(t *testing.T) {
	campaigns := new(mockCampaignRepository)
	handler := testCampaignHandler(campaigns, new(mockRedemptionRepository))
	router := setupAdminRouter(handler)

	campaign := sampleCampaign()
	until := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	campaign.ValidUntil = &until

	campaigns.On("GetByID", mock.Anything, testStoreID, campaign.ID).Return(campaign, nil)
	campaigns.On("Update", mock.Anything, mock.MatchedBy(func(c *domain.Campaign) bool {
		return c.ValidUntil == nil
	})).Return(nil)

	body := []byte(`{"valid_until":""}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/campaigns/"+campaign.ID, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	campaigns.AssertExpectations(t)
}

func TestUpdateCampaign_InvalidStatus(t *testing.T) {
	handler := testCampaignHandler(new(mockCampaignRepository), new(mockRedemptionRepository))
	router := setupAdminRouter(handler)

	body := []byte(`{"status":"archived"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/campaigns/camp-1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

// ============================================================================
// DELETE /api/v1/campaigns/{id} - DeleteCampaign
// ============================================================================

func TestDeleteCampaign_Success(t *testing.T) {
	campaigns := new(mockCampaignRepository)
	handler := testCampaignHandler(campaigns, new(mockRedemptionRepository))
	router := setupAdminRouter(handler)

	campaign := sampleCampaign()
	campaigns.On("GetByID", mock.Anything, testStoreID, campaign.ID).Return(campaign, nil)
	campaigns.On("Delete", mock.Anything, testStoreID, campaign.ID).Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/campaigns/"+campaign.ID, nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	campaigns.AssertExpectations(t)
}

// ============================================================================
// POST /api/v1/campaigns/{id}/pause and /activate
// ============================================================================

func TestPauseCampaign_Success(t *testing.T) {
	campaigns := new(mockCampaignRepository)
	handler := testCampaignHandler(campaigns, new(mockRedemptionRepository))
	router := setupAdminRouter(handler)

	campaign := sampleCampaign()
	campaigns.On("GetByID", mock.Anything, testStoreID, campaign.ID).Return(campaign, nil)
	campaigns.On("Update", mock.Anything, mock.MatchedBy(func(c *domain.Campaign) bool {
		return c.Status == domain.CampaignStatusPaused
	})).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns/"+campaign.ID+"/pause", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	campaigns.AssertExpectations(t)
}

func TestActivateCampaign_Success(t *testing.T) {
	campaigns := new(mockCampaignRepository)
	handler := testCampaignHandler(campaigns, new(mockRedemptionRepository))
	router := setupAdminRouter(handler)

	campaign := sampleCampaign()
	campaign.Status = domain.CampaignStatusPaused
	campaigns.On("GetByID", mock.Anything, testStoreID, campaign.ID).Return(campaign, nil)
	campaigns.On("Update", mock.Anything, mock.MatchedBy(func(c *domain.Campaign) bool {
		return c.Status == domain.CampaignStatusActive
	})).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns/"+campaign.ID+"/activate", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	campaigns.AssertExpectations(t)
}

// ============================================================================
// GET /api/v1/campaigns/stats - CampaignStats
// ============================================================================

func TestCampaignStats_Success(t *testing.T) {
	campaigns := new(mockCampaignRepository)
	redemptions := new(mockRedemptionRepository)
	handler := testCampaignHandler(campaigns, redemptions)
	router := setupAdminRouter(handler)

	redemptions.On("StatsByCampaign", mock.Anything, testStoreID).Return([]domain.CampaignStats{
		{CampaignID: "camp-1", RedemptionCount: 3, TotalDiscounted: decimal.NewFromInt(300)},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns/stats", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	assert.NotNil(t, resp.Data)
	redemptions.AssertExpectations(t)
}

// ============================================================================
// GET /api/v1/templates - ListTemplates
// ============================================================================

func TestListTemplates_Success(t *testing.T) {
	handler := testCampaignHandler(new(mockCampaignRepository), new(mockRedemptionRepository))
	router := setupAdminRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []service.CampaignTemplate `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Data)
}
