package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/domain"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/platform"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/httpclient"
)

// ============================================================================
// Store repository mock
// ============================================================================

type mockStoreRepository struct {
	mock.Mock
}

func (m *mockStoreRepository) Save(ctx context.Context, store *domain.Store) error {
	args := m.Called(ctx, store)
	return args.Error(0)
}

func (m *mockStoreRepository) Get(ctx context.Context, storeID string) (*domain.Store, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Store), args.Error(1)
}

func (m *mockStoreRepository) GetByToken(ctx context.Context, token string) (*domain.Store, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Store), args.Error(1)
}

func (m *mockStoreRepository) Delete(ctx context.Context, storeID string) error {
	args := m.Called(ctx, storeID)
	return args.Error(0)
}

// ============================================================================
// Test helpers
// ============================================================================

func testPlatformClient(baseURL string) *platform.Client {
	httpClient := httpclient.New(httpclient.Config{
		Timeout:      2 * time.Second,
		MaxRetries:   0,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: time.Millisecond,
	})
	return platform.NewClient(platform.Config{
		ClientID:     "app-123",
		ClientSecret: "secret",
		AuthBaseURL:  baseURL,
		APIBaseURL:   baseURL,
	}, httpClient, testLogger())
}

// fakePlatform serves the token exchange and store metadata endpoints.
func fakePlatform(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/apps/authorize/token", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		if payload["code"] != "code-abc" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{"code": "invalid_grant", "message": "bad code"},
			})
			return
		}
		json.NewEncoder(w).Encode(platform.TokenResponse{
			AccessToken: "tok-xyz",
			TokenType:   "bearer",
			Scope:       "read_orders write_coupons",
			UserID:      1234,
		})
	})
	mux.HandleFunc("/v1/1234/store", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(platform.StoreInfo{ID: 1234, Name: "Merci del Bien", URL: "https://merci.example"})
	})
	return httptest.NewServer(mux)
}

// ============================================================================
// GET /install - Install
// ============================================================================

func TestInstall_RedirectsToPlatform(t *testing.T) {
	handler := NewOAuthHandler(testPlatformClient("https://platform.example"), new(mockStoreRepository), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/install?state=state-xyz", nil)
	rec := httptest.NewRecorder()

	handler.Install(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://platform.example/apps/app-123/authorize?state=state-xyz", rec.Header().Get("Location"))
}

func TestInstall_GeneratesStateWhenMissing(t *testing.T) {
	handler := NewOAuthHandler(testPlatformClient("https://platform.example"), new(mockStoreRepository), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/install", nil)
	rec := httptest.NewRecorder()

	handler.Install(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "state=")
}

// ============================================================================
// GET /auth/callback - Callback
// ============================================================================

func TestCallback_SavesStore(t *testing.T) {
	srv := fakePlatform(t)
	defer srv.Close()

	stores := new(mockStoreRepository)
	stores.On("Save", mock.Anything, mock.MatchedBy(func(s *domain.Store) bool {
		return s.ID == "1234" && s.AccessToken == "tok-xyz" && s.Name == "Merci del Bien"
	})).Return(nil)

	handler := NewOAuthHandler(testPlatformClient(srv.URL), stores, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=code-abc", nil)
	rec := httptest.NewRecorder()

	handler.Callback(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	stores.AssertExpectations(t)
}

func TestCallback_MissingCode(t *testing.T) {
	handler := NewOAuthHandler(testPlatformClient("https://platform.example"), new(mockStoreRepository), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/auth/callback", nil)
	rec := httptest.NewRecorder()

	handler.Callback(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

func TestCallback_ExchangeRejected(t *testing.T) {
	srv := fakePlatform(t)
	defer srv.Close()

	handler := NewOAuthHandler(testPlatformClient(srv.URL), new(mockStoreRepository), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=stale-code", nil)
	rec := httptest.NewRecorder()

	handler.Callback(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
}
