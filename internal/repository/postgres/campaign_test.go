package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/domain"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/repository"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/database"
	apperrors "github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/errors"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func setupRepo(t *testing.T) (*CampaignRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	repo := NewCampaignRepository(mock)
	return repo, mock
}

func sampleCampaign() *domain.Campaign {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	until := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	maxDiscount := decimal.RequireFromString("100")
	return &domain.Campaign{
		ID:                 "1f0f6f1e-0000-4000-8000-000000000001",
		StoreID:            "store-001",
		Code:               "merci10",
		Name:               "Bienvenida",
		DiscountType:       domain.DiscountTypePercent,
		DiscountValue:      decimal.RequireFromString("10"),
		ValidUntil:         &until,
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

func campaignTestColumns() []string {
	return []string{
		"id", "store_id", "code", "name", "discount_type", "discount_value",
		"valid_from", "valid_until", "apply_scope", "include_category_ids",
		"exclude_category_ids", "include_product_ids", "exclude_product_ids",
		"max_discount_amount", "min_cart_amount", "monthly_usage_limit",
		"status", "created_at", "updated_at",
	}
}

func campaignRow(c *domain.Campaign) *pgxmock.Rows {
	scopeIDs, _ := marshalScopeIDs(c)
	return pgxmock.NewRows(campaignTestColumns()).
		AddRow(
			c.ID, c.StoreID, c.Code, c.Name, c.DiscountType, c.DiscountValue,
			c.ValidFrom, c.ValidUntil, c.ApplyScope, scopeIDs[0],
			scopeIDs[1], scopeIDs[2], scopeIDs[3],
			c.MaxDiscountAmount, c.MinCartAmount, c.MonthlyUsageLimit,
			c.Status, c.CreatedAt, c.UpdatedAt,
		)
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestCampaignRepository_Create_Success(t *testing.T) {
	repo, mock := setupRepo(t)
	c := sampleCampaign()

	mock.ExpectExec("INSERT INTO campaigns").
		WithArgs(
			c.ID, c.StoreID, c.Code, c.Name, c.DiscountType, c.DiscountValue,
			c.ValidFrom, c.ValidUntil, c.ApplyScope,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			c.MaxDiscountAmount, c.MinCartAmount, c.MonthlyUsageLimit,
			c.Status, c.CreatedAt, c.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), c)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepository_Create_LowercasesCode(t *testing.T) {
	repo, mock := setupRepo(t)
	c := sampleCampaign()
	c.Code = "MERCI10"

	mock.ExpectExec("INSERT INTO campaigns").
		WithArgs(
			c.ID, c.StoreID, "merci10", c.Name, c.DiscountType, c.DiscountValue,
			c.ValidFrom, c.ValidUntil, c.ApplyScope,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			c.MaxDiscountAmount, c.MinCartAmount, c.MonthlyUsageLimit,
			c.Status, c.CreatedAt, c.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), c))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepository_Create_DuplicateCode(t *testing.T) {
	repo, mock := setupRepo(t)
	c := sampleCampaign()

	mock.ExpectExec("INSERT INTO campaigns").
		WithArgs(
			c.ID, c.StoreID, c.Code, c.Name, c.DiscountType, c.DiscountValue,
			c.ValidFrom, c.ValidUntil, c.ApplyScope,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			c.MaxDiscountAmount, c.MinCartAmount, c.MonthlyUsageLimit,
			c.Status, c.CreatedAt, c.UpdatedAt,
		).
		WillReturnError(errors.New("ERROR: duplicate key value (SQLSTATE 23505)"))

	err := repo.Create(context.Background(), c)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

// ---------------------------------------------------------------------------
// GetByID / GetByCode
// ---------------------------------------------------------------------------

func TestCampaignRepository_GetByID_Success(t *testing.T) {
	repo, mock := setupRepo(t)
	c := sampleCampaign()

	mock.ExpectQuery("SELECT (.+) FROM campaigns").
		WithArgs(c.StoreID, c.ID).
		WillReturnRows(campaignRow(c))

	got, err := repo.GetByID(context.Background(), c.StoreID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, c.Code, got.Code)
	assert.True(t, got.DiscountValue.Equal(c.DiscountValue))
	require.NotNil(t, got.MaxDiscountAmount)
	assert.True(t, got.MaxDiscountAmount.Equal(*c.MaxDiscountAmount))
	assert.NotNil(t, got.IncludeCategoryIDs)
}

func TestCampaignRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM campaigns").
		WithArgs("store-001", "missing").
		WillReturnRows(pgxmock.NewRows(campaignTestColumns()))

	_, err := repo.GetByID(context.Background(), "store-001", "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCampaignRepository_GetByCode_CaseInsensitive(t *testing.T) {
	repo, mock := setupRepo(t)
	c := sampleCampaign()

	// Lookup with mixed case must hit the lowercased stored code.
	mock.ExpectQuery("SELECT (.+) FROM campaigns").
		WithArgs(c.StoreID, "merci10").
		WillReturnRows(campaignRow(c))

	got, err := repo.GetByCode(context.Background(), c.StoreID, "MeRcI10")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

func TestCampaignRepository_List_WithStatusFilter(t *testing.T) {
	repo, mock := setupRepo(t)
	c := sampleCampaign()

	scopeIDs, _ := marshalScopeIDs(c)
	rows := pgxmock.NewRows(append(campaignTestColumns(), "total_count")).
		AddRow(
			c.ID, c.StoreID, c.Code, c.Name, c.DiscountType, c.DiscountValue,
			c.ValidFrom, c.ValidUntil, c.ApplyScope, scopeIDs[0],
			scopeIDs[1], scopeIDs[2], scopeIDs[3],
			c.MaxDiscountAmount, c.MinCartAmount, c.MonthlyUsageLimit,
			c.Status, c.CreatedAt, c.UpdatedAt, 7,
		)

	status := domain.CampaignStatusActive
	mock.ExpectQuery("SELECT (.+) FROM campaigns").
		WithArgs(c.StoreID, status, 20, 0).
		WillReturnRows(rows)

	campaigns, total, err := repo.List(context.Background(), c.StoreID, repository.CampaignFilter{
		Status: &status, Page: 1, PerPage: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.Len(t, campaigns, 1)
	assert.Equal(t, c.Code, campaigns[0].Code)
}

func TestCampaignRepository_List_EmptyResult(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM campaigns").
		WithArgs("store-001", 20, 0).
		WillReturnRows(pgxmock.NewRows(append(campaignTestColumns(), "total_count")))

	campaigns, total, err := repo.List(context.Background(), "store-001", repository.CampaignFilter{Page: 1, PerPage: 20})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NotNil(t, campaigns)
	assert.Empty(t, campaigns)
}

// ---------------------------------------------------------------------------
// Update / Delete
// ---------------------------------------------------------------------------

func TestCampaignRepository_Update_Success(t *testing.T) {
	repo, mock := setupRepo(t)
	c := sampleCampaign()

	mock.ExpectExec("UPDATE campaigns").
		WithArgs(
			c.Code, c.Name, c.DiscountType, c.DiscountValue,
			c.ValidFrom, c.ValidUntil, c.ApplyScope,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			c.MaxDiscountAmount, c.MinCartAmount, c.MonthlyUsageLimit,
			c.Status, pgxmock.AnyArg(), c.StoreID, c.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.Update(context.Background(), c))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepository_Update_NotFound(t *testing.T) {
	repo, mock := setupRepo(t)
	c := sampleCampaign()

	mock.ExpectExec("UPDATE campaigns").
		WithArgs(
			c.Code, c.Name, c.DiscountType, c.DiscountValue,
			c.ValidFrom, c.ValidUntil, c.ApplyScope,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			c.MaxDiscountAmount, c.MinCartAmount, c.MonthlyUsageLimit,
			c.Status, pgxmock.AnyArg(), c.StoreID, c.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), c)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCampaignRepository_Delete_Success(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectExec("DELETE FROM campaigns").
		WithArgs("store-001", "camp-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, repo.Delete(context.Background(), "store-001", "camp-1"))
}

func TestCampaignRepository_Delete_NotFound(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectExec("DELETE FROM campaigns").
		WithArgs("store-001", "missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), "store-001", "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
