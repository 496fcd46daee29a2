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
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/database"
)

func setupRedemptionRepo(t *testing.T) (*RedemptionRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewRedemptionRepository(mock), mock
}

func TestRedemptionRepository_Record_Success(t *testing.T) {
	repo, mock := setupRedemptionRepo(t)

	red := &domain.Redemption{
		ID:         "red-001",
		StoreID:    "store-001",
		CampaignID: "camp-001",
		Code:       "merci10",
		OrderID:    "order-42",
		ClientID:   "client-7",
		Amount:     decimal.RequireFromString("100.00"),
		CreatedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec("INSERT INTO redemptions").
		WithArgs(red.ID, red.StoreID, red.CampaignID, red.Code, red.OrderID, red.ClientID, red.Amount, red.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Record(context.Background(), red))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedemptionRepository_Record_DBError(t *testing.T) {
	repo, mock := setupRedemptionRepo(t)

	mock.ExpectExec("INSERT INTO redemptions").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection refused"))

	err := repo.Record(context.Background(), &domain.Redemption{Amount: decimal.Zero})
	assert.ErrorContains(t, err, "insert redemption")
}

func TestRedemptionRepository_StatsByCampaign(t *testing.T) {
	repo, mock := setupRedemptionRepo(t)

	rows := pgxmock.NewRows([]string{"campaign_id", "count", "coalesce"}).
		AddRow("camp-001", 3, decimal.RequireFromString("250.50")).
		AddRow("camp-002", 1, decimal.RequireFromString("42.00"))

	mock.ExpectQuery("SELECT campaign_id, count").
		WithArgs("store-001").
		WillReturnRows(rows)

	stats, err := repo.StatsByCampaign(context.Background(), "store-001")
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "camp-001", stats[0].CampaignID)
	assert.Equal(t, 3, stats[0].RedemptionCount)
	assert.True(t, stats[0].TotalDiscounted.Equal(decimal.RequireFromString("250.50")))
}

func TestRedemptionRepository_StatsByCampaign_Empty(t *testing.T) {
	repo, mock := setupRedemptionRepo(t)

	mock.ExpectQuery("SELECT campaign_id, count").
		WithArgs("store-001").
		WillReturnRows(pgxmock.NewRows([]string{"campaign_id", "count", "coalesce"}))

	stats, err := repo.StatsByCampaign(context.Background(), "store-001")
	require.NoError(t, err)
	assert.NotNil(t, stats)
	assert.Empty(t, stats)
}
