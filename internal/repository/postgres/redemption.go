package postgres

import (
	"context"
	"fmt"

	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/domain"
)

// RedemptionRepository implements repository.RedemptionRepository using PostgreSQL.
type RedemptionRepository struct {
	db DBTX
}

// NewRedemptionRepository creates a new PostgreSQL-backed redemption repository.
func NewRedemptionRepository(db DBTX) *RedemptionRepository {
	return &RedemptionRepository{db: db}
}

// Record inserts a redemption row.
func (r *RedemptionRepository) Record(ctx context.Context, redemption *domain.Redemption) error {
	query := `
		INSERT INTO redemptions (id, store_id, campaign_id, code, order_id, client_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		redemption.ID,
		redemption.StoreID,
		redemption.CampaignID,
		redemption.Code,
		redemption.OrderID,
		redemption.ClientID,
		redemption.Amount,
		redemption.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert redemption: %w", err)
	}

	return nil
}

// StatsByCampaign aggregates redemption count and total discounted amount per
// campaign for the store.
func (r *RedemptionRepository) StatsByCampaign(ctx context.Context, storeID string) ([]domain.CampaignStats, error) {
	query := `
		SELECT campaign_id, count(*), coalesce(sum(amount), 0)
		FROM redemptions
		WHERE store_id = $1
		GROUP BY campaign_id
		ORDER BY campaign_id`

	rows, err := r.db.Query(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("query redemption stats: %w", err)
	}
	defer rows.Close()

	var stats []domain.CampaignStats
	for rows.Next() {
		var s domain.CampaignStats
		if err := rows.Scan(&s.CampaignID, &s.RedemptionCount, &s.TotalDiscounted); err != nil {
			return nil, fmt.Errorf("scan redemption stats row: %w", err)
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate redemption stats rows: %w", err)
	}

	if stats == nil {
		stats = []domain.CampaignStats{}
	}

	return stats, nil
}
