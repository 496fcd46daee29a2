package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/domain"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/repository"
	apperrors "github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/errors"
)

// CampaignRepository implements repository.CampaignRepository using PostgreSQL.
type CampaignRepository struct {
	db DBTX
}

// NewCampaignRepository creates a new PostgreSQL-backed campaign repository.
func NewCampaignRepository(db DBTX) *CampaignRepository {
	return &CampaignRepository{db: db}
}

const campaignColumns = `id, store_id, code, name, discount_type, discount_value,
	   valid_from, valid_until, apply_scope, include_category_ids,
	   exclude_category_ids, include_product_ids, exclude_product_ids,
	   max_discount_amount, min_cart_amount, monthly_usage_limit, status,
	   created_at, updated_at`

// Create inserts a new campaign into the database.
func (r *CampaignRepository) Create(ctx context.Context, c *domain.Campaign) error {
	scopeIDs, err := marshalScopeIDs(c)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO campaigns (
			id, store_id, code, name, discount_type, discount_value,
			valid_from, valid_until, apply_scope, include_category_ids,
			exclude_category_ids, include_product_ids, exclude_product_ids,
			max_discount_amount, min_cart_amount, monthly_usage_limit, status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err = r.db.Exec(ctx, query,
		c.ID,
		c.StoreID,
		strings.ToLower(c.Code),
		c.Name,
		c.DiscountType,
		c.DiscountValue,
		c.ValidFrom,
		c.ValidUntil,
		c.ApplyScope,
		scopeIDs[0],
		scopeIDs[1],
		scopeIDs[2],
		scopeIDs[3],
		c.MaxDiscountAmount,
		c.MinCartAmount,
		c.MonthlyUsageLimit,
		c.Status,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("campaign", "code", c.Code)
		}
		return fmt.Errorf("insert campaign: %w", err)
	}

	return nil
}

// GetByID retrieves a campaign by its ID, scoped to the store.
func (r *CampaignRepository) GetByID(ctx context.Context, storeID, id string) (*domain.Campaign, error) {
	query := `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE store_id = $1 AND id = $2`

	return r.scanCampaign(ctx, query, storeID, id)
}

// GetByCode retrieves a campaign by its coupon code, case-insensitively.
// Codes are stored lowercased, so lowering the lookup key suffices.
func (r *CampaignRepository) GetByCode(ctx context.Context, storeID, code string) (*domain.Campaign, error) {
	query := `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE store_id = $1 AND code = $2`

	return r.scanCampaign(ctx, query, storeID, strings.ToLower(code))
}

// List returns the store's campaigns matching the given filter with the total count.
func (r *CampaignRepository) List(ctx context.Context, storeID string, filter repository.CampaignFilter) ([]domain.Campaign, int, error) {
	conditions := []string{"store_id = $1"}
	args := []any{storeID}
	argIndex := 2

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	if filter.Scope != nil {
		conditions = append(conditions, fmt.Sprintf("apply_scope = $%d", argIndex))
		args = append(args, *filter.Scope)
		argIndex++
	}

	query := fmt.Sprintf(`
		SELECT `+campaignColumns+`,
			   count(*) OVER() AS total_count
		FROM campaigns
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		strings.Join(conditions, " AND "), argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var (
		campaigns  []domain.Campaign
		totalCount int
	)

	for rows.Next() {
		c, err := scanCampaignRow(rows, &totalCount)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate campaign rows: %w", err)
	}

	if campaigns == nil {
		campaigns = []domain.Campaign{}
	}

	return campaigns, totalCount, nil
}

// Update modifies an existing campaign in the database.
func (r *CampaignRepository) Update(ctx context.Context, c *domain.Campaign) error {
	scopeIDs, err := marshalScopeIDs(c)
	if err != nil {
		return err
	}

	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE campaigns
		SET code = $1, name = $2, discount_type = $3, discount_value = $4,
		    valid_from = $5, valid_until = $6, apply_scope = $7,
		    include_category_ids = $8, exclude_category_ids = $9,
		    include_product_ids = $10, exclude_product_ids = $11,
		    max_discount_amount = $12, min_cart_amount = $13,
		    monthly_usage_limit = $14, status = $15, updated_at = $16
		WHERE store_id = $17 AND id = $18`

	ct, err := r.db.Exec(ctx, query,
		strings.ToLower(c.Code),
		c.Name,
		c.DiscountType,
		c.DiscountValue,
		c.ValidFrom,
		c.ValidUntil,
		c.ApplyScope,
		scopeIDs[0],
		scopeIDs[1],
		scopeIDs[2],
		scopeIDs[3],
		c.MaxDiscountAmount,
		c.MinCartAmount,
		c.MonthlyUsageLimit,
		c.Status,
		c.UpdatedAt,
		c.StoreID,
		c.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("campaign", "code", c.Code)
		}
		return fmt.Errorf("update campaign: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("campaign", c.ID)
	}

	return nil
}

// Delete removes a campaign, scoped to the store.
func (r *CampaignRepository) Delete(ctx context.Context, storeID, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM campaigns WHERE store_id = $1 AND id = $2`, storeID, id)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("campaign", id)
	}

	return nil
}

// scanCampaign executes a query expected to return a single campaign row.
func (r *CampaignRepository) scanCampaign(ctx context.Context, query string, args ...any) (*domain.Campaign, error) {
	row := r.db.QueryRow(ctx, query, args...)
	c, err := scanCampaignRow(row, nil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaignRow(row rowScanner, totalCount *int) (*domain.Campaign, error) {
	var (
		c           domain.Campaign
		includeCats []byte
		excludeCats []byte
		includeProd []byte
		excludeProd []byte
	)

	dest := []any{
		&c.ID,
		&c.StoreID,
		&c.Code,
		&c.Name,
		&c.DiscountType,
		&c.DiscountValue,
		&c.ValidFrom,
		&c.ValidUntil,
		&c.ApplyScope,
		&includeCats,
		&excludeCats,
		&includeProd,
		&excludeProd,
		&c.MaxDiscountAmount,
		&c.MinCartAmount,
		&c.MonthlyUsageLimit,
		&c.Status,
		&c.CreatedAt,
		&c.UpdatedAt,
	}
	if totalCount != nil {
		dest = append(dest, totalCount)
	}

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan campaign row: %w", err)
	}

	for _, pair := range []struct {
		raw []byte
		dst *[]string
	}{
		{includeCats, &c.IncludeCategoryIDs},
		{excludeCats, &c.ExcludeCategoryIDs},
		{includeProd, &c.IncludeProductIDs},
		{excludeProd, &c.ExcludeProductIDs},
	} {
		if pair.raw != nil {
			if err := json.Unmarshal(pair.raw, pair.dst); err != nil {
				return nil, fmt.Errorf("unmarshal scope ids: %w", err)
			}
		}
		if *pair.dst == nil {
			*pair.dst = []string{}
		}
	}

	return &c, nil
}

// marshalScopeIDs serializes the four scope id sets as JSONB columns, in
// include-categories, exclude-categories, include-products, exclude-products
// order.
func marshalScopeIDs(c *domain.Campaign) ([4][]byte, error) {
	var out [4][]byte
	for i, ids := range [][]string{
		c.IncludeCategoryIDs,
		c.ExcludeCategoryIDs,
		c.IncludeProductIDs,
		c.ExcludeProductIDs,
	} {
		if ids == nil {
			ids = []string{}
		}
		data, err := json.Marshal(ids)
		if err != nil {
			return out, fmt.Errorf("marshal scope ids: %w", err)
		}
		out[i] = data
	}
	return out, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
