package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/domain"
)

// ErrLimitReached is returned by UsageLimiter.Reserve when the client already
// used the campaign the maximum number of times this month.
var ErrLimitReached = errors.New("monthly usage limit reached")

// CampaignFilter defines filter criteria for listing campaigns.
type CampaignFilter struct {
	Status  *string
	Scope   *string
	Page    int
	PerPage int
}

// CampaignRepository defines the interface for campaign persistence
// operations. All lookups are scoped to a single store.
type CampaignRepository interface {
	// Create inserts a new campaign.
	Create(ctx context.Context, campaign *domain.Campaign) error

	// GetByID retrieves a campaign by its unique identifier.
	GetByID(ctx context.Context, storeID, id string) (*domain.Campaign, error)

	// GetByCode retrieves a campaign by its coupon code, case-insensitively.
	GetByCode(ctx context.Context, storeID, code string) (*domain.Campaign, error)

	// List returns campaigns matching the given filter along with the total count.
	List(ctx context.Context, storeID string, filter CampaignFilter) ([]domain.Campaign, int, error)

	// Update modifies an existing campaign.
	Update(ctx context.Context, campaign *domain.Campaign) error

	// Delete removes a campaign.
	Delete(ctx context.Context, storeID, id string) error
}

// RedemptionRepository persists committed redemptions for reporting.
type RedemptionRepository interface {
	// Record inserts a redemption row.
	Record(ctx context.Context, redemption *domain.Redemption) error

	// StatsByCampaign aggregates redemption count and total discounted amount
	// for every campaign of the store.
	StatsByCampaign(ctx context.Context, storeID string) ([]domain.CampaignStats, error)
}

// StoreRepository persists installed-store OAuth credentials.
type StoreRepository interface {
	// Save upserts a store record.
	Save(ctx context.Context, store *domain.Store) error

	// Get retrieves a store by its platform store ID.
	Get(ctx context.Context, storeID string) (*domain.Store, error)

	// GetByToken resolves the store that owns the given admin access token.
	GetByToken(ctx context.Context, token string) (*domain.Store, error)

	// Delete removes a store record (app uninstalled).
	Delete(ctx context.Context, storeID string) error
}

// SessionRepository tracks the discount currently applied to a checkout
// session. At most one discount line is active per session; setting a new one
// replaces the previous one.
type SessionRepository interface {
	// SetApplied stores the applied discount for a session.
	SetApplied(ctx context.Context, storeID, sessionID string, applied *domain.AppliedDiscount) error

	// GetApplied returns the discount currently applied to a session.
	GetApplied(ctx context.Context, storeID, sessionID string) (*domain.AppliedDiscount, error)

	// ClearApplied removes the applied discount from a session.
	ClearApplied(ctx context.Context, storeID, sessionID string) error
}

// UsageLimiter enforces monthly per-client usage caps with an atomic
// reserve/commit/release protocol. Reserve atomically checks the counter
// against the limit and increments it; Release undoes a reservation whose
// redemption never committed; Commit pins the reservation's expiry to the end
// of the usage month.
type UsageLimiter interface {
	Reserve(ctx context.Context, storeID, clientID, campaignID string, limit int, month time.Time) error
	Commit(ctx context.Context, storeID, clientID, campaignID string, month time.Time) error
	Release(ctx context.Context, storeID, clientID, campaignID string, month time.Time) error
}
