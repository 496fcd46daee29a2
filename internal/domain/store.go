package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Store holds the OAuth credentials of an installed merchant store. Persisted
// in Redis behind a repository interface rather than kept as process-global
// state, so a restart or a second replica sees the same installations.
type Store struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	AccessToken string    `json:"access_token"`
	Scope       string    `json:"scope"`
	InstalledAt time.Time `json:"installed_at"`
}

// Redemption records one committed application of a code to an order.
type Redemption struct {
	ID         string          `json:"id"`
	StoreID    string          `json:"store_id"`
	CampaignID string          `json:"campaign_id"`
	Code       string          `json:"code"`
	OrderID    string          `json:"order_id,omitempty"`
	ClientID   string          `json:"client_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  time.Time       `json:"created_at"`
}

// CampaignStats aggregates redemption activity for one campaign.
type CampaignStats struct {
	CampaignID      string          `json:"campaign_id"`
	RedemptionCount int             `json:"redemption_count"`
	TotalDiscounted decimal.Decimal `json:"total_discounted"`
}
