package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Discount type constants.
const (
	DiscountTypePercent  = "percent"
	DiscountTypeAbsolute = "absolute"
)

// Campaign status constants. Status is independent of date-derived expiry:
// a campaign can be active and simultaneously expired by date.
const (
	CampaignStatusActive = "active"
	CampaignStatusPaused = "paused"
)

// Apply scope constants.
const (
	ScopeAll        = "all"
	ScopeCategories = "categories"
	ScopeProducts   = "products"
)

// Campaign represents a configured discount rule (coupon) owned by a store.
type Campaign struct {
	ID                 string           `json:"id"`
	StoreID            string           `json:"store_id"`
	Code               string           `json:"code"`
	Name               string           `json:"name"`
	DiscountType       string           `json:"discount_type"`
	DiscountValue      decimal.Decimal  `json:"discount_value"`
	ValidFrom          *time.Time       `json:"valid_from,omitempty"`
	ValidUntil         *time.Time       `json:"valid_until,omitempty"`
	ApplyScope         string           `json:"apply_scope"`
	IncludeCategoryIDs []string         `json:"include_category_ids"`
	ExcludeCategoryIDs []string         `json:"exclude_category_ids"`
	IncludeProductIDs  []string         `json:"include_product_ids"`
	ExcludeProductIDs  []string         `json:"exclude_product_ids"`
	MaxDiscountAmount  *decimal.Decimal `json:"max_discount_amount,omitempty"`
	MinCartAmount      *decimal.Decimal `json:"min_cart_amount,omitempty"`
	MonthlyUsageLimit  int              `json:"monthly_usage_limit"`
	Status             string           `json:"status"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// Label returns the display label used for the discount line at checkout.
// Codes are stored lowercased, so the label shows the canonical uppercase form.
func (c *Campaign) Label() string {
	return fmt.Sprintf("%s (%s)", c.Name, strings.ToUpper(c.Code))
}

// IsExpired reports whether the campaign's valid_until date has passed.
// Bounds are inclusive: the campaign is still valid on valid_until itself.
// Derived from dates only; orthogonal to Status.
func (c *Campaign) IsExpired(today time.Time) bool {
	if c.ValidUntil == nil {
		return false
	}
	return dateOnly(today).After(dateOnly(*c.ValidUntil))
}

// IsNotYetStarted reports whether the campaign's valid_from date is still in
// the future.
func (c *Campaign) IsNotYetStarted(today time.Time) bool {
	if c.ValidFrom == nil {
		return false
	}
	return dateOnly(today).Before(dateOnly(*c.ValidFrom))
}

// dateOnly truncates a timestamp to its calendar date in UTC so validity
// bounds compare as whole days.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ValidDiscountTypes returns the set of valid discount types.
func ValidDiscountTypes() []string {
	return []string{DiscountTypePercent, DiscountTypeAbsolute}
}

// IsValidDiscountType checks whether the given string is a valid discount type.
func IsValidDiscountType(t string) bool {
	for _, v := range ValidDiscountTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// ValidStatuses returns the set of valid campaign statuses.
func ValidStatuses() []string {
	return []string{CampaignStatusActive, CampaignStatusPaused}
}

// IsValidStatus checks whether the given string is a valid campaign status.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// ValidScopes returns the set of valid apply scopes.
func ValidScopes() []string {
	return []string{ScopeAll, ScopeCategories, ScopeProducts}
}

// IsValidScope checks whether the given string is a valid apply scope.
func IsValidScope(scope string) bool {
	for _, s := range ValidScopes() {
		if s == scope {
			return true
		}
	}
	return false
}

// ValidateRules checks the value-range invariants on a campaign's discount
// configuration. The admin form enforces the same rules client-side; this is
// the authoritative server-side check.
func (c *Campaign) ValidateRules() error {
	if !IsValidDiscountType(c.DiscountType) {
		return fmt.Errorf("invalid discount type %q", c.DiscountType)
	}
	if !IsValidScope(c.ApplyScope) {
		return fmt.Errorf("invalid apply scope %q", c.ApplyScope)
	}
	if !IsValidStatus(c.Status) {
		return fmt.Errorf("invalid status %q", c.Status)
	}

	switch c.DiscountType {
	case DiscountTypePercent:
		if !c.DiscountValue.IsPositive() || c.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
			return fmt.Errorf("percent discount value must be in (0, 100], got %s", c.DiscountValue)
		}
	case DiscountTypeAbsolute:
		if !c.DiscountValue.IsPositive() {
			return fmt.Errorf("absolute discount value must be positive, got %s", c.DiscountValue)
		}
	}

	if c.MaxDiscountAmount != nil && !c.MaxDiscountAmount.IsPositive() {
		return fmt.Errorf("max discount amount must be positive, got %s", c.MaxDiscountAmount)
	}
	if c.MinCartAmount != nil && c.MinCartAmount.IsNegative() {
		return fmt.Errorf("min cart amount must not be negative, got %s", c.MinCartAmount)
	}
	if c.MonthlyUsageLimit < 0 {
		return fmt.Errorf("monthly usage limit must not be negative, got %d", c.MonthlyUsageLimit)
	}
	if c.ValidFrom != nil && c.ValidUntil != nil && c.ValidFrom.After(*c.ValidUntil) {
		return fmt.Errorf("valid_from %s is after valid_until %s",
			c.ValidFrom.Format("2006-01-02"), c.ValidUntil.Format("2006-01-02"))
	}

	return nil
}
