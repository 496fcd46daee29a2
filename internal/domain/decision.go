package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrorKind classifies why a code could not be applied. These are expected
// validation outcomes, returned as values rather than Go errors; only
// ErrorKindInternal represents an unexpected failure.
type ErrorKind string

const (
	ErrorKindNone          ErrorKind = ""
	ErrorKindCodeNotFound  ErrorKind = "code_not_found"
	ErrorKindInactive      ErrorKind = "inactive"
	ErrorKindExpired       ErrorKind = "expired"
	ErrorKindNotYetStarted ErrorKind = "not_yet_started"
	ErrorKindCartTooSmall  ErrorKind = "cart_too_small"
	ErrorKindScopeMismatch ErrorKind = "scope_mismatch"
	ErrorKindCapReached    ErrorKind = "cap_reached"
	ErrorKindInternal      ErrorKind = "internal_error"
)

// Decision is the outcome of the validity predicate.
type Decision struct {
	Applicable bool
	Reason     ErrorKind
}

// AppliedDiscount is the successful result of applying a code to a cart.
// Amount is a non-negative magnitude; the caller applies the debit sign.
type AppliedDiscount struct {
	Code   string          `json:"code"`
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// IsApplicable decides whether the campaign can be applied to the cart on the
// given date. Checks short-circuit on the first failure, in order: expiry,
// start date, status, cart minimum, then scope matching.
func IsApplicable(c *Campaign, cart Cart, today time.Time) Decision {
	if c.IsExpired(today) {
		return Decision{Reason: ErrorKindExpired}
	}
	if c.IsNotYetStarted(today) {
		return Decision{Reason: ErrorKindNotYetStarted}
	}
	if c.Status != CampaignStatusActive {
		return Decision{Reason: ErrorKindInactive}
	}
	if c.MinCartAmount != nil && cart.Subtotal().LessThan(*c.MinCartAmount) {
		return Decision{Reason: ErrorKindCartTooSmall}
	}
	if c.ApplyScope != ScopeAll && len(MatchingItems(c, cart.Items)) == 0 {
		return Decision{Reason: ErrorKindScopeMismatch}
	}
	return Decision{Applicable: true}
}

// MatchingItems returns the subset of cart items the campaign's scope covers.
// An empty include set means "all"; an id present in both the include and
// exclude sets is excluded.
func MatchingItems(c *Campaign, items []CartItem) []CartItem {
	if c.ApplyScope == ScopeAll {
		return items
	}

	var include, exclude []string
	var itemID func(CartItem) string
	switch c.ApplyScope {
	case ScopeCategories:
		include, exclude = c.IncludeCategoryIDs, c.ExcludeCategoryIDs
		itemID = func(i CartItem) string { return i.CategoryID }
	case ScopeProducts:
		include, exclude = c.IncludeProductIDs, c.ExcludeProductIDs
		itemID = func(i CartItem) string { return i.ProductID }
	default:
		return nil
	}

	var matched []CartItem
	for _, item := range items {
		id := itemID(item)
		if len(include) > 0 && !contains(include, id) {
			continue
		}
		if contains(exclude, id) {
			continue
		}
		matched = append(matched, item)
	}
	return matched
}

// DiscountBase returns the combined value of the cart items the campaign
// applies to. For scope "all" this equals the full subtotal.
func DiscountBase(c *Campaign, cart Cart) decimal.Decimal {
	if c.ApplyScope == ScopeAll {
		return cart.Subtotal()
	}
	base := decimal.Zero
	for _, item := range MatchingItems(c, cart.Items) {
		base = base.Add(item.LineTotal())
	}
	return base
}

// ComputeDiscount calculates the discount amount for the given base.
// A percent discount takes its share of the base; an absolute discount never
// exceeds the base it applies against. The optional max discount cap applies
// to either type. The result is rounded half-up to minor-unit precision and
// is never negative.
func ComputeDiscount(c *Campaign, discountBase decimal.Decimal) decimal.Decimal {
	if discountBase.IsNegative() {
		return decimal.Zero
	}

	var amount decimal.Decimal
	switch c.DiscountType {
	case DiscountTypePercent:
		amount = discountBase.Mul(c.DiscountValue).Div(decimal.NewFromInt(100))
	case DiscountTypeAbsolute:
		amount = decimal.Min(c.DiscountValue, discountBase)
	default:
		return decimal.Zero
	}

	if c.MaxDiscountAmount != nil {
		amount = decimal.Min(amount, *c.MaxDiscountAmount)
	}

	// decimal.Round rounds half away from zero, which is half-up for the
	// non-negative amounts produced here.
	amount = amount.Round(2)

	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

// Apply runs the full decision for a single campaign: validity predicate,
// scope matching, and amount computation. The amount never exceeds the cart
// subtotal. Pure given the campaign state and cart; lookup by code and usage
// caps are the caller's concern.
func Apply(c *Campaign, cart Cart, today time.Time) (AppliedDiscount, ErrorKind) {
	decision := IsApplicable(c, cart, today)
	if !decision.Applicable {
		return AppliedDiscount{}, decision.Reason
	}

	amount := ComputeDiscount(c, DiscountBase(c, cart))

	// A scoped base can exceed the full subtotal when the cart carries
	// negative-price lines outside the scope.
	if subtotal := cart.Subtotal(); amount.GreaterThan(subtotal) {
		amount = decimal.Max(subtotal, decimal.Zero)
	}

	return AppliedDiscount{
		Code:   strings.ToUpper(c.Code),
		Label:  c.Label(),
		Amount: amount,
	}, ErrorKindNone
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
