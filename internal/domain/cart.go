package domain

import "github.com/shopspring/decimal"

// CartItem is one line in a checkout cart snapshot.
type CartItem struct {
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	ProductID  string          `json:"product_id,omitempty"`
	CategoryID string          `json:"category_id,omitempty"`
}

// LineTotal returns quantity × unit price for the item.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is an ephemeral snapshot of a checkout cart, constructed per
// validation attempt.
type Cart struct {
	Items []CartItem `json:"items"`
}

// Subtotal recomputes the cart total from its line items. Any subtotal sent
// by the caller is ignored to prevent tampering.
func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}
