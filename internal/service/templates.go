package service

import (
	"github.com/shopspring/decimal"

	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/domain"
)

// CampaignTemplate is a pre-filled campaign configuration the admin dashboard
// offers as a starting point. Templates are static; the merchant edits the
// values before saving.
type CampaignTemplate struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	DiscountType  string          `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	ApplyScope    string          `json:"apply_scope"`
	SuggestedCode string          `json:"suggested_code"`
}

// CampaignTemplates returns the built-in campaign templates.
func CampaignTemplates() []CampaignTemplate {
	return []CampaignTemplate{
		{
			ID:            "welcome-10",
			Name:          "Bienvenida",
			Description:   "10% de descuento para nuevos clientes",
			DiscountType:  domain.DiscountTypePercent,
			DiscountValue: decimal.NewFromInt(10),
			ApplyScope:    domain.ScopeAll,
			SuggestedCode: "BIENVENIDA10",
		},
		{
			ID:            "season-sale-20",
			Name:          "Liquidación de temporada",
			Description:   "20% de descuento en categorías seleccionadas",
			DiscountType:  domain.DiscountTypePercent,
			DiscountValue: decimal.NewFromInt(20),
			ApplyScope:    domain.ScopeCategories,
			SuggestedCode: "TEMPORADA20",
		},
		{
			ID:            "fixed-500",
			Name:          "Descuento fijo",
			Description:   "Monto fijo de descuento sobre el total del carrito",
			DiscountType:  domain.DiscountTypeAbsolute,
			DiscountValue: decimal.NewFromInt(500),
			ApplyScope:    domain.ScopeAll,
			SuggestedCode: "MERCI500",
		},
		{
			ID:            "featured-products-15",
			Name:          "Productos destacados",
			Description:   "15% de descuento en productos seleccionados",
			DiscountType:  domain.DiscountTypePercent,
			DiscountValue: decimal.NewFromInt(15),
			ApplyScope:    domain.ScopeProducts,
			SuggestedCode: "DESTACADOS15",
		},
	}
}
