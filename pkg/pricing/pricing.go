package pricing

import (
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
)

// Calculator derives checkout totals from a set of cart lines. It is pure:
// the same lines always produce the same totals.
//
// One catalog id is designated promotional. A promotional line contributes a
// flat override amount to the subtotal regardless of its quantity or listed
// price, and its presence replaces the shipping fee with the same override.
// Every checkout surface must go through this calculator so the rule is
// applied consistently.
type Calculator struct {
	promoProductID  string
	promoOverride   float64
	flatShippingFee float64
}

type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Total    float64 `json:"total"`
}

func NewCalculator(cfg *config.PricingConfig) *Calculator {
	return &Calculator{
		promoProductID:  cfg.PromoProductID,
		promoOverride:   cfg.PromoOverride,
		flatShippingFee: cfg.FlatShippingFee,
	}
}

func (c *Calculator) Totals(items []models.OrderItem) Totals {
	var subtotal float64
	promoPresent := false

	for _, item := range items {
		if item.ProductID == c.promoProductID {
			subtotal += c.promoOverride
			promoPresent = true
			continue
		}
		subtotal += item.Price * float64(item.Quantity)
	}

	shipping := c.flatShippingFee
	if promoPresent {
		shipping = c.promoOverride
	}

	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal + shipping,
	}
}
