package pricing

import (
	"testing"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"github.com/stretchr/testify/assert"
)

func testCalculator() *Calculator {
	return NewCalculator(&config.PricingConfig{
		PromoProductID:  "prod_1",
		PromoOverride:   1.00,
		FlatShippingFee: 40.00,
	})
}

func TestTotals_NoPromo(t *testing.T) {
	calc := testCalculator()

	totals := calc.Totals([]models.OrderItem{
		{ProductID: "prod_2", Name: "Bhindi Treat Mini", Price: 55.00, Quantity: 1},
	})

	assert.Equal(t, 55.00, totals.Subtotal)
	assert.Equal(t, 40.00, totals.Shipping)
	assert.Equal(t, 95.00, totals.Total)
}

func TestTotals_MultipleLines(t *testing.T) {
	calc := testCalculator()

	totals := calc.Totals([]models.OrderItem{
		{ProductID: "prod_2", Price: 55.00, Quantity: 2},
		{ProductID: "prod_3", Price: 99.00, Quantity: 1},
	})

	assert.Equal(t, 209.00, totals.Subtotal)
	assert.Equal(t, 40.00, totals.Shipping)
	assert.Equal(t, 249.00, totals.Total)
}

func TestTotals_PromoOverridesLineAndShipping(t *testing.T) {
	calc := testCalculator()

	// Override is flat: quantity 5 at a listed price still contributes 1.00,
	// and shipping drops to the override as well.
	totals := calc.Totals([]models.OrderItem{
		{ProductID: "prod_1", Name: "Jacksnack Alpha", Price: 1.00, Quantity: 5},
	})

	assert.Equal(t, 1.00, totals.Subtotal)
	assert.Equal(t, 1.00, totals.Shipping)
	assert.Equal(t, 2.00, totals.Total)
}

func TestTotals_PromoMixedWithRegularLines(t *testing.T) {
	calc := testCalculator()

	totals := calc.Totals([]models.OrderItem{
		{ProductID: "prod_1", Price: 1.00, Quantity: 3},
		{ProductID: "prod_4", Price: 130.00, Quantity: 2},
	})

	assert.Equal(t, 261.00, totals.Subtotal)
	assert.Equal(t, 1.00, totals.Shipping)
	assert.Equal(t, 262.00, totals.Total)
}

func TestTotals_EmptyCart(t *testing.T) {
	calc := testCalculator()

	totals := calc.Totals(nil)

	assert.Equal(t, 0.00, totals.Subtotal)
	assert.Equal(t, 40.00, totals.Shipping)
	assert.Equal(t, 40.00, totals.Total)
}
