package notify

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/example/storefront/pkg/models"
)

// WhatsAppLink builds a wa.me deep link carrying a pre-formatted order
// summary addressed to the shop owner. The link is the whole contract: it is
// logged/handed out, never posted anywhere.
func WhatsAppLink(ownerNumber string, order *models.Order) (string, error) {
	if ownerNumber == "" {
		return "", fmt.Errorf("whatsapp owner number not configured")
	}

	items, err := order.ItemList()
	if err != nil {
		return "", fmt.Errorf("failed to decode order items: %w", err)
	}

	details := make([]string, 0, len(items))
	for _, item := range items {
		details = append(details, fmt.Sprintf("%s (x%d)", item.Name, item.Quantity))
	}

	parts := []string{
		"*New Order!*",
		fmt.Sprintf("*Payment:* %s", order.PaymentMethod),
		fmt.Sprintf("*Customer:* %s", order.CustomerName),
		fmt.Sprintf("*Phone:* %s", order.Phone),
		fmt.Sprintf("*Product(s):* %s", strings.Join(details, ", ")),
		fmt.Sprintf("*Address:* %s", order.Address),
		fmt.Sprintf("*Total Amount:* ₹%.2f", order.Amount),
	}

	return fmt.Sprintf("https://wa.me/%s?text=%s",
		ownerNumber, url.QueryEscape(strings.Join(parts, "\n"))), nil
}
