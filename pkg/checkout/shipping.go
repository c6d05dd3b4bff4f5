package checkout

import (
	"fmt"
	"strings"
)

// ShippingInfo is transient checkout input. It is validated here, merged into
// the order at assembly time, and never persisted as its own entity.
type ShippingInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address   string `json:"address"`
	Apartment string `json:"apartment,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Phone     string `json:"phone"`
	Country   string `json:"country"`
}

// Validate enforces the required fields. Apartment, state and country are
// optional.
func (s ShippingInfo) Validate() error {
	required := []struct {
		value string
		name  string
	}{
		{s.FirstName, "first name"},
		{s.LastName, "last name"},
		{s.Address, "address"},
		{s.City, "city"},
		{s.Zip, "PIN code"},
		{s.Phone, "phone number"},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrValidation, f.name)
		}
	}
	return nil
}

// FullName joins the name parts for the order record.
func (s ShippingInfo) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// FullAddress flattens the address fields into one string, dropping empty
// optional parts.
func (s ShippingInfo) FullAddress() string {
	parts := []string{s.Address, s.Apartment, s.City, s.State, s.Zip, s.Country}
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
