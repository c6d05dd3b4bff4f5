package models

// Product is an immutable catalog entry. Quantity lives on the cart line,
// never on the product itself.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	ImageURL    string  `json:"image_url"`
	Price       float64 `json:"price"`
	Description string  `json:"description,omitempty"`
}
