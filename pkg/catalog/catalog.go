package catalog

import (
	"errors"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
)

var ErrProductNotFound = errors.New("product not found")

// Catalog is the immutable product source, seeded from configuration at
// startup. Listing order follows the configured order.
type Catalog struct {
	products []models.Product
	byID     map[string]models.Product
}

func New(cfg *config.CatalogConfig) *Catalog {
	c := &Catalog{
		products: make([]models.Product, 0, len(cfg.Products)),
		byID:     make(map[string]models.Product, len(cfg.Products)),
	}
	for _, p := range cfg.Products {
		product := models.Product{
			ID:          p.ID,
			Name:        p.Name,
			ImageURL:    p.ImageURL,
			Price:       p.Price,
			Description: p.Description,
		}
		c.products = append(c.products, product)
		c.byID[p.ID] = product
	}
	return c
}

func (c *Catalog) List() []models.Product {
	out := make([]models.Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Catalog) Get(id string) (models.Product, error) {
	p, ok := c.byID[id]
	if !ok {
		return models.Product{}, ErrProductNotFound
	}
	return p, nil
}
