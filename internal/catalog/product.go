package catalog

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopnearby-backend/pkg/db/models"
)

// Product is a purchasable item as seen by the cart and the storefront.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
	Store       string          `json:"store"`
	Hidden      bool            `json:"hidden,omitempty"`
}

// Matches reports whether the lowercase query appears in the name, store or description.
func (p Product) Matches(query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	for _, field := range []string{p.Name, p.Store, p.Description} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

func fromModel(m models.CatalogProduct) Product {
	return Product{
		ID:          m.ID,
		Name:        m.Name,
		Price:       m.Price,
		Image:       m.Image,
		Description: m.Description,
		Store:       m.Store,
		Hidden:      m.Hidden,
	}
}
