package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopnearby-backend/internal/catalog"
)

// Line is one product in the cart with a denormalized copy of its display fields.
type Line struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Store     string          `json:"store"`
	Quantity  int             `json:"quantity"`
}

// Total is price times quantity.
func (l Line) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func lineFromProduct(p catalog.Product, qty int) Line {
	return Line{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Image:     p.Image,
		Store:     p.Store,
		Quantity:  qty,
	}
}
