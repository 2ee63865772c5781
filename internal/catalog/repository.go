package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/shopnearby-backend/pkg/db/models"
)

// Repository reads catalog products from the database.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns products in display order.
func (r *Repository) List(ctx context.Context, includeHidden bool) ([]models.CatalogProduct, error) {
	var rows []models.CatalogProduct
	q := r.db.WithContext(ctx).Order("position ASC").Order("id ASC")
	if !includeHidden {
		q = q.Where("hidden = ?", false)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID loads a single product. gorm.ErrRecordNotFound is returned for unknown ids.
func (r *Repository) FindByID(ctx context.Context, id string) (*models.CatalogProduct, error) {
	var row models.CatalogProduct
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
