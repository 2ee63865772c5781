package orders

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/shopnearby-backend/pkg/db/models"
)

// Repository persists placed orders and their lines.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts the order together with its lines.
func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *Repository) FindByCheckoutID(ctx context.Context, checkoutID string) (*models.Order, error) {
	return r.findOne(ctx, "checkout_id = ?", checkoutID)
}

func (r *Repository) FindByNumber(ctx context.Context, number string) (*models.Order, error) {
	return r.findOne(ctx, "number = ?", number)
}

// ListBySession returns a session's orders, newest first.
func (r *Repository) ListBySession(ctx context.Context, sessionID string) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines", linesInOrder).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) findOne(ctx context.Context, query string, arg any) (*models.Order, error) {
	var row models.Order
	if err := r.db.WithContext(ctx).Preload("Lines", linesInOrder).Where(query, arg).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func linesInOrder(tx *gorm.DB) *gorm.DB {
	return tx.Order("position ASC")
}
