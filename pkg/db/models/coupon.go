package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopnearby-backend/pkg/enums"
)

// Coupon stores a discount rule keyed by its uppercase code.
type Coupon struct {
	Code        string              `gorm:"column:code;primaryKey"`
	Kind        enums.CouponKind    `gorm:"column:kind;not null"`
	Value       decimal.Decimal     `gorm:"column:value;type:numeric(12,2);not null;default:0"`
	MinSubtotal decimal.NullDecimal `gorm:"column:min_subtotal;type:numeric(12,2)"`
	MaxUses     *int                `gorm:"column:max_uses"`
	UsedCount   int                 `gorm:"column:used_count;not null;default:0"`
	ExpiresAt   *time.Time          `gorm:"column:expires_at"`
	Status      enums.CouponStatus  `gorm:"column:status;not null;default:'active'"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Coupon) TableName() string { return "coupons" }
