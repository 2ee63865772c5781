package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatalogProduct is a purchasable storefront item.
type CatalogProduct struct {
	ID          string          `gorm:"column:id;primaryKey"`
	Name        string          `gorm:"column:name;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Image       string          `gorm:"column:image;not null;default:''"`
	Description string          `gorm:"column:description;not null;default:''"`
	Store       string          `gorm:"column:store;not null"`
	Hidden      bool            `gorm:"column:hidden;not null;default:false"`
	Position    int             `gorm:"column:position;not null;default:0"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (CatalogProduct) TableName() string { return "catalog_products" }
