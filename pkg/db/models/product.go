package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Product is a catalog listing. Stock is decremented only by checkout and
// buy-now; the table carries CHECK (stock >= 0).
type Product struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Name        string            `gorm:"column:name;not null"`
	Description string            `gorm:"column:description;not null;default:''"`
	Price       decimal.Decimal   `gorm:"column:price;type:numeric(10,2);not null"`
	CategoryID  uuid.UUID         `gorm:"column:category_id;type:uuid;not null;index"`
	Category    *Category         `gorm:"foreignKey:CategoryID"`
	ProductType enums.ProductType `gorm:"column:product_type;not null;default:'shoe'"`
	Size        string            `gorm:"column:size;not null;default:''"`
	Brand       string            `gorm:"column:brand;not null;default:''"`
	Color       string            `gorm:"column:color;not null;default:''"`
	ImageURL    *string           `gorm:"column:image_url"`
	Stock       int               `gorm:"column:stock;not null;default:0;check:chk_products_stock_non_negative,stock >= 0"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// InStock reports whether at least one unit can be sold.
func (p Product) InStock() bool {
	return p.Stock > 0
}
