package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Order is created once per completed checkout or buy-now. TotalPrice is a
// snapshot and is never recomputed from the catalog.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber string            `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number"`
	UserID      uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	TotalPrice  decimal.Decimal   `gorm:"column:total_price;type:numeric(10,2);not null"`
	Status      enums.OrderStatus `gorm:"column:status;not null;default:'new'"`
	FullName    string            `gorm:"column:full_name;not null;default:''"`
	Phone       string            `gorm:"column:phone;not null;default:''"`
	Wilaya      string            `gorm:"column:wilaya;not null;default:''"`
	Commune     string            `gorm:"column:commune;not null;default:''"`
	Address     string            `gorm:"column:address;not null;default:''"`
	PostalCode  *string           `gorm:"column:postal_code"`
	Notes       *string           `gorm:"column:notes"`
	Items       []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// ItemsTotal recomputes the total from the item snapshots.
func (o Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// OrderItem snapshots the product price at order time.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Product   *Product        `gorm:"foreignKey:ProductID"`
	Quantity  int             `gorm:"column:quantity;not null;check:chk_order_items_quantity_positive,quantity >= 1"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
