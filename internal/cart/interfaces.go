package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// CartRepository is the persistence surface the cart service depends on.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) error
	FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	FindLine(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error)
	FindLineInCart(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error)
	CreateLine(ctx context.Context, item *models.CartItem) error
	IncrementBelowStock(ctx context.Context, itemID uuid.UUID) (bool, error)
	DecrementAboveOne(ctx context.Context, itemID uuid.UUID) (bool, error)
	DeleteLine(ctx context.Context, itemID uuid.UUID) error
	ListLines(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	ClearLines(ctx context.Context, cartID uuid.UUID) error
	TotalItems(ctx context.Context, cartID uuid.UUID) (int, error)
}
