package cart

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// LineDTO is one cart line as shown to the shopper.
type LineDTO struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	ImageURL    *string   `json:"image_url,omitempty"`
	Size        string    `json:"size,omitempty"`
	UnitPrice   string    `json:"unit_price"`
	Quantity    int       `json:"quantity"`
	LineTotal   string    `json:"line_total"`
	Stock       int       `json:"stock"`
}

// CartDTO is the cart view with its derived totals.
type CartDTO struct {
	ID         uuid.UUID `json:"id"`
	Items      []LineDTO `json:"items"`
	TotalItems int       `json:"total_items"`
	TotalPrice string    `json:"total_price"`
}

// MutationResult is returned by every cart mutation.
type MutationResult struct {
	CartCount int              `json:"cart_count"`
	Message   string           `json:"message"`
	Level     enums.FlashLevel `json:"-"`
}

// FromModel builds the view from a cart whose items carry their products.
func FromModel(cart *models.Cart) *CartDTO {
	dto := &CartDTO{
		ID:         cart.ID,
		Items:      make([]LineDTO, 0, len(cart.Items)),
		TotalItems: cart.TotalItems(),
		TotalPrice: cart.TotalPrice().StringFixed(2),
	}
	for _, item := range cart.Items {
		line := LineDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal().StringFixed(2),
		}
		if p := item.Product; p != nil {
			line.ProductName = p.Name
			line.ImageURL = p.ImageURL
			line.Size = p.ProductType.SizeLabel(p.Size)
			line.UnitPrice = p.Price.StringFixed(2)
			line.Stock = p.Stock
		}
		dto.Items = append(dto.Items, line)
	}
	return dto
}
