package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type ItemDTO struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	Quantity    int       `json:"quantity"`
	Price       string    `json:"price"`
	LineTotal   string    `json:"line_total"`
}

type ShippingDTO struct {
	FullName   string  `json:"full_name"`
	Phone      string  `json:"phone"`
	Wilaya     string  `json:"wilaya"`
	Commune    string  `json:"commune"`
	Address    string  `json:"address"`
	PostalCode *string `json:"postal_code,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

// OrderDTO is the order as shown on the success page and in history.
type OrderDTO struct {
	ID          uuid.UUID         `json:"id"`
	OrderNumber string            `json:"order_number"`
	Status      enums.OrderStatus `json:"status"`
	TotalPrice  string            `json:"total_price"`
	TotalItems  int               `json:"total_items"`
	Shipping    *ShippingDTO      `json:"shipping,omitempty"`
	Items       []ItemDTO         `json:"items"`
	CreatedAt   time.Time         `json:"created_at"`
}

func FromModel(order *models.Order) *OrderDTO {
	dto := &OrderDTO{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		TotalPrice:  order.TotalPrice.StringFixed(2),
		Items:       make([]ItemDTO, 0, len(order.Items)),
		CreatedAt:   order.CreatedAt,
	}
	// buy-now orders carry no shipping data
	if order.FullName != "" {
		dto.Shipping = &ShippingDTO{
			FullName:   order.FullName,
			Phone:      order.Phone,
			Wilaya:     order.Wilaya,
			Commune:    order.Commune,
			Address:    order.Address,
			PostalCode: order.PostalCode,
			Notes:      order.Notes,
		}
	}
	for _, item := range order.Items {
		line := ItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price.StringFixed(2),
			LineTotal: item.Price.Mul(decimalQty(item.Quantity)).StringFixed(2),
		}
		if item.Product != nil {
			line.ProductName = item.Product.Name
		}
		dto.TotalItems += item.Quantity
		dto.Items = append(dto.Items, line)
	}
	return dto
}

func FromModels(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
