package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type CategoryDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ImageURL    *string   `json:"image_url,omitempty"`
}

// ProductDTO carries display labels next to the raw type and size values.
type ProductDTO struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Price       string            `json:"price"`
	CategoryID  uuid.UUID         `json:"category_id"`
	Category    string            `json:"category,omitempty"`
	ProductType enums.ProductType `json:"product_type"`
	Size        string            `json:"size,omitempty"`
	SizeLabel   string            `json:"size_label,omitempty"`
	Brand       string            `json:"brand,omitempty"`
	Color       string            `json:"color,omitempty"`
	ImageURL    *string           `json:"image_url,omitempty"`
	Stock       int               `json:"stock"`
	InStock     bool              `json:"in_stock"`
	CreatedAt   time.Time         `json:"created_at"`
}

type ProductDetailDTO struct {
	Product ProductDTO   `json:"product"`
	Related []ProductDTO `json:"related"`
}

func FromCategory(c models.Category) CategoryDTO {
	return CategoryDTO{ID: c.ID, Name: c.Name, Description: c.Description, ImageURL: c.ImageURL}
}

func FromProduct(p models.Product) ProductDTO {
	dto := ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		CategoryID:  p.CategoryID,
		ProductType: p.ProductType,
		Size:        p.Size,
		SizeLabel:   p.ProductType.SizeLabel(p.Size),
		Brand:       p.Brand,
		Color:       p.Color,
		ImageURL:    p.ImageURL,
		Stock:       p.Stock,
		InStock:     p.InStock(),
		CreatedAt:   p.CreatedAt,
	}
	if p.Category != nil {
		dto.Category = p.Category.Name
	}
	return dto
}

func fromProducts(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromProduct(row))
	}
	return out
}
