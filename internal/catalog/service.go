package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const (
	relatedLimit  = 4
	featuredLimit = 6
)

type repository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error)
	ListProducts(ctx context.Context, q ProductQuery) ([]models.Product, error)
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Related(ctx context.Context, product *models.Product, limit int) ([]models.Product, error)
	NewestInStock(ctx context.Context, limit int) ([]models.Product, error)
}

// ListInput is the browse request as parsed by the controller.
type ListInput struct {
	CategoryID *uuid.UUID
	Search     string
	Pagination pagination.Params
}

// Service exposes the read side of the catalog.
type Service interface {
	Categories(ctx context.Context) ([]CategoryDTO, error)
	Products(ctx context.Context, input ListInput) (pagination.Page[ProductDTO], error)
	Product(ctx context.Context, id uuid.UUID) (*ProductDetailDTO, error)
	Featured(ctx context.Context) ([]ProductDTO, error)
}

type service struct {
	repo repository
}

func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Categories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromCategory(row))
	}
	return out, nil
}

func (s *service) Products(ctx context.Context, input ListInput) (pagination.Page[ProductDTO], error) {
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return pagination.Page[ProductDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if input.CategoryID != nil {
		if _, err := s.repo.FindCategory(ctx, *input.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pagination.Page[ProductDTO]{}, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
			}
			return pagination.Page[ProductDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
		}
	}

	rows, err := s.repo.ListProducts(ctx, ProductQuery{
		CategoryID: input.CategoryID,
		Search:     input.Search,
		Limit:      pagination.LimitWithBuffer(input.Pagination.Limit),
		Cursor:     cursor,
	})
	if err != nil {
		return pagination.Page[ProductDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return pagination.BuildPage(fromProducts(rows), input.Pagination.Limit, func(p ProductDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	}), nil
}

// Product returns the listing with up to four products from the same category.
func (s *service) Product(ctx context.Context, id uuid.UUID) (*ProductDetailDTO, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	related, err := s.repo.Related(ctx, product, relatedLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load related products")
	}
	return &ProductDetailDTO{Product: FromProduct(*product), Related: fromProducts(related)}, nil
}

func (s *service) Featured(ctx context.Context) ([]ProductDTO, error) {
	rows, err := s.repo.NewestInStock(ctx, featuredLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list featured products")
	}
	return fromProducts(rows), nil
}
