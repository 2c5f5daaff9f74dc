package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Service manages the single reusable cart of each shopper.
type Service interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddProduct(ctx context.Context, userID, productID uuid.UUID) (*MutationResult, error)
	Decrease(ctx context.Context, userID, itemID uuid.UUID) (*MutationResult, error)
	Remove(ctx context.Context, userID, itemID uuid.UUID) (*MutationResult, error)
	View(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	Count(ctx context.Context, userID uuid.UUID) (int, error)
}

type service struct {
	repo CartRepository
}

func NewService(repo CartRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	return &service{repo: repo}, nil
}

// GetOrCreate returns the user's cart, creating it on first access. A losing
// concurrent insert falls back to reading the winner's row.
func (s *service) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return getOrCreate(ctx, s.repo, userID)
}

func getOrCreate(ctx context.Context, repo CartRepository, userID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	cart = &models.Cart{UserID: userID}
	if err := repo.Create(ctx, cart); err != nil {
		if !db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
		}
		cart, err = repo.FindByUser(ctx, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart")
		}
	}
	return cart, nil
}

// AddProduct puts one more unit of productID in the cart.
func (s *service) AddProduct(ctx context.Context, userID, productID uuid.UUID) (*MutationResult, error) {
	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.InStock() {
		return nil, outOfStock()
	}

	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	line, err := s.repo.FindLine(ctx, cart.ID, product.ID)
	switch {
	case err == nil:
		if err := s.increment(ctx, line, product); err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.createLine(ctx, cart.ID, product); err != nil {
			return nil, err
		}
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
	}

	return s.result(ctx, cart.ID, enums.FlashSuccess, fmt.Sprintf("%s added to cart!", product.Name))
}

func (s *service) increment(ctx context.Context, line *models.CartItem, product *models.Product) error {
	if line.Quantity >= product.Stock {
		return insufficientStock(product)
	}
	ok, err := s.repo.IncrementBelowStock(ctx, line.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment cart line")
	}
	if !ok {
		// stock moved or another request filled the line first
		if fresh, err := s.repo.FindProduct(ctx, product.ID); err == nil {
			product = fresh
		}
		if !product.InStock() {
			return outOfStock()
		}
		return insufficientStock(product)
	}
	return nil
}

func (s *service) createLine(ctx context.Context, cartID uuid.UUID, product *models.Product) error {
	line := &models.CartItem{CartID: cartID, ProductID: product.ID, Quantity: 1}
	err := s.repo.CreateLine(ctx, line)
	if err == nil {
		return nil
	}
	if !db.IsUniqueViolation(err, "ux_cart_items_cart_product") {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart line")
	}
	existing, err := s.repo.FindLine(ctx, cartID, product.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart line")
	}
	return s.increment(ctx, existing, product)
}

// Decrease takes one unit off the line, deleting it when it held a single unit.
func (s *service) Decrease(ctx context.Context, userID, itemID uuid.UUID) (*MutationResult, error) {
	cart, line, err := s.ownedLine(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	name := productName(line)

	ok, err := s.repo.DecrementAboveOne(ctx, line.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement cart line")
	}
	if ok {
		return s.result(ctx, cart.ID, enums.FlashInfo, fmt.Sprintf("Quantity of %s decreased.", name))
	}
	if err := s.repo.DeleteLine(ctx, line.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
	}
	return s.result(ctx, cart.ID, enums.FlashSuccess, fmt.Sprintf("%s removed from cart!", name))
}

// Remove deletes the line whatever its quantity.
func (s *service) Remove(ctx context.Context, userID, itemID uuid.UUID) (*MutationResult, error) {
	cart, line, err := s.ownedLine(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteLine(ctx, line.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
	}
	return s.result(ctx, cart.ID, enums.FlashSuccess, fmt.Sprintf("%s removed from cart!", productName(line)))
}

func (s *service) View(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListLines(ctx, cart.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart lines")
	}
	cart.Items = items
	return FromModel(cart), nil
}

func (s *service) Count(ctx context.Context, userID uuid.UUID) (int, error) {
	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return 0, err
	}
	total, err := s.repo.TotalItems(ctx, cart.ID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count cart items")
	}
	return total, nil
}

func (s *service) ownedLine(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, *models.CartItem, error) {
	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	line, err := s.repo.FindLineInCart(ctx, cart.ID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
	}
	return cart, line, nil
}

func (s *service) result(ctx context.Context, cartID uuid.UUID, level enums.FlashLevel, msg string) (*MutationResult, error) {
	total, err := s.repo.TotalItems(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count cart items")
	}
	return &MutationResult{CartCount: total, Message: msg, Level: level}, nil
}

func productName(line *models.CartItem) string {
	if line.Product == nil {
		return "Item"
	}
	return line.Product.Name
}

func outOfStock() error {
	return pkgerrors.New(pkgerrors.CodeOutOfStock, "Sorry, this product is out of stock.")
}

func insufficientStock(product *models.Product) error {
	return pkgerrors.Newf(pkgerrors.CodeInsufficientStock,
		"Limited stock! Only %d unit(s) of %s left.", product.Stock, product.Name).
		WithDetails(map[string]any{"product_id": product.ID, "available": product.Stock})
}
