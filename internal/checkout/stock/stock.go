// Package stock reads and decrements product stock inside a checkout
// transaction.
package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Request asks for qty units of a product.
type Request struct {
	ProductID uuid.UUID
	Qty       int
}

// Result reports how a decrement was applied. Floored means the conditional
// update matched nothing and the stock was clamped to zero instead.
type Result struct {
	ProductID uuid.UUID
	Qty       int
	Floored   bool
}

// Lock loads the products and, on Postgres, holds their row locks until the
// transaction ends. Missing ids are absent from the map.
func Lock(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	out := make(map[uuid.UUID]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := db.ForUpdate(tx.WithContext(ctx)).Where("id IN ?", ids).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

// Decrement removes each request's quantity with a conditional update so stock
// can never go below zero.
func Decrement(ctx context.Context, tx *gorm.DB, requests []Request) ([]Result, error) {
	results := make([]Result, 0, len(requests))
	for _, req := range requests {
		if req.Qty <= 0 {
			return nil, fmt.Errorf("invalid quantity %d for product %s", req.Qty, req.ProductID)
		}
		res := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ? AND stock >= ?", req.ProductID, req.Qty).
			UpdateColumn("stock", gorm.Expr("stock - ?", req.Qty))
		if res.Error != nil {
			return nil, fmt.Errorf("decrement stock: %w", res.Error)
		}
		result := Result{ProductID: req.ProductID, Qty: req.Qty}
		if res.RowsAffected == 0 {
			if err := tx.WithContext(ctx).
				Model(&models.Product{}).
				Where("id = ?", req.ProductID).
				UpdateColumn("stock", 0).Error; err != nil {
				return nil, fmt.Errorf("floor stock: %w", err)
			}
			result.Floored = true
		}
		results = append(results, result)
	}
	return results, nil
}
