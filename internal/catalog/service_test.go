package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc, conn
}

// seedAt creates a product whose created_at is base plus offset minutes.
func seedAt(t *testing.T, conn *gorm.DB, cat *models.Category, name string, stock, offset int) *models.Product {
	t.Helper()
	p := dbtest.MustProduct(t, conn, cat, name, "100.00", stock)
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(offset) * time.Minute)
	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", p.ID).Update("created_at", at).Error)
	p.CreatedAt = at
	return p
}

func TestProductsFilterAndSearch(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	shoes := dbtest.MustCategory(t, conn, "Shoes")
	bags := dbtest.MustCategory(t, conn, "Bags")
	seedAt(t, conn, shoes, "Oxford Classic", 3, 1)
	seedAt(t, conn, shoes, "Running Sneaker", 3, 2)
	seedAt(t, conn, bags, "Leather Tote", 3, 3)

	page, err := svc.Products(ctx, ListInput{CategoryID: &shoes.ID})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, "Running Sneaker", page.Items[0].Name)
	require.Equal(t, "Shoes", page.Items[0].Category)

	page, err = svc.Products(ctx, ListInput{Search: "oxFORD"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	// brand is searchable too
	page, err = svc.Products(ctx, ListInput{Search: "maison"})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
}

func TestProductsUnknownCategory(t *testing.T) {
	svc, _ := newTestService(t)
	missing := uuid.New()
	_, err := svc.Products(context.Background(), ListInput{CategoryID: &missing})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestProductsCursorPagination(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	cat := dbtest.MustCategory(t, conn, "Shoes")
	for i := 0; i < 5; i++ {
		seedAt(t, conn, cat, "P"+string(rune('A'+i)), 1, i)
	}

	first, err := svc.Products(ctx, ListInput{Pagination: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.Equal(t, "PE", first.Items[0].Name)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.Products(ctx, ListInput{Pagination: pagination.Params{Limit: 2, Cursor: first.NextCursor}})
	require.NoError(t, err)
	require.Equal(t, []string{"PC", "PB"}, names(second.Items))

	third, err := svc.Products(ctx, ListInput{Pagination: pagination.Params{Limit: 2, Cursor: second.NextCursor}})
	require.NoError(t, err)
	require.Equal(t, []string{"PA"}, names(third.Items))
	require.Empty(t, third.NextCursor)

	_, err = svc.Products(ctx, ListInput{Pagination: pagination.Params{Cursor: "%%%"}})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestProductDetailWithRelated(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	shoes := dbtest.MustCategory(t, conn, "Shoes")
	bags := dbtest.MustCategory(t, conn, "Bags")
	anchor := seedAt(t, conn, shoes, "Main", 2, 0)
	for i := 1; i <= 5; i++ {
		seedAt(t, conn, shoes, "Sibling", 2, i)
	}
	seedAt(t, conn, bags, "Other", 2, 9)

	detail, err := svc.Product(ctx, anchor.ID)
	require.NoError(t, err)
	require.Equal(t, "Main", detail.Product.Name)
	require.Equal(t, "40", detail.Product.SizeLabel)
	require.Len(t, detail.Related, 4)
	for _, r := range detail.Related {
		require.NotEqual(t, anchor.ID, r.ID)
		require.Equal(t, shoes.ID, r.CategoryID)
	}

	_, err = svc.Product(ctx, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestFeaturedSkipsSoldOut(t *testing.T) {
	svc, conn := newTestService(t)
	cat := dbtest.MustCategory(t, conn, "Shoes")
	for i := 0; i < 7; i++ {
		seedAt(t, conn, cat, "In", 1, i)
	}
	seedAt(t, conn, cat, "Gone", 0, 100)

	featured, err := svc.Featured(context.Background())
	require.NoError(t, err)
	require.Len(t, featured, 6)
	for _, p := range featured {
		require.True(t, p.InStock)
	}
}

func TestCategoriesSortedByName(t *testing.T) {
	svc, conn := newTestService(t)
	dbtest.MustCategory(t, conn, "Sacs")
	dbtest.MustCategory(t, conn, "Bijoux")

	got, err := svc.Categories(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bijoux", got[0].Name)
}

func names(items []ProductDTO) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Name)
	}
	return out
}
