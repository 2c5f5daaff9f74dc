package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

func mustOrder(t *testing.T, conn *gorm.DB, user *models.User, product *models.Product, number string, at time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNumber: number,
		UserID:      user.ID,
		TotalPrice:  product.Price.Mul(decimal.NewFromInt(2)),
		FullName:    "Amina B",
		Phone:       "0555123456",
		Wilaya:      "Alger",
		Commune:     "Hydra",
		Address:     "1 rue Didouche",
		CreatedAt:   at,
		Items:       []models.OrderItem{{ProductID: product.ID, Quantity: 2, Price: product.Price}},
	}
	require.NoError(t, NewRepository(conn).Create(context.Background(), order))
	return order
}

func TestGetIsOwnerScoped(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	owner := dbtest.MustUser(t, conn, "owner")
	other := dbtest.MustUser(t, conn, "other")
	cat := dbtest.MustCategory(t, conn, "Shoes")
	product := dbtest.MustProduct(t, conn, cat, "Derby", "1000.00", 3)
	mustOrder(t, conn, owner, product, "CMD0000ABCD", time.Now().UTC())

	got, err := svc.Get(context.Background(), owner.ID, "CMD0000ABCD")
	require.NoError(t, err)
	require.Equal(t, "2000.00", got.TotalPrice)
	require.Equal(t, 2, got.TotalItems)
	require.Equal(t, "Derby", got.Items[0].ProductName)
	require.NotNil(t, got.Shipping)

	_, err = svc.Get(context.Background(), other.ID, "CMD0000ABCD")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestOrderNumberUniqueIndex(t *testing.T) {
	conn := dbtest.Open(t)
	user := dbtest.MustUser(t, conn, "dup")
	cat := dbtest.MustCategory(t, conn, "Shoes")
	product := dbtest.MustProduct(t, conn, cat, "Derby", "10.00", 3)
	mustOrder(t, conn, user, product, "CMD11111111", time.Now().UTC())

	err := NewRepository(conn).Create(context.Background(), &models.Order{
		OrderNumber: "CMD11111111",
		UserID:      user.ID,
		TotalPrice:  decimal.NewFromInt(10),
	})
	require.True(t, db.IsUniqueViolation(err, "ux_orders_order_number"))

	exists, err := NewRepository(conn).NumberExists(context.Background(), "CMD11111111")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	user := dbtest.MustUser(t, conn, "history")
	cat := dbtest.MustCategory(t, conn, "Shoes")
	product := dbtest.MustProduct(t, conn, cat, "Derby", "10.00", 3)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		mustOrder(t, conn, user, product, fmt.Sprintf("CMD0000000%d", i), base.Add(time.Duration(i)*time.Hour))
	}

	page, err := svc.List(context.Background(), user.ID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, "CMD00000002", page.Items[0].OrderNumber)
	require.NotEmpty(t, page.NextCursor)

	next, err := svc.List(context.Background(), user.ID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	require.Equal(t, "CMD00000000", next.Items[0].OrderNumber)

	recent, err := svc.Recent(context.Background(), user.ID, 5)
	require.NoError(t, err)
	require.Len(t, recent, 3)
}
