package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type fixture struct {
	conn *gorm.DB
	svc  Service
	user *models.User
	cat  *models.Category
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return fixture{
		conn: conn,
		svc:  svc,
		user: dbtest.MustUser(t, conn, "amina"),
		cat:  dbtest.MustCategory(t, conn, "Shoes"),
	}
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.GetOrCreate(ctx, f.user.ID)
	require.NoError(t, err)
	second, err := f.svc.GetOrCreate(ctx, f.user.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.EqualValues(t, 1, dbtest.Count(t, f.conn, &models.Cart{}))
}

func TestAddProductOutOfStockCreatesNoLine(t *testing.T) {
	f := newFixture(t)
	product := dbtest.MustProduct(t, f.conn, f.cat, "Sold out", "100.00", 0)

	_, err := f.svc.AddProduct(context.Background(), f.user.ID, product.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock), "got %v", err)
	require.Zero(t, dbtest.Count(t, f.conn, &models.CartItem{}))
}

func TestAddProductUnknownProduct(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AddProduct(context.Background(), f.user.ID, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestAddProductIncrementsUpToStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := dbtest.MustProduct(t, f.conn, f.cat, "Derby", "1000.00", 2)

	res, err := f.svc.AddProduct(ctx, f.user.ID, product.ID)
	require.NoError(t, err)
	require.Equal(t, 1, res.CartCount)
	require.Equal(t, "Derby added to cart!", res.Message)

	res, err = f.svc.AddProduct(ctx, f.user.ID, product.ID)
	require.NoError(t, err)
	require.Equal(t, 2, res.CartCount)

	_, err = f.svc.AddProduct(ctx, f.user.ID, product.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock), "got %v", err)
	require.Contains(t, pkgerrors.As(err).Message(), "Only 2 unit(s)")

	require.EqualValues(t, 1, dbtest.Count(t, f.conn, &models.CartItem{}))
	view, err := f.svc.View(ctx, f.user.ID)
	require.NoError(t, err)
	require.Equal(t, 2, view.Items[0].Quantity)
}

func TestTotalsMatchLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := dbtest.MustProduct(t, f.conn, f.cat, "A", "1000.00", 5)
	b := dbtest.MustProduct(t, f.conn, f.cat, "B", "499.99", 1)

	for _, id := range []uuid.UUID{a.ID, a.ID, b.ID} {
		_, err := f.svc.AddProduct(ctx, f.user.ID, id)
		require.NoError(t, err)
	}

	view, err := f.svc.View(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	require.Equal(t, "A", view.Items[0].ProductName, "lines keep insertion order")

	sumQty := 0
	sumPrice := decimal.Zero
	for _, line := range view.Items {
		sumQty += line.Quantity
		sumPrice = sumPrice.Add(decimal.RequireFromString(line.UnitPrice).Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	require.Equal(t, sumQty, view.TotalItems)
	require.Equal(t, 3, view.TotalItems)
	require.Equal(t, sumPrice.StringFixed(2), view.TotalPrice)
	require.Equal(t, "2499.99", view.TotalPrice)

	count, err := f.svc.Count(ctx, f.user.ID)
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestDecreaseReducesThenDeletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := dbtest.MustProduct(t, f.conn, f.cat, "Loafer", "80.00", 5)
	for i := 0; i < 2; i++ {
		_, err := f.svc.AddProduct(ctx, f.user.ID, product.ID)
		require.NoError(t, err)
	}
	view, err := f.svc.View(ctx, f.user.ID)
	require.NoError(t, err)
	itemID := view.Items[0].ID

	res, err := f.svc.Decrease(ctx, f.user.ID, itemID)
	require.NoError(t, err)
	require.Equal(t, 1, res.CartCount)
	require.Equal(t, "Quantity of Loafer decreased.", res.Message)

	res, err = f.svc.Decrease(ctx, f.user.ID, itemID)
	require.NoError(t, err)
	require.Equal(t, 0, res.CartCount)
	require.Equal(t, "Loafer removed from cart!", res.Message)
	require.Zero(t, dbtest.Count(t, f.conn, &models.CartItem{}))
}

func TestRemoveDeletesWholeLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := dbtest.MustProduct(t, f.conn, f.cat, "Boot", "120.00", 5)
	for i := 0; i < 3; i++ {
		_, err := f.svc.AddProduct(ctx, f.user.ID, product.ID)
		require.NoError(t, err)
	}
	view, err := f.svc.View(ctx, f.user.ID)
	require.NoError(t, err)

	res, err := f.svc.Remove(ctx, f.user.ID, view.Items[0].ID)
	require.NoError(t, err)
	require.Zero(t, res.CartCount)
}

func TestLinesAreScopedToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := dbtest.MustProduct(t, f.conn, f.cat, "Sandal", "60.00", 5)
	_, err := f.svc.AddProduct(ctx, f.user.ID, product.ID)
	require.NoError(t, err)
	view, err := f.svc.View(ctx, f.user.ID)
	require.NoError(t, err)

	intruder := dbtest.MustUser(t, f.conn, "karim")
	_, err = f.svc.Remove(ctx, intruder.ID, view.Items[0].ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = f.svc.Decrease(ctx, intruder.ID, view.Items[0].ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	require.EqualValues(t, 1, dbtest.Count(t, f.conn, &models.CartItem{}))
}

func TestIncrementGuardFollowsLiveStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := dbtest.MustProduct(t, f.conn, f.cat, "Mule", "45.00", 3)
	_, err := f.svc.AddProduct(ctx, f.user.ID, product.ID)
	require.NoError(t, err)

	// stock drops behind the shopper's back
	require.NoError(t, f.conn.Model(&models.Product{}).Where("id = ?", product.ID).Update("stock", 1).Error)

	_, err = f.svc.AddProduct(ctx, f.user.ID, product.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock), "got %v", err)
}
