package stock

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
)

func TestDecrementAppliesConditionalUpdate(t *testing.T) {
	client, conn := dbtest.OpenClient(t)
	cat := dbtest.MustCategory(t, conn, "Shoes")
	a := dbtest.MustProduct(t, conn, cat, "A", "10.00", 5)
	b := dbtest.MustProduct(t, conn, cat, "B", "10.00", 1)

	var results []Result
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		results, err = Decrement(context.Background(), tx, []Request{
			{ProductID: a.ID, Qty: 2},
			{ProductID: b.ID, Qty: 1},
		})
		return err
	})
	require.NoError(t, err)
	require.False(t, results[0].Floored)
	require.False(t, results[1].Floored)
	require.Equal(t, 3, dbtest.ReloadProduct(t, conn, a.ID).Stock)
	require.Equal(t, 0, dbtest.ReloadProduct(t, conn, b.ID).Stock)
}

func TestDecrementFloorsAtZero(t *testing.T) {
	_, conn := dbtest.OpenClient(t)
	cat := dbtest.MustCategory(t, conn, "Shoes")
	p := dbtest.MustProduct(t, conn, cat, "A", "10.00", 1)

	results, err := Decrement(context.Background(), conn, []Request{{ProductID: p.ID, Qty: 3}})
	require.NoError(t, err)
	require.True(t, results[0].Floored)
	require.Equal(t, 0, dbtest.ReloadProduct(t, conn, p.ID).Stock)
}

func TestDecrementRejectsNonPositive(t *testing.T) {
	_, conn := dbtest.OpenClient(t)
	_, err := Decrement(context.Background(), conn, []Request{{ProductID: uuid.New(), Qty: 0}})
	require.Error(t, err)
}

func TestLockReturnsKnownProducts(t *testing.T) {
	_, conn := dbtest.OpenClient(t)
	cat := dbtest.MustCategory(t, conn, "Shoes")
	p := dbtest.MustProduct(t, conn, cat, "A", "10.00", 1)

	got, err := Lock(context.Background(), conn, []uuid.UUID{p.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "A", got[p.ID].Name)
}
