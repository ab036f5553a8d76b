package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/supermilas/ordercore/internal/dto"
	catalogrepo "github.com/supermilas/ordercore/internal/repository/catalog"
	"github.com/supermilas/ordercore/pkg/errorbank"
)

type fakeFinder struct {
	snapshots map[string]catalogrepo.VariantSnapshot
	err       error
	calls     int
}

func snapshotKey(productID int64, variantName, branchCode string) string {
	return fmt.Sprintf("%d|%s|%s", productID, variantName, branchCode)
}

func (f *fakeFinder) FindVisibleVariant(_ context.Context, productID int64, variantName, branchCode string) (catalogrepo.VariantSnapshot, error) {
	f.calls++
	if f.err != nil {
		return catalogrepo.VariantSnapshot{}, f.err
	}
	snapshot, ok := f.snapshots[snapshotKey(productID, variantName, branchCode)]
	if !ok {
		return catalogrepo.VariantSnapshot{}, catalogrepo.ErrVariantUnavailable
	}
	return snapshot, nil
}

func newFakeFinder() *fakeFinder {
	return &fakeFinder{snapshots: make(map[string]catalogrepo.VariantSnapshot)}
}

func (f *fakeFinder) add(branchCode string, snapshot catalogrepo.VariantSnapshot) {
	f.snapshots[snapshotKey(snapshot.ProductID, snapshot.VariantName, branchCode)] = snapshot
}

func TestHydrateFreezesSnapshots(t *testing.T) {
	finder := newFakeFinder()
	finder.add("RES", catalogrepo.VariantSnapshot{
		ProductID:    1,
		ProductTitle: "Milanesa común",
		VariantName:  "6 unidades",
		Price:        1500,
	})
	resolver := NewResolver(finder, zap.NewNop())

	items, err := resolver.Hydrate(context.Background(), "RES", []dto.CartLine{
		{ProductID: 1, VariantName: "6 unidades", Quantity: 2, Notes: "sin sal"},
	})
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].ProductID)
	assert.Equal(t, "Milanesa común", items[0].ProductTitle)
	assert.Equal(t, "6 unidades", items[0].VariantName)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 1500.0, items[0].UnitPrice)
	assert.Equal(t, "sin sal", items[0].Notes)
}

func TestHydrateEmptyCart(t *testing.T) {
	resolver := NewResolver(newFakeFinder(), zap.NewNop())

	_, err := resolver.Hydrate(context.Background(), "RES", nil)
	var bankErr *errorbank.AppError
	require.ErrorAs(t, err, &bankErr)
	assert.Equal(t, errorbank.KindBadRequest, bankErr.Kind())
}

func TestHydrateAllOrNothing(t *testing.T) {
	finder := newFakeFinder()
	finder.add("RES", catalogrepo.VariantSnapshot{
		ProductID: 1, ProductTitle: "Milanesa común", VariantName: "6 unidades", Price: 1500,
	})
	resolver := NewResolver(finder, zap.NewNop())

	items, err := resolver.Hydrate(context.Background(), "RES", []dto.CartLine{
		{ProductID: 1, VariantName: "6 unidades", Quantity: 1},
		{ProductID: 99, VariantName: "docena", Quantity: 1},
	})
	require.Error(t, err)
	assert.Nil(t, items)

	var bankErr *errorbank.AppError
	require.ErrorAs(t, err, &bankErr)
	assert.Equal(t, errorbank.KindUnprocessableEntity, bankErr.Kind())
	assert.Equal(t, 1, bankErr.Details()["line"])
	assert.Equal(t, int64(99), bankErr.Details()["product_id"])
}

func TestHydrateRejectsBadQuantityAndMissingVariant(t *testing.T) {
	resolver := NewResolver(newFakeFinder(), zap.NewNop())

	_, err := resolver.Hydrate(context.Background(), "RES", []dto.CartLine{
		{ProductID: 1, VariantName: "6 unidades", Quantity: 0},
	})
	var bankErr *errorbank.AppError
	require.ErrorAs(t, err, &bankErr)
	assert.Equal(t, errorbank.KindUnprocessableEntity, bankErr.Kind())

	_, err = resolver.Hydrate(context.Background(), "RES", []dto.CartLine{
		{ProductID: 1, Quantity: 1},
	})
	require.ErrorAs(t, err, &bankErr)
	assert.Equal(t, errorbank.KindUnprocessableEntity, bankErr.Kind())
}

func TestHydrateBranchScoped(t *testing.T) {
	finder := newFakeFinder()
	finder.add("RES", catalogrepo.VariantSnapshot{
		ProductID: 3, ProductTitle: "Empanadas", VariantName: "docena", Price: 900,
	})
	resolver := NewResolver(finder, zap.NewNop())

	_, err := resolver.Hydrate(context.Background(), "COR1", []dto.CartLine{
		{ProductID: 3, VariantName: "docena", Quantity: 1},
	})
	var bankErr *errorbank.AppError
	require.ErrorAs(t, err, &bankErr)
	assert.Equal(t, errorbank.KindUnprocessableEntity, bankErr.Kind())
}

func TestHydrateDuplicateProductLines(t *testing.T) {
	finder := newFakeFinder()
	finder.add("RES", catalogrepo.VariantSnapshot{
		ProductID: 1, ProductTitle: "Milanesa común", VariantName: "6 unidades", Price: 1500,
	})
	finder.add("RES", catalogrepo.VariantSnapshot{
		ProductID: 1, ProductTitle: "Milanesa común", VariantName: "12 unidades", Price: 2800,
	})
	resolver := NewResolver(finder, zap.NewNop())

	items, err := resolver.Hydrate(context.Background(), "RES", []dto.CartLine{
		{ProductID: 1, VariantName: "6 unidades", Quantity: 1},
		{ProductID: 1, VariantName: "12 unidades", Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 1500.0, items[0].UnitPrice)
	assert.Equal(t, 2800.0, items[1].UnitPrice)
}

func TestHydrateStorageFailure(t *testing.T) {
	finder := newFakeFinder()
	finder.err = errors.New("connection reset")
	resolver := NewResolver(finder, zap.NewNop())

	_, err := resolver.Hydrate(context.Background(), "RES", []dto.CartLine{
		{ProductID: 1, VariantName: "6 unidades", Quantity: 1},
	})
	var bankErr *errorbank.AppError
	require.ErrorAs(t, err, &bankErr)
	assert.Equal(t, errorbank.KindUnavailable, bankErr.Kind())
}
