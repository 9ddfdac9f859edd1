package services

import (
	"context"
	"testing"

	"canteen-orders/internal/canteen/app/core"
	"canteen-orders/internal/xpkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	s := seededStore()
	s.setStock(canteenA, pie, 0)
	svc := NewCatalogService(s, logger.Discard())
	ctx := context.Background()

	canteens, err := svc.ListCanteens(ctx)
	require.NoError(t, err)
	assert.Len(t, canteens, 3)

	menu, err := svc.Menu(ctx, canteenA)
	require.NoError(t, err)
	require.Len(t, menu, 2)
	assert.Equal(t, soup, menu[0].ID)
	assert.Equal(t, 10, menu[0].AvailableQuantity)

	empty, err := svc.Menu(ctx, canteenB)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = svc.Menu(ctx, 99)
	require.ErrorIs(t, err, core.ErrNotFound)

	item, err := svc.MenuItem(ctx, canteenA, salad)
	require.NoError(t, err)
	assert.Equal(t, "Olivier", item.Name)
	assert.Equal(t, "3.25", item.Price.StringFixed(2))

	_, err = svc.MenuItem(ctx, canteenB, soup)
	require.ErrorIs(t, err, core.ErrNotFound)
}
