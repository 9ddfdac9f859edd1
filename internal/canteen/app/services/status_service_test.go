package services

import (
	"context"
	"testing"

	"canteen-orders/internal/canteen/app/core"
	"canteen-orders/internal/canteen/domain/dto"
	"canteen-orders/internal/canteen/domain/models"
	"canteen-orders/internal/xpkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staffOf(canteenID int64) core.Principal {
	return core.Principal{UserID: 500, Username: "cook", Role: models.RoleWorker, CanteenID: &canteenID}
}

func placedOrder(t *testing.T, s *memStore) models.Order {
	t.Helper()
	order, err := newTestOrderService(s, &fakePublisher{}, 10).PlaceOrder(context.Background(), student,
		dto.PlaceOrderRequest{CanteenID: canteenA, Items: items(line(soup, 1))})
	require.NoError(t, err)
	return order
}

func TestUpdateStatusRejectsTargets(t *testing.T) {
	s := seededStore()
	order := placedOrder(t, s)

	callers := map[string]core.Principal{
		"own staff":     staffOf(canteenA),
		"foreign staff": staffOf(canteenB),
		"student":       student,
	}
	for name, caller := range callers {
		for _, target := range []string{"new", "paid", "", "cooking"} {
			t.Run(name+"/"+target, func(t *testing.T) {
				svc := NewStatusService(s, &fakePublisher{}, logger.Discard())
				_, err := svc.UpdateStatus(context.Background(), caller, order.ID, target)
				require.ErrorIs(t, err, core.ErrValidation)
			})
		}
	}

	got, err := s.OrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, got.Status)
}

func TestUpdateStatusOwnership(t *testing.T) {
	s := seededStore()
	order := placedOrder(t, s)
	svc := NewStatusService(s, &fakePublisher{}, logger.Discard())

	_, err := svc.UpdateStatus(context.Background(), staffOf(canteenB), order.ID, "ready")
	require.ErrorIs(t, err, core.ErrForbidden)

	_, err = svc.UpdateStatus(context.Background(), staffOf(canteenA), 404, "ready")
	require.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.UpdateStatus(context.Background(), core.Principal{UserID: 1, Role: models.RoleWorker}, order.ID, "ready")
	require.ErrorIs(t, err, core.ErrForbidden)

	got, err := s.OrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, got.Status)
	assert.Len(t, got.History, 2)
}

func TestUpdateStatus(t *testing.T) {
	s := seededStore()
	order := placedOrder(t, s)
	pub := &fakePublisher{}
	svc := NewStatusService(s, pub, logger.Discard())
	stockBefore := s.quantity(canteenA, soup)

	updated, err := svc.UpdateStatus(context.Background(), staffOf(canteenA), order.ID, "ready")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, updated.Status)
	assert.True(t, updated.TotalPrice.Equal(order.TotalPrice))

	// closed then ready again is allowed
	_, err = svc.UpdateStatus(context.Background(), staffOf(canteenA), order.ID, "closed")
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), staffOf(canteenA), order.ID, "ready")
	require.NoError(t, err)

	got, err := s.OrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, got.Status)
	require.Len(t, got.History, 5)
	assert.Equal(t, "cook", got.History[2].ChangedBy)
	assert.Equal(t, stockBefore, s.quantity(canteenA, soup))

	require.Len(t, pub.updates, 3)
	assert.Equal(t, "paid", pub.updates[0].OldStatus)
	assert.Equal(t, "ready", pub.updates[0].NewStatus)
	assert.Equal(t, "closed", pub.updates[2].OldStatus)
}
