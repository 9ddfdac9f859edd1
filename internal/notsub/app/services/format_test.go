package services

import (
	"testing"
	"time"

	"canteen-orders/internal/xpkg/rabbitmq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderStatusUpdate(t *testing.T) {
	line, err := Render(rabbitmq.NotificationsExchange,
		[]byte(`{"order_id":7,"canteen_id":2,"old_status":"paid","new_status":"ready","changed_by":"cook"}`))
	require.NoError(t, err)
	assert.Equal(t, "Notification for order 7 at canteen 2: status changed from 'paid' to 'ready' by cook.", line)
}

func TestRenderOrderPlaced(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	line, err := Render(rabbitmq.OrdersExchange,
		[]byte(`{"order_id":9,"canteen_id":2,"total_price":"14.25","preparation_type":"scheduled","preparation_time":"`+at.Format(time.RFC3339)+`","items":[{"dish_id":1,"quantity":2},{"dish_id":3,"quantity":1}]}`))
	require.NoError(t, err)
	assert.Equal(t, "New order 9 at canteen 2: 2 line(s), total 14.25, prepare for 2024-05-01 12:30.", line)

	line, err = Render(rabbitmq.OrdersExchange, []byte(`{"order_id":10,"canteen_id":2,"total_price":"3.5","items":[]}`))
	require.NoError(t, err)
	assert.Contains(t, line, "total 3.50, prepare as soon as possible")
}

func TestRenderRejectsGarbage(t *testing.T) {
	_, err := Render(rabbitmq.NotificationsExchange, []byte("{"))
	assert.Error(t, err)

	_, err = Render("unknown", []byte("{}"))
	assert.Error(t, err)
}
