package brokermessage

import (
	"context"
	"errors"
	"testing"

	"canteen-orders/internal/canteen/domain/dto"
	"canteen-orders/internal/xpkg/config"
	"canteen-orders/internal/xpkg/logger"
	"canteen-orders/internal/xpkg/rabbitmq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange, key string
	body          any
}

type recordingClient struct {
	err  error
	sent []published
}

func (c *recordingClient) Publish(_ context.Context, exchange, routingKey string, v any) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, published{exchange, routingKey, v})
	return nil
}

func (c *recordingClient) Close() error { return nil }

func TestPublishOrderPlacedRoutesByCanteenAndPrepType(t *testing.T) {
	client := &recordingClient{}
	r := &RabbitMQ{client: client, mylog: logger.Discard()}

	err := r.PublishOrderPlaced(context.Background(), dto.OrderPlacedMessage{OrderID: 5, CanteenID: 3, PreparationType: "scheduled"})
	require.NoError(t, err)

	require.Len(t, client.sent, 1)
	assert.Equal(t, rabbitmq.OrdersExchange, client.sent[0].exchange)
	assert.Equal(t, "canteen.3.scheduled", client.sent[0].key)
}

func TestPublishStatusUpdateFansOut(t *testing.T) {
	client := &recordingClient{}
	r := &RabbitMQ{client: client, mylog: logger.Discard()}

	require.NoError(t, r.PublishStatusUpdate(context.Background(), dto.StatusUpdateMessage{OrderID: 5, NewStatus: "ready"}))
	require.Len(t, client.sent, 1)
	assert.Equal(t, rabbitmq.NotificationsExchange, client.sent[0].exchange)
	assert.Empty(t, client.sent[0].key)

	client.err = errors.New("channel closed")
	assert.Error(t, r.PublishStatusUpdate(context.Background(), dto.StatusUpdateMessage{OrderID: 6}))
}

func TestNewWithoutBrokerIsNoop(t *testing.T) {
	pub, err := New(context.Background(), config.RabbitMQ{}, logger.Discard())
	require.NoError(t, err)
	assert.IsType(t, Noop{}, pub)
	assert.NoError(t, pub.PublishOrderPlaced(context.Background(), dto.OrderPlacedMessage{}))
}
