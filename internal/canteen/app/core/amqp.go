package core

import (
	"context"

	"canteen-orders/internal/canteen/domain/dto"
)

type IPublisher interface {
	Close() error
	PublishOrderPlaced(ctx context.Context, msg dto.OrderPlacedMessage) error
	PublishStatusUpdate(ctx context.Context, msg dto.StatusUpdateMessage) error
}
