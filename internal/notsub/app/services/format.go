package services

import (
	"encoding/json"
	"fmt"

	"canteen-orders/internal/canteen/domain/dto"
	"canteen-orders/internal/xpkg/rabbitmq"
)

// Render turns a delivery body from the given exchange into one notification line.
func Render(exchange string, body []byte) (string, error) {
	switch exchange {
	case rabbitmq.NotificationsExchange:
		var msg dto.StatusUpdateMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return "", fmt.Errorf("unmarshal status update: %w", err)
		}
		return fmt.Sprintf("Notification for order %d at canteen %d: status changed from '%s' to '%s' by %s.",
			msg.OrderID, msg.CanteenID, msg.OldStatus, msg.NewStatus, msg.ChangedBy), nil

	case rabbitmq.OrdersExchange:
		var msg dto.OrderPlacedMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return "", fmt.Errorf("unmarshal placed order: %w", err)
		}
		when := "as soon as possible"
		if msg.PreparationTime != nil {
			when = "for " + msg.PreparationTime.Format("2006-01-02 15:04")
		}
		return fmt.Sprintf("New order %d at canteen %d: %d line(s), total %s, prepare %s.",
			msg.OrderID, msg.CanteenID, len(msg.Items), msg.TotalPrice.StringFixed(2), when), nil

	default:
		return "", fmt.Errorf("unexpected exchange %q", exchange)
	}
}
