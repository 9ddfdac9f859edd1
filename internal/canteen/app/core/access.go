package core

import (
	"context"

	"canteen-orders/internal/canteen/domain/models"
)

type Operation string

const (
	OpPlaceOrder        Operation = "place_order"
	OpViewProfile       Operation = "view_profile"
	OpViewQueue         Operation = "view_queue"
	OpUpdateOrderStatus Operation = "update_order_status"
)

// Principal is the caller resolved from a request credential.
type Principal struct {
	UserID    int64
	Username  string
	Role      models.Role
	CanteenID *int64
}

// Capabilities returns the operations a role with an optional assigned
// canteen may perform.
func Capabilities(role models.Role, canteenID *int64) map[Operation]bool {
	caps := map[Operation]bool{}
	switch role {
	case models.RoleStudent, models.RoleWorker, models.RoleAdmin:
		caps[OpPlaceOrder] = true
		caps[OpViewProfile] = true
	default:
		return caps
	}

	if role == models.RoleWorker && canteenID != nil {
		caps[OpViewQueue] = true
		caps[OpUpdateOrderStatus] = true
	}
	return caps
}

func (p Principal) Can(op Operation) bool {
	return Capabilities(p.Role, p.CanteenID)[op]
}

// WorksAt reports whether the principal is staff of the given canteen.
func (p Principal) WorksAt(canteenID int64) bool {
	return p.Role == models.RoleWorker && p.CanteenID != nil && *p.CanteenID == canteenID
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
