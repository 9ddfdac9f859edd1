package core

import (
	"context"

	"canteen-orders/internal/canteen/domain/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type IDB interface {
	Close() error
	IsAlive(ctx context.Context) error
	GetPool() *pgxpool.Pool
}

type ICatalogRepo interface {
	ListCanteens(ctx context.Context) ([]models.Canteen, error)
	Canteen(ctx context.Context, canteenID int64) (models.Canteen, error)
	// Menu lists dishes with stock above zero.
	Menu(ctx context.Context, canteenID int64) ([]models.MenuItem, error)
	MenuItem(ctx context.Context, canteenID, dishID int64) (models.MenuItem, error)
}

type IOrderRepo interface {
	// WithinTx runs fn in one transaction; any error from fn rolls it back.
	WithinTx(ctx context.Context, fn func(tx IOrderTx) error) error

	PendingOrders(ctx context.Context, canteenID int64) ([]models.Order, error)
	OrderByID(ctx context.Context, orderID int64) (models.Order, error)
	OrdersByUser(ctx context.Context, userID int64) ([]models.Order, error)
}

// IOrderTx is the set of statements allowed inside an order transaction.
type IOrderTx interface {
	// CanteenForShare reads the canteen and holds it against concurrent edits.
	CanteenForShare(ctx context.Context, canteenID int64) (models.Canteen, error)
	// LockStock locks the stock rows of dishIDs in dish id order.
	// Dishes without a stock record are absent from the result.
	LockStock(ctx context.Context, canteenID int64, dishIDs []int64) ([]models.StockLine, error)
	DecrementStock(ctx context.Context, canteenID, dishID int64, quantity int) error

	InsertOrder(ctx context.Context, order *models.Order) error
	InsertOrderItems(ctx context.Context, orderID int64, items []models.OrderItem) error

	LockOrder(ctx context.Context, orderID int64) (models.Order, error)
	SetStatus(ctx context.Context, orderID int64, status models.Status) error
	AppendStatusLog(ctx context.Context, orderID int64, entry models.StatusLog) error
}

type IUserRepo interface {
	Create(ctx context.Context, user *models.User) error
	ByID(ctx context.Context, userID int64) (models.User, error)
	ByUsername(ctx context.Context, username string) (models.User, error)
	UpdateNames(ctx context.Context, userID int64, firstName, lastName *string) (models.User, error)
}
