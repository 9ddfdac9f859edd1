package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"canteen-orders/internal/canteen/app/core"
	"canteen-orders/internal/canteen/domain/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const orderColumns = `id, user_id, canteen_id, status, created_at, total_price, preparation_type, preparation_time`

type OrderRepo struct {
	db          core.IDB
	lockTimeout time.Duration
}

func NewOrderRepo(db core.IDB, lockTimeout time.Duration) *OrderRepo {
	return &OrderRepo{
		db:          db,
		lockTimeout: lockTimeout,
	}
}

func (or *OrderRepo) WithinTx(ctx context.Context, fn func(tx core.IOrderTx) error) error {
	tx, err := or.db.GetPool().BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return translate(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback(ctx) // no-op after commit

	if or.lockTimeout > 0 {
		// SET does not accept bind parameters
		q := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", or.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, q); err != nil {
			return translate(fmt.Errorf("failed to set lock timeout: %w", err))
		}
	}

	if err := fn(&orderTx{tx: tx}); err != nil {
		return translate(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return translate(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

func (or *OrderRepo) PendingOrders(ctx context.Context, canteenID int64) ([]models.Order, error) {
	q := `SELECT ` + orderColumns + `
		FROM orders
		WHERE canteen_id = $1 AND status IN ('new', 'paid')
		ORDER BY id`
	return listOrders(ctx, or.db.GetPool(), q, canteenID)
}

func (or *OrderRepo) OrdersByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	q := `SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`
	return listOrders(ctx, or.db.GetPool(), q, userID)
}

// OrderByID loads the order with its items and status history.
func (or *OrderRepo) OrderByID(ctx context.Context, orderID int64) (models.Order, error) {
	pool := or.db.GetPool()

	order, err := scanOrder(pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Order{}, fmt.Errorf("%w: order %d", core.ErrNotFound, orderID)
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to load order: %w", err)
	}

	if order.Items, err = loadItems(ctx, pool, orderID); err != nil {
		return models.Order{}, err
	}

	rows, err := pool.Query(ctx, `
		SELECT status, changed_by, changed_at, note
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at, id`, orderID)
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to load status history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry models.StatusLog
		if err := rows.Scan(&entry.Status, &entry.ChangedBy, &entry.ChangedAt, &entry.Note); err != nil {
			return models.Order{}, fmt.Errorf("failed to scan status history: %w", err)
		}
		order.History = append(order.History, entry)
	}
	if err := rows.Err(); err != nil {
		return models.Order{}, fmt.Errorf("failed to read status history: %w", err)
	}
	return order, nil
}

func scanOrder(row pgx.Row) (models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.UserID, &o.CanteenID, &o.Status, &o.CreatedAt, &o.TotalPrice, &o.PreparationType, &o.PreparationTime)
	return o, err
}

func listOrders(ctx context.Context, q querier, sql string, arg int64) ([]models.Order, error) {
	rows, err := q.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	index := map[int64]int{}
	ids := []int64{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		index[o.ID] = len(orders)
		ids = append(ids, o.ID)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return orders, nil
	}

	itemRows, err := q.Query(ctx, `
		SELECT id, order_id, dish_id, quantity, unit_price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var it models.OrderItem
		if err := itemRows.Scan(&it.ID, &it.OrderID, &it.DishID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		o := &orders[index[it.OrderID]]
		o.Items = append(o.Items, it)
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read order items: %w", err)
	}
	return orders, nil
}

func loadItems(ctx context.Context, q querier, orderID int64) ([]models.OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, dish_id, quantity, unit_price
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.DishID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read order items: %w", err)
	}
	return items, nil
}

// orderTx implements core.IOrderTx on a pgx transaction.
type orderTx struct {
	tx pgx.Tx
}

func (t *orderTx) CanteenForShare(ctx context.Context, canteenID int64) (models.Canteen, error) {
	var c models.Canteen
	err := t.tx.QueryRow(ctx, `
		SELECT id, name, address, is_open
		FROM canteens
		WHERE id = $1
		FOR SHARE`, canteenID).Scan(&c.ID, &c.Name, &c.Address, &c.IsOpen)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Canteen{}, fmt.Errorf("%w: canteen %d", core.ErrNotFound, canteenID)
	}
	if err != nil {
		return models.Canteen{}, fmt.Errorf("failed to load canteen: %w", err)
	}
	return c, nil
}

func (t *orderTx) LockStock(ctx context.Context, canteenID int64, dishIDs []int64) ([]models.StockLine, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT cd.dish_id, d.name, d.price, cd.quantity
		FROM canteen_dishes cd
		JOIN dishes d ON d.id = cd.dish_id
		WHERE cd.canteen_id = $1 AND cd.dish_id = ANY($2)
		ORDER BY cd.dish_id
		FOR UPDATE OF cd`, canteenID, dishIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to lock stock: %w", err)
	}
	defer rows.Close()

	var lines []models.StockLine
	for rows.Next() {
		var l models.StockLine
		if err := rows.Scan(&l.DishID, &l.DishName, &l.Price, &l.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to lock stock: %w", err)
	}
	return lines, nil
}

func (t *orderTx) DecrementStock(ctx context.Context, canteenID, dishID int64, quantity int) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE canteen_dishes
		SET quantity = quantity - $3
		WHERE canteen_id = $1 AND dish_id = $2 AND quantity >= $3`, canteenID, dishID, quantity)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: dish %d at canteen %d", core.ErrInsufficientStock, dishID, canteenID)
	}
	return nil
}

func (t *orderTx) InsertOrder(ctx context.Context, order *models.Order) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders (
			user_id,
			canteen_id,
			status,
			created_at,
			total_price,
			preparation_type,
			preparation_time
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		order.UserID,
		order.CanteenID,
		order.Status,
		order.CreatedAt,
		order.TotalPrice,
		order.PreparationType,
		order.PreparationTime,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (t *orderTx) InsertOrderItems(ctx context.Context, orderID int64, items []models.OrderItem) error {
	batch := &pgx.Batch{}
	for i := range items {
		item := &items[i]
		item.OrderID = orderID
		batch.Queue(`
			INSERT INTO order_items (order_id, dish_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			orderID, item.DishID, item.Quantity, item.UnitPrice,
		).QueryRow(func(row pgx.Row) error {
			return row.Scan(&item.ID)
		})
	}

	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert order items: %w", err)
	}
	return nil
}

func (t *orderTx) LockOrder(ctx context.Context, orderID int64) (models.Order, error) {
	order, err := scanOrder(t.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Order{}, fmt.Errorf("%w: order %d", core.ErrNotFound, orderID)
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to lock order: %w", err)
	}

	if order.Items, err = loadItems(ctx, t.tx, orderID); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (t *orderTx) SetStatus(ctx context.Context, orderID int64, status models.Status) error {
	if _, err := t.tx.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, orderID, status); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return nil
}

func (t *orderTx) AppendStatusLog(ctx context.Context, orderID int64, entry models.StatusLog) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO order_status_log (
			order_id,
			status,
			changed_by,
			changed_at,
			note
		)
		VALUES ($1, $2, $3, $4, $5)`,
		orderID, entry.Status, entry.ChangedBy, entry.ChangedAt, entry.Note)
	if err != nil {
		return fmt.Errorf("failed to insert order status log: %w", err)
	}
	return nil
}
