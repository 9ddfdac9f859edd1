package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"canteen-orders/internal/canteen/app/core"
	"canteen-orders/internal/canteen/domain/dto"
	"canteen-orders/internal/canteen/domain/models"

	"github.com/shopspring/decimal"
)

type stockKey struct{ canteenID, dishID int64 }

// memStore is an in-memory store. Its mutex serializes transactions the
// way row locks serialize them in Postgres.
type memStore struct {
	mu sync.Mutex

	canteens map[int64]models.Canteen
	dishes   map[int64]models.Dish
	stock    map[stockKey]int
	orders   map[int64]models.Order
	logs     map[int64][]models.StatusLog
	users    map[int64]models.User

	nextOrderID int64
	nextItemID  int64
	nextUserID  int64

	failItemInsert bool
}

func newMemStore() *memStore {
	return &memStore{
		canteens: map[int64]models.Canteen{},
		dishes:   map[int64]models.Dish{},
		stock:    map[stockKey]int{},
		orders:   map[int64]models.Order{},
		logs:     map[int64][]models.StatusLog{},
		users:    map[int64]models.User{},
	}
}

func (s *memStore) addCanteen(id int64, open bool) {
	s.canteens[id] = models.Canteen{ID: id, Name: fmt.Sprintf("Canteen %d", id), Address: "Main st.", IsOpen: open}
}

func (s *memStore) addDish(id int64, name, price string) {
	s.dishes[id] = models.Dish{ID: id, Name: name, Price: decimal.RequireFromString(price), Weight: 250}
}

func (s *memStore) setStock(canteenID, dishID int64, quantity int) {
	s.stock[stockKey{canteenID, dishID}] = quantity
}

func (s *memStore) quantity(canteenID, dishID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock[stockKey{canteenID, dishID}]
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memStore) WithinTx(ctx context.Context, fn func(tx core.IOrderTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrConflict, err)
	}

	stock := maps.Clone(s.stock)
	orders := maps.Clone(s.orders)
	logs := maps.Clone(s.logs)
	nextOrderID, nextItemID := s.nextOrderID, s.nextItemID

	if err := fn(&memTx{s: s}); err != nil {
		s.stock, s.orders, s.logs = stock, orders, logs
		s.nextOrderID, s.nextItemID = nextOrderID, nextItemID
		return err
	}
	return nil
}

func (s *memStore) PendingOrders(_ context.Context, canteenID int64) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Order
	for _, o := range s.orders {
		if o.CanteenID == canteenID && o.Pending() {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memStore) OrderByID(_ context.Context, orderID int64) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return models.Order{}, fmt.Errorf("%w: order %d", core.ErrNotFound, orderID)
	}
	o.History = slices.Clone(s.logs[orderID])
	return o, nil
}

func (s *memStore) OrdersByUser(_ context.Context, userID int64) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b models.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (s *memStore) ListCanteens(context.Context) ([]models.Canteen, error) {
	out := slices.Collect(maps.Values(s.canteens))
	slices.SortFunc(out, func(a, b models.Canteen) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *memStore) Canteen(_ context.Context, canteenID int64) (models.Canteen, error) {
	c, ok := s.canteens[canteenID]
	if !ok {
		return models.Canteen{}, fmt.Errorf("%w: canteen %d", core.ErrNotFound, canteenID)
	}
	return c, nil
}

func (s *memStore) Menu(_ context.Context, canteenID int64) ([]models.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.MenuItem{}
	for key, qty := range s.stock {
		if key.canteenID == canteenID && qty > 0 {
			out = append(out, models.MenuItem{Dish: s.dishes[key.dishID], AvailableQuantity: qty})
		}
	}
	slices.SortFunc(out, func(a, b models.MenuItem) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *memStore) MenuItem(_ context.Context, canteenID, dishID int64) (models.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	qty, ok := s.stock[stockKey{canteenID, dishID}]
	if !ok {
		return models.MenuItem{}, fmt.Errorf("%w: dish %d at canteen %d", core.ErrNotFound, dishID, canteenID)
	}
	return models.MenuItem{Dish: s.dishes[dishID], AvailableQuantity: qty}, nil
}

func (s *memStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username {
			return fmt.Errorf("%w: duplicate username", core.ErrConflict)
		}
	}
	s.nextUserID++
	user.ID = s.nextUserID
	s.users[user.ID] = *user
	return nil
}

func (s *memStore) ByID(_ context.Context, userID int64) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return models.User{}, fmt.Errorf("%w: user %d", core.ErrNotFound, userID)
	}
	return u, nil
}

func (s *memStore) ByUsername(_ context.Context, username string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, fmt.Errorf("%w: user %q", core.ErrNotFound, username)
}

func (s *memStore) UpdateNames(_ context.Context, userID int64, firstName, lastName *string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return models.User{}, fmt.Errorf("%w: user %d", core.ErrNotFound, userID)
	}
	if firstName != nil {
		u.FirstName = *firstName
	}
	if lastName != nil {
		u.LastName = *lastName
	}
	s.users[userID] = u
	return u, nil
}

// memTx runs with memStore.mu held.
type memTx struct {
	s *memStore
}

func (tx *memTx) CanteenForShare(_ context.Context, canteenID int64) (models.Canteen, error) {
	c, ok := tx.s.canteens[canteenID]
	if !ok {
		return models.Canteen{}, fmt.Errorf("%w: canteen %d", core.ErrNotFound, canteenID)
	}
	return c, nil
}

func (tx *memTx) LockStock(_ context.Context, canteenID int64, dishIDs []int64) ([]models.StockLine, error) {
	var lines []models.StockLine
	for _, id := range dishIDs {
		qty, ok := tx.s.stock[stockKey{canteenID, id}]
		if !ok {
			continue
		}
		d := tx.s.dishes[id]
		lines = append(lines, models.StockLine{DishID: id, DishName: d.Name, Price: d.Price, Quantity: qty})
	}
	return lines, nil
}

func (tx *memTx) DecrementStock(_ context.Context, canteenID, dishID int64, quantity int) error {
	key := stockKey{canteenID, dishID}
	if tx.s.stock[key] < quantity {
		return fmt.Errorf("%w: dish %d", core.ErrInsufficientStock, dishID)
	}
	tx.s.stock[key] -= quantity
	return nil
}

func (tx *memTx) InsertOrder(_ context.Context, order *models.Order) error {
	tx.s.nextOrderID++
	order.ID = tx.s.nextOrderID
	tx.s.orders[order.ID] = *order
	return nil
}

func (tx *memTx) InsertOrderItems(_ context.Context, orderID int64, items []models.OrderItem) error {
	if tx.s.failItemInsert {
		return errors.New("insert order items: connection reset")
	}
	for i := range items {
		tx.s.nextItemID++
		items[i].ID = tx.s.nextItemID
		items[i].OrderID = orderID
	}
	o := tx.s.orders[orderID]
	o.Items = slices.Clone(items)
	tx.s.orders[orderID] = o
	return nil
}

func (tx *memTx) LockOrder(_ context.Context, orderID int64) (models.Order, error) {
	o, ok := tx.s.orders[orderID]
	if !ok {
		return models.Order{}, fmt.Errorf("%w: order %d", core.ErrNotFound, orderID)
	}
	return o, nil
}

func (tx *memTx) SetStatus(_ context.Context, orderID int64, status models.Status) error {
	o := tx.s.orders[orderID]
	o.Status = status
	tx.s.orders[orderID] = o
	return nil
}

func (tx *memTx) AppendStatusLog(_ context.Context, orderID int64, entry models.StatusLog) error {
	tx.s.logs[orderID] = append(slices.Clone(tx.s.logs[orderID]), entry)
	return nil
}

type fakePublisher struct {
	mu      sync.Mutex
	err     error
	placed  []dto.OrderPlacedMessage
	updates []dto.StatusUpdateMessage
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) PublishOrderPlaced(_ context.Context, msg dto.OrderPlacedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.placed = append(p.placed, msg)
	return nil
}

func (p *fakePublisher) PublishStatusUpdate(_ context.Context, msg dto.StatusUpdateMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.updates = append(p.updates, msg)
	return nil
}
