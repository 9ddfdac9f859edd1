package http

import (
	"net/http"

	"canteen-orders/internal/canteen/api/http/handle"
	"canteen-orders/internal/canteen/app/core"
)

type Handlers struct {
	Middleware *handle.Middleware
	Catalog    *handle.CatalogHandler
	Orders     *handle.OrderHandler
	Worker     *handle.WorkerHandler
	Users      *handle.UserHandler
	Health     *handle.HealthHandler
}

// NewRouter registers every route. Capabilities are checked before handlers run.
func NewRouter(h Handlers) http.Handler {
	mux := http.NewServeMux()
	m := h.Middleware

	mux.Handle("GET /health", h.Health.Health())

	mux.Handle("GET /canteens", h.Catalog.ListCanteens())
	mux.Handle("GET /canteens/{canteenID}/menu", h.Catalog.Menu())
	mux.Handle("GET /canteens/{canteenID}/menu/{dishID}", h.Catalog.MenuItem())

	mux.Handle("POST /orders", m.Require(core.OpPlaceOrder, m.Idempotent(h.Orders.Create())))
	mux.Handle("GET /orders/{orderID}", m.Require(core.OpViewProfile, h.Orders.Get()))

	mux.Handle("GET /worker/orders", m.Require(core.OpViewQueue, h.Worker.Queue()))
	mux.Handle("PATCH /worker/orders/{orderID}", m.Require(core.OpUpdateOrderStatus, h.Worker.UpdateStatus()))

	mux.Handle("POST /users", h.Users.Register())
	mux.Handle("GET /users/me", m.Require(core.OpViewProfile, h.Users.Me()))
	mux.Handle("PATCH /users/me", m.Require(core.OpViewProfile, h.Users.UpdateMe()))
	mux.Handle("POST /auth/login", h.Users.Login())
	mux.Handle("POST /auth/logout", h.Users.Logout())

	return m.Logging(mux)
}
