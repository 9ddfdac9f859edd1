package handle

import (
	"context"
	"net/http"
	"time"

	"canteen-orders/internal/xpkg/logger"
)

type Pinger interface {
	IsAlive(ctx context.Context) error
}

type HealthHandler struct {
	db    Pinger
	mylog logger.Logger
}

func NewHealthHandler(db Pinger, mylog logger.Logger) *HealthHandler {
	return &HealthHandler{db: db, mylog: mylog}
}

func (hh *HealthHandler) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := hh.db.IsAlive(ctx); err != nil {
			hh.mylog.Action("health_check_failed").Warn("Database is not responding", "error", err.Error())
			jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
