package handle

import (
	"context"
	"net/http"

	"canteen-orders/internal/canteen/domain/models"
	"canteen-orders/internal/xpkg/logger"
)

type CatalogReader interface {
	ListCanteens(ctx context.Context) ([]models.Canteen, error)
	Menu(ctx context.Context, canteenID int64) ([]models.MenuItem, error)
	MenuItem(ctx context.Context, canteenID, dishID int64) (models.MenuItem, error)
}

type CatalogHandler struct {
	catalog CatalogReader
	mylog   logger.Logger
}

func NewCatalogHandler(catalog CatalogReader, mylog logger.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, mylog: mylog}
}

func (ch *CatalogHandler) ListCanteens() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		canteens, err := ch.catalog.ListCanteens(r.Context())
		if err != nil {
			ch.mylog.Action("list_canteens_failed").Error("Failed to list canteens", err)
			jsonError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, canteens)
	}
}

func (ch *CatalogHandler) Menu() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		canteenID, err := pathID(r, "canteenID")
		if err != nil {
			jsonError(w, err)
			return
		}

		menu, err := ch.catalog.Menu(r.Context(), canteenID)
		if err != nil {
			jsonError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, menu)
	}
}

func (ch *CatalogHandler) MenuItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		canteenID, err := pathID(r, "canteenID")
		if err != nil {
			jsonError(w, err)
			return
		}
		dishID, err := pathID(r, "dishID")
		if err != nil {
			jsonError(w, err)
			return
		}

		item, err := ch.catalog.MenuItem(r.Context(), canteenID, dishID)
		if err != nil {
			jsonError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, item)
	}
}
