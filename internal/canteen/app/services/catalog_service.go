package services

import (
	"context"

	"canteen-orders/internal/canteen/app/core"
	"canteen-orders/internal/canteen/domain/models"
	"canteen-orders/internal/xpkg/logger"
)

type CatalogService struct {
	catalogRepo core.ICatalogRepo
	mylog       logger.Logger
}

func NewCatalogService(catalogRepo core.ICatalogRepo, mylog logger.Logger) *CatalogService {
	return &CatalogService{catalogRepo: catalogRepo, mylog: mylog}
}

func (cs *CatalogService) ListCanteens(ctx context.Context) ([]models.Canteen, error) {
	return cs.catalogRepo.ListCanteens(ctx)
}

// Menu lists the dishes in stock at a canteen.
func (cs *CatalogService) Menu(ctx context.Context, canteenID int64) ([]models.MenuItem, error) {
	if _, err := cs.catalogRepo.Canteen(ctx, canteenID); err != nil {
		return nil, err
	}
	return cs.catalogRepo.Menu(ctx, canteenID)
}

func (cs *CatalogService) MenuItem(ctx context.Context, canteenID, dishID int64) (models.MenuItem, error) {
	return cs.catalogRepo.MenuItem(ctx, canteenID, dishID)
}
