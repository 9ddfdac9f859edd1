package db

import (
	"context"
	"errors"
	"fmt"

	"canteen-orders/internal/canteen/app/core"
	"canteen-orders/internal/canteen/domain/models"

	"github.com/jackc/pgx/v5"
)

const menuColumns = `d.id, d.name, d.description, d.price, d.weight, cd.quantity`

type CatalogRepo struct {
	db core.IDB
}

func NewCatalogRepo(db core.IDB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

func (cr *CatalogRepo) ListCanteens(ctx context.Context) ([]models.Canteen, error) {
	rows, err := cr.db.GetPool().Query(ctx, `SELECT id, name, address, is_open FROM canteens ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query canteens: %w", err)
	}
	defer rows.Close()

	canteens := []models.Canteen{}
	for rows.Next() {
		var c models.Canteen
		if err := rows.Scan(&c.ID, &c.Name, &c.Address, &c.IsOpen); err != nil {
			return nil, fmt.Errorf("failed to scan canteen: %w", err)
		}
		canteens = append(canteens, c)
	}
	return canteens, rows.Err()
}

func (cr *CatalogRepo) Canteen(ctx context.Context, canteenID int64) (models.Canteen, error) {
	var c models.Canteen
	err := cr.db.GetPool().QueryRow(ctx, `SELECT id, name, address, is_open FROM canteens WHERE id = $1`, canteenID).
		Scan(&c.ID, &c.Name, &c.Address, &c.IsOpen)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Canteen{}, fmt.Errorf("%w: canteen %d", core.ErrNotFound, canteenID)
	}
	if err != nil {
		return models.Canteen{}, fmt.Errorf("failed to load canteen: %w", err)
	}
	return c, nil
}

func (cr *CatalogRepo) Menu(ctx context.Context, canteenID int64) ([]models.MenuItem, error) {
	rows, err := cr.db.GetPool().Query(ctx, `
		SELECT `+menuColumns+`
		FROM canteen_dishes cd
		JOIN dishes d ON d.id = cd.dish_id
		WHERE cd.canteen_id = $1 AND cd.quantity > 0
		ORDER BY d.id`, canteenID)
	if err != nil {
		return nil, fmt.Errorf("failed to query menu: %w", err)
	}
	defer rows.Close()

	menu := []models.MenuItem{}
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		menu = append(menu, item)
	}
	return menu, rows.Err()
}

func (cr *CatalogRepo) MenuItem(ctx context.Context, canteenID, dishID int64) (models.MenuItem, error) {
	item, err := scanMenuItem(cr.db.GetPool().QueryRow(ctx, `
		SELECT `+menuColumns+`
		FROM canteen_dishes cd
		JOIN dishes d ON d.id = cd.dish_id
		WHERE cd.canteen_id = $1 AND cd.dish_id = $2`, canteenID, dishID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.MenuItem{}, fmt.Errorf("%w: dish %d is not stocked at canteen %d", core.ErrNotFound, dishID, canteenID)
	}
	if err != nil {
		return models.MenuItem{}, fmt.Errorf("failed to load menu item: %w", err)
	}
	return item, nil
}

func scanMenuItem(row pgx.Row) (models.MenuItem, error) {
	var m models.MenuItem
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.Price, &m.Weight, &m.AvailableQuantity)
	return m, err
}
