package db

import (
	"context"
	"errors"
	"fmt"

	"canteen-orders/internal/canteen/app/core"
	"canteen-orders/internal/canteen/domain/models"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, password_hash, first_name, last_name, role, canteen_id`

type UserRepo struct {
	db core.IDB
}

func NewUserRepo(db core.IDB) *UserRepo {
	return &UserRepo{db: db}
}

func (ur *UserRepo) Create(ctx context.Context, user *models.User) error {
	err := ur.db.GetPool().QueryRow(ctx, `
		INSERT INTO users (username, password_hash, first_name, last_name, role, canteen_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		user.Username, user.PasswordHash, user.FirstName, user.LastName, user.Role, user.CanteenID,
	).Scan(&user.ID)
	if err != nil {
		return translate(fmt.Errorf("failed to insert user: %w", err))
	}
	return nil
}

func (ur *UserRepo) ByID(ctx context.Context, userID int64) (models.User, error) {
	return ur.one(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
}

func (ur *UserRepo) ByUsername(ctx context.Context, username string) (models.User, error) {
	return ur.one(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

// UpdateNames changes only the names that are not nil.
func (ur *UserRepo) UpdateNames(ctx context.Context, userID int64, firstName, lastName *string) (models.User, error) {
	return ur.one(ctx, `
		UPDATE users
		SET first_name = COALESCE($2, first_name),
		    last_name = COALESCE($3, last_name)
		WHERE id = $1
		RETURNING `+userColumns, userID, firstName, lastName)
}

func (ur *UserRepo) one(ctx context.Context, q string, args ...any) (models.User, error) {
	var u models.User
	err := ur.db.GetPool().QueryRow(ctx, q, args...).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role, &u.CanteenID)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, fmt.Errorf("%w: user %v", core.ErrNotFound, args[0])
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}
