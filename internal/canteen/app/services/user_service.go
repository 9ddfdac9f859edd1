package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"canteen-orders/internal/canteen/app/core"
	"canteen-orders/internal/canteen/domain/dto"
	"canteen-orders/internal/canteen/domain/models"
	"canteen-orders/internal/xpkg/auth"
	"canteen-orders/internal/xpkg/logger"

	"golang.org/x/crypto/bcrypt"
)

var errInvalidCredentials = fmt.Errorf("%w: invalid credentials", core.ErrValidation)

type UserService struct {
	userRepo  core.IUserRepo
	orderRepo core.IOrderRepo
	tokens    *auth.Tokens
	mylog     logger.Logger
	cost      int
}

func NewUserService(userRepo core.IUserRepo, orderRepo core.IOrderRepo, tokens *auth.Tokens, mylog logger.Logger) *UserService {
	return &UserService{
		userRepo:  userRepo,
		orderRepo: orderRepo,
		tokens:    tokens,
		mylog:     mylog,
		cost:      bcrypt.DefaultCost,
	}
}

// Register creates a student account and returns its access token.
func (us *UserService) Register(ctx context.Context, req dto.RegisterRequest) (models.User, string, error) {
	mylog := us.mylog.Action("register").With("username", req.Username)

	if err := validateUsername(req.Username); err != nil {
		return models.User{}, "", fmt.Errorf("%w: invalid username: %v", core.ErrValidation, err)
	}
	if req.Password != req.Password2 {
		return models.User{}, "", fmt.Errorf("%w: passwords do not match", core.ErrValidation)
	}
	if len(req.Password) < core.MinPasswordLen {
		return models.User{}, "", fmt.Errorf("%w: password must be at least %d characters", core.ErrValidation, core.MinPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), us.cost)
	if err != nil {
		return models.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         models.RoleStudent,
	}
	if err := us.userRepo.Create(ctx, &user); err != nil {
		if errors.Is(err, core.ErrConflict) {
			return models.User{}, "", fmt.Errorf("%w: username %q is taken", core.ErrConflict, req.Username)
		}
		mylog.Error("Failed to create user", err)
		return models.User{}, "", err
	}

	token, err := us.tokens.Issue(user.ID)
	if err != nil {
		return models.User{}, "", err
	}
	mylog.Info("User registered", "user_id", user.ID)
	return user, token, nil
}

func (us *UserService) Login(ctx context.Context, req dto.LoginRequest) (models.User, string, error) {
	if req.Username == "" || req.Password == "" {
		return models.User{}, "", fmt.Errorf("%w: username and password are required", core.ErrValidation)
	}

	user, err := us.userRepo.ByUsername(ctx, req.Username)
	if errors.Is(err, core.ErrNotFound) {
		return models.User{}, "", errInvalidCredentials
	}
	if err != nil {
		return models.User{}, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		us.mylog.Action("login_failed").Debug("Password mismatch", "username", req.Username)
		return models.User{}, "", errInvalidCredentials
	}

	token, err := us.tokens.Issue(user.ID)
	if err != nil {
		return models.User{}, "", err
	}
	us.mylog.Action("login").Info("User logged in", "user_id", user.ID)
	return user, token, nil
}

// Identify resolves a raw access token into the calling principal.
func (us *UserService) Identify(ctx context.Context, rawToken string) (core.Principal, error) {
	userID, err := us.tokens.Verify(rawToken)
	if err != nil {
		return core.Principal{}, fmt.Errorf("%w: %v", core.ErrUnauthorized, err)
	}

	user, err := us.userRepo.ByID(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return core.Principal{}, fmt.Errorf("%w: unknown user", core.ErrUnauthorized)
	}
	if err != nil {
		return core.Principal{}, err
	}

	return core.Principal{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		CanteenID: user.CanteenID,
	}, nil
}

// Profile returns the user with their orders, newest first.
func (us *UserService) Profile(ctx context.Context, userID int64) (dto.ProfileResponse, error) {
	user, err := us.userRepo.ByID(ctx, userID)
	if err != nil {
		return dto.ProfileResponse{}, err
	}
	orders, err := us.orderRepo.OrdersByUser(ctx, userID)
	if err != nil {
		return dto.ProfileResponse{}, err
	}
	return profile(user, orders), nil
}

func (us *UserService) UpdateProfile(ctx context.Context, userID int64, req dto.UpdateProfileRequest) (dto.ProfileResponse, error) {
	for field, v := range map[string]*string{"first_name": req.FirstName, "last_name": req.LastName} {
		if v != nil && len(*v) > core.MaxNameLen {
			return dto.ProfileResponse{}, fmt.Errorf("%w: %s is longer than %d characters", core.ErrValidation, field, core.MaxNameLen)
		}
	}

	user, err := us.userRepo.UpdateNames(ctx, userID, req.FirstName, req.LastName)
	if err != nil {
		return dto.ProfileResponse{}, err
	}
	orders, err := us.orderRepo.OrdersByUser(ctx, userID)
	if err != nil {
		return dto.ProfileResponse{}, err
	}
	return profile(user, orders), nil
}

func profile(user models.User, orders []models.Order) dto.ProfileResponse {
	if orders == nil {
		orders = []models.Order{}
	}
	return dto.ProfileResponse{
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		CanteenID: user.CanteenID,
		Orders:    orders,
	}
}

func validateUsername(username string) error {
	if l := len(username); l < core.MinUsernameLen || l > core.MaxUsernameLen {
		return fmt.Errorf("length must be in range [%d, %d]", core.MinUsernameLen, core.MaxUsernameLen)
	}
	for _, r := range username {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || strings.ContainsRune(core.AllowedUsernameSpecials, r) {
			continue
		}
		return fmt.Errorf("must not contain special characters other than `%s`", core.AllowedUsernameSpecials)
	}
	return nil
}
