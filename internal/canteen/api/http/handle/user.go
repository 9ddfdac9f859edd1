package handle

import (
	"context"
	"net/http"
	"time"

	"canteen-orders/internal/canteen/app/core"
	"canteen-orders/internal/canteen/domain/dto"
	"canteen-orders/internal/canteen/domain/models"
	"canteen-orders/internal/xpkg/logger"
)

type UserAccounts interface {
	Register(ctx context.Context, req dto.RegisterRequest) (models.User, string, error)
	Login(ctx context.Context, req dto.LoginRequest) (models.User, string, error)
	Profile(ctx context.Context, userID int64) (dto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID int64, req dto.UpdateProfileRequest) (dto.ProfileResponse, error)
}

type UserHandler struct {
	users    UserAccounts
	tokenTTL time.Duration
	mylog    logger.Logger
}

func NewUserHandler(users UserAccounts, tokenTTL time.Duration, mylog logger.Logger) *UserHandler {
	return &UserHandler{
		users:    users,
		tokenTTL: tokenTTL,
		mylog:    mylog,
	}
}

func (uh *UserHandler) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.RegisterRequest
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, err)
			return
		}

		_, token, err := uh.users.Register(r.Context(), req)
		if err != nil {
			jsonError(w, err)
			return
		}
		uh.setToken(w, token)
		jsonResponse(w, http.StatusCreated, dto.TokenResponse{Message: "registration successful", Token: token})
	}
}

func (uh *UserHandler) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.LoginRequest
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, err)
			return
		}

		_, token, err := uh.users.Login(r.Context(), req)
		if err != nil {
			jsonError(w, err)
			return
		}
		uh.setToken(w, token)
		jsonResponse(w, http.StatusOK, dto.TokenResponse{Message: "login successful", Token: token})
	}
}

func (uh *UserHandler) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     core.TokenCookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		jsonResponse(w, http.StatusOK, map[string]string{"message": "logout successful"})
	}
}

func (uh *UserHandler) Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := principal(r)
		if err != nil {
			jsonError(w, err)
			return
		}

		profile, err := uh.users.Profile(r.Context(), user.UserID)
		if err != nil {
			jsonError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, profile)
	}
}

func (uh *UserHandler) UpdateMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := principal(r)
		if err != nil {
			jsonError(w, err)
			return
		}

		var req dto.UpdateProfileRequest
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, err)
			return
		}

		profile, err := uh.users.UpdateProfile(r.Context(), user.UserID, req)
		if err != nil {
			jsonError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, profile)
	}
}

func (uh *UserHandler) setToken(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     core.TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(uh.tokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
