package services

import (
	"context"
	"testing"
	"time"

	"canteen-orders/internal/canteen/app/core"
	"canteen-orders/internal/canteen/domain/dto"
	"canteen-orders/internal/canteen/domain/models"
	"canteen-orders/internal/xpkg/auth"
	"canteen-orders/internal/xpkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestUserService(s *memStore) *UserService {
	svc := NewUserService(s, s, auth.NewTokens("test-secret", time.Hour), logger.Discard())
	svc.cost = bcrypt.MinCost
	return svc
}

func TestRegisterAndIdentify(t *testing.T) {
	s := seededStore()
	svc := newTestUserService(s)
	ctx := context.Background()

	user, token, err := svc.Register(ctx, dto.RegisterRequest{Username: "bob.smith", Password: "longenough", Password2: "longenough"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.NotEqual(t, "longenough", user.PasswordHash)
	require.NotEmpty(t, token)

	p, err := svc.Identify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, p.UserID)
	assert.Equal(t, "bob.smith", p.Username)
	assert.True(t, p.Can(core.OpPlaceOrder))
	assert.False(t, p.Can(core.OpViewQueue))

	_, _, err = svc.Register(ctx, dto.RegisterRequest{Username: "bob.smith", Password: "longenough", Password2: "longenough"})
	require.ErrorIs(t, err, core.ErrConflict)
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name string
		req  dto.RegisterRequest
	}{
		{"short username", dto.RegisterRequest{Username: "ab", Password: "longenough", Password2: "longenough"}},
		{"bad characters", dto.RegisterRequest{Username: "bob smith", Password: "longenough", Password2: "longenough"}},
		{"mismatch", dto.RegisterRequest{Username: "bob", Password: "longenough", Password2: "longenougH"}},
		{"short password", dto.RegisterRequest{Username: "bob", Password: "short", Password2: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := newTestUserService(seededStore()).Register(context.Background(), tt.req)
			require.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

func TestLogin(t *testing.T) {
	s := seededStore()
	svc := newTestUserService(s)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, dto.RegisterRequest{Username: "carol", Password: "password1", Password2: "password1"})
	require.NoError(t, err)

	_, token, err := svc.Login(ctx, dto.LoginRequest{Username: "carol", Password: "password1"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, _, err = svc.Login(ctx, dto.LoginRequest{Username: "carol", Password: "wrong-pass"})
	require.ErrorIs(t, err, core.ErrValidation)
	assert.Contains(t, err.Error(), "invalid credentials")

	_, _, err = svc.Login(ctx, dto.LoginRequest{Username: "nobody", Password: "password1"})
	require.ErrorIs(t, err, core.ErrValidation)
}

func TestIdentifyRejects(t *testing.T) {
	s := seededStore()
	svc := newTestUserService(s)
	ctx := context.Background()

	_, err := svc.Identify(ctx, "garbage")
	require.ErrorIs(t, err, core.ErrUnauthorized)

	orphan, err := auth.NewTokens("test-secret", time.Hour).Issue(4242)
	require.NoError(t, err)
	_, err = svc.Identify(ctx, orphan)
	require.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestIdentifyWorker(t *testing.T) {
	s := seededStore()
	canteen := canteenA
	s.users[77] = models.User{ID: 77, Username: "cook", Role: models.RoleWorker, CanteenID: &canteen}
	svc := newTestUserService(s)

	token, err := svc.tokens.Issue(77)
	require.NoError(t, err)

	p, err := svc.Identify(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, p.Can(core.OpViewQueue))
	assert.True(t, p.WorksAt(canteenA))
}

func TestProfile(t *testing.T) {
	s := seededStore()
	svc := newTestUserService(s)
	ctx := context.Background()

	user, _, err := svc.Register(ctx, dto.RegisterRequest{Username: "dave", Password: "password1", Password2: "password1"})
	require.NoError(t, err)

	orders := newTestOrderService(s, &fakePublisher{}, 10)
	buyer := core.Principal{UserID: user.ID, Username: user.Username, Role: user.Role}
	first, err := orders.PlaceOrder(ctx, buyer, dto.PlaceOrderRequest{CanteenID: canteenA, Items: items(line(soup, 1))})
	require.NoError(t, err)
	orders.now = func() time.Time { return time.Now().Add(time.Minute) }
	second, err := orders.PlaceOrder(ctx, buyer, dto.PlaceOrderRequest{CanteenID: canteenA, Items: items(line(salad, 1))})
	require.NoError(t, err)

	prof, err := svc.Profile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "dave", prof.Username)
	assert.Equal(t, []int64{second.ID, first.ID}, ids(prof.Orders))

	first2, last := "Dave", "Jones"
	updated, err := svc.UpdateProfile(ctx, user.ID, dto.UpdateProfileRequest{FirstName: &first2, LastName: &last})
	require.NoError(t, err)
	assert.Equal(t, "Dave", updated.FirstName)
	assert.Equal(t, "Jones", updated.LastName)
	assert.Len(t, updated.Orders, 2)

	onlyLast := "Brown"
	updated, err = svc.UpdateProfile(ctx, user.ID, dto.UpdateProfileRequest{LastName: &onlyLast})
	require.NoError(t, err)
	assert.Equal(t, "Dave", updated.FirstName)
	assert.Equal(t, "Brown", updated.LastName)

	_, err = svc.Profile(ctx, 999)
	require.ErrorIs(t, err, core.ErrNotFound)
}
