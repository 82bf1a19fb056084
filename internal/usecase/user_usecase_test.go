package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestUserUsecase_UpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.seedUser(t, model.RoleUser)
	other := env.seedUser(t, model.RoleUser)

	img := "http://img/avatar.png"
	out, err := env.users.UpdateProfile(ctx, u.ID, usecase.UpdateProfileInput{Name: "New Name", Address: "Tokyo", Image: &img})
	require.NoError(t, err)
	assert.Equal(t, "New Name", out.Name)
	assert.Equal(t, "Tokyo", out.Address)
	assert.Equal(t, img, out.Image)
	// 空の項目は変更しない
	assert.Equal(t, u.Phone, out.Phone)

	_, err = env.users.UpdateProfile(ctx, u.ID, usecase.UpdateProfileInput{Phone: "123"})
	assertStatus(t, err, http.StatusBadRequest)

	_, err = env.users.UpdateProfile(ctx, u.ID, usecase.UpdateProfileInput{Phone: other.Phone})
	assertStatus(t, err, http.StatusConflict)
}

func TestUserUsecase_AdminUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedUser(t, model.RoleAdmin)
	u := env.seedUser(t, model.RoleUser)
	other := env.seedUser(t, model.RoleUser)

	inactive := false
	out, err := env.users.AdminUpdate(ctx, admin.ID, u.ID, usecase.AdminUpdateUserInput{
		Email:    strPtr("Renamed@Example.com"),
		Role:     strPtr("admin"),
		IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed@example.com", out.Email)
	assert.Equal(t, model.RoleAdmin, out.Role)
	assert.False(t, out.IsActive)

	_, err = env.users.AdminUpdate(ctx, admin.ID, u.ID, usecase.AdminUpdateUserInput{Email: strPtr(other.Email)})
	assertStatus(t, err, http.StatusConflict)

	_, err = env.users.AdminUpdate(ctx, admin.ID, u.ID, usecase.AdminUpdateUserInput{Role: strPtr("owner")})
	assertStatus(t, err, http.StatusBadRequest)

	// 自分の権限は落とせない
	_, err = env.users.AdminUpdate(ctx, admin.ID, admin.ID, usecase.AdminUpdateUserInput{Role: strPtr("USER")})
	assertStatus(t, err, http.StatusBadRequest)

	_, err = env.users.AdminUpdate(ctx, admin.ID, 9999, usecase.AdminUpdateUserInput{Name: strPtr("x")})
	assertStatus(t, err, http.StatusNotFound)

	var n int64
	require.NoError(t, env.db.Model(&model.AuditLog{}).Where("action = ?", model.AuditActionUpdateUser).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestUserUsecase_AdminDelete_RemovesCartAndAddresses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedUser(t, model.RoleAdmin)
	u := env.seedUser(t, model.RoleUser)
	shirt := env.seedProduct(t, "shirt", 100)

	_, err := env.cart.AddItem(ctx, u.ID, usecase.AddCartInput{ProductID: shirt.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = env.addresses.Create(ctx, u.ID, usecase.AddressRequest{Address: "a", City: "b", PostalCode: "c", Country: "d"})
	require.NoError(t, err)

	err = env.users.AdminDelete(ctx, admin.ID, admin.ID)
	assertStatus(t, err, http.StatusBadRequest)

	require.NoError(t, env.users.AdminDelete(ctx, admin.ID, u.ID))

	var users, carts, addrs int64
	require.NoError(t, env.db.Model(&model.User{}).Where("id = ?", u.ID).Count(&users).Error)
	require.NoError(t, env.db.Model(&model.Cart{}).Where("user_id = ?", u.ID).Count(&carts).Error)
	require.NoError(t, env.db.Model(&model.Address{}).Where("user_id = ?", u.ID).Count(&addrs).Error)
	assert.Zero(t, users)
	assert.Zero(t, carts)
	assert.Zero(t, addrs)

	err = env.users.AdminDelete(ctx, admin.ID, u.ID)
	assertStatus(t, err, http.StatusNotFound)
}

func TestUserUsecase_ForceLogout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedUser(t, model.RoleAdmin)
	u := env.seedUser(t, model.RoleUser)

	out, err := env.users.ForceLogout(ctx, admin.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, out.UserID)
	assert.Equal(t, 1, out.NewTokenVersion)

	out, err = env.users.ForceLogout(ctx, admin.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, out.NewTokenVersion)

	_, err = env.users.ForceLogout(ctx, admin.ID, 9999)
	assertStatus(t, err, http.StatusNotFound)
}
