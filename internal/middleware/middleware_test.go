package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/middleware"
	"storefront/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// レスポンス確認用
// =====================

type mwErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type mwOKResponse struct {
	UserID       int64  `json:"user_id"`
	Role         string `json:"role"`
	TokenVersion int    `json:"token_version"`
}

// =====================
// UserRepository モック
// =====================

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) FindByPhone(ctx context.Context, phone string) (*model.User, error) {
	args := m.Called(ctx, phone)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	us, _ := args.Get(0).([]model.User)
	return us, args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserRepo) IncrementTokenVersion(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

// =====================
// helper
// =====================

const secret = "test-secret"

func mustMakeJWT(t *testing.T, key string, sub int64, role string, tv int, signingMethod jwt.SigningMethod) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"tv":   tv,
		"iat":  1,
		"exp":  9999999999,
	}

	s, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(key))
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	return s
}

func runRequest(t *testing.T, e *echo.Echo, path string, authHeader string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func assertNotAuthorized(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var r mwErrorResponse
	_ = json.NewDecoder(rec.Body).Decode(&r)
	assert.False(t, r.Success)
	assert.Equal(t, "not authorized, login again", r.Message)
}

func okHandler(c echo.Context) error {
	userID, _ := middleware.UserID(c)
	role, _ := c.Get(middleware.CtxUserRoleKey).(string)
	tv, _ := c.Get(middleware.CtxTokenVersionKey).(int)
	return c.JSON(http.StatusOK, mwOKResponse{UserID: userID, Role: role, TokenVersion: tv})
}

// =====================
// AuthJWT
// =====================

func TestAuthJWT_Rejects(t *testing.T) {
	cfg := config.Config{JWTSecret: secret}

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"bad scheme", "Token abc.def.ghi"},
		{"empty bearer", "Bearer "},
		{"bad signature", "Bearer " + mustMakeJWT(t, "wrong-secret", 1, "USER", 0, jwt.SigningMethodHS256)},
		{"wrong alg", "Bearer " + mustMakeJWT(t, secret, 1, "USER", 0, jwt.SigningMethodHS512)},
		{"missing role", "Bearer " + mustMakeJWT(t, secret, 1, "", 0, jwt.SigningMethodHS256)},
		{"bad sub", "Bearer " + mustMakeJWT(t, secret, 0, "USER", 0, jwt.SigningMethodHS256)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/protected", okHandler, middleware.AuthJWT(cfg))

			rec := runRequest(t, e, "/protected", tt.header)
			assertNotAuthorized(t, rec)
		})
	}
}

func TestAuthJWT_ExpiredToken(t *testing.T) {
	cfg := config.Config{JWTSecret: secret}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1", "role": "USER", "tv": 0, "iat": 1, "exp": 2,
	}).SignedString([]byte(secret))
	assert.NoError(t, err)

	e := echo.New()
	e.GET("/protected", okHandler, middleware.AuthJWT(cfg))

	rec := runRequest(t, e, "/protected", "Bearer "+raw)
	assertNotAuthorized(t, rec)
}

// 正常：ctxに値が入る
func TestAuthJWT_Success_SetsContext(t *testing.T) {
	cfg := config.Config{JWTSecret: secret}
	raw := mustMakeJWT(t, secret, 123, "USER", 7, jwt.SigningMethodHS256)

	e := echo.New()
	e.GET("/protected", okHandler, middleware.AuthJWT(cfg))

	rec := runRequest(t, e, "/protected", "Bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body mwOKResponse
	_ = json.NewDecoder(rec.Body).Decode(&body)
	assert.Equal(t, int64(123), body.UserID)
	assert.Equal(t, "USER", body.Role)
	assert.Equal(t, 7, body.TokenVersion)
}

// クエリのtokenは専用ミドルウェアだけで受ける
func TestAuthJWT_QueryToken(t *testing.T) {
	cfg := config.Config{JWTSecret: secret}
	raw := mustMakeJWT(t, secret, 5, "ADMIN", 0, jwt.SigningMethodHS256)

	e := echo.New()
	e.GET("/strict", okHandler, middleware.AuthJWT(cfg))
	e.GET("/ws", okHandler, middleware.AuthJWTAllowQuery(cfg))

	assertNotAuthorized(t, runRequest(t, e, "/strict?access_token="+raw, ""))

	rec := runRequest(t, e, "/ws?access_token="+raw, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

// =====================
// TokenVersionGuard
// =====================

func TestTokenVersionGuard_MissingContext(t *testing.T) {
	userRepo := new(mockUserRepo)

	e := echo.New()
	e.GET("/protected", okHandler, middleware.TokenVersionGuard(userRepo))

	assertNotAuthorized(t, runRequest(t, e, "/protected", ""))
	userRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestTokenVersionGuard_Rejects(t *testing.T) {
	cfg := config.Config{JWTSecret: secret}
	raw := mustMakeJWT(t, secret, 1, "USER", 0, jwt.SigningMethodHS256)

	tests := []struct {
		name string
		user *model.User
	}{
		// 削除済み
		{"user gone", nil},
		{"version mismatch", &model.User{ID: 1, Role: model.RoleUser, TokenVersion: 1, IsActive: true}},
		{"inactive", &model.User{ID: 1, Role: model.RoleUser, TokenVersion: 0, IsActive: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := new(mockUserRepo)
			userRepo.On("FindByID", mock.Anything, int64(1)).Return(tt.user, nil)

			e := echo.New()
			e.GET("/protected", okHandler, middleware.AuthJWT(cfg), middleware.TokenVersionGuard(userRepo))

			assertNotAuthorized(t, runRequest(t, e, "/protected", "Bearer "+raw))
			userRepo.AssertExpectations(t)
		})
	}
}

func TestTokenVersionGuard_Success(t *testing.T) {
	cfg := config.Config{JWTSecret: secret}
	raw := mustMakeJWT(t, secret, 1, "USER", 5, jwt.SigningMethodHS256)

	userRepo := new(mockUserRepo)
	userRepo.On("FindByID", mock.Anything, int64(1)).Return(&model.User{
		ID:           1,
		Role:         model.RoleUser,
		TokenVersion: 5, // 一致
		IsActive:     true,
	}, nil)

	e := echo.New()
	e.GET("/protected", okHandler, middleware.AuthJWT(cfg), middleware.TokenVersionGuard(userRepo))

	rec := runRequest(t, e, "/protected", "Bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)
	userRepo.AssertExpectations(t)
}

// =====================
// AdminRoleGuard
// =====================

func TestAdminRoleGuard(t *testing.T) {
	cfg := config.Config{JWTSecret: secret}

	tests := []struct {
		name   string
		dbRole model.Role
		want   int
	}{
		{"admin", model.RoleAdmin, http.StatusOK},
		{"user", model.RoleUser, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// トークン上はADMINでもDBのロールで判定する
			raw := mustMakeJWT(t, secret, 9, "ADMIN", 0, jwt.SigningMethodHS256)

			userRepo := new(mockUserRepo)
			userRepo.On("FindByID", mock.Anything, int64(9)).Return(&model.User{
				ID: 9, Role: tt.dbRole, IsActive: true,
			}, nil)

			e := echo.New()
			e.GET("/admin", okHandler,
				middleware.AuthJWT(cfg), middleware.TokenVersionGuard(userRepo), middleware.AdminRoleGuard())

			rec := runRequest(t, e, "/admin", "Bearer "+raw)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
