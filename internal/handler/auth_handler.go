package handler

import (
	"errors"
	"net/http"

	auth "storefront/internal/usecase/auth_usecase"
	"storefront/internal/validator"

	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	registerUC *auth.RegisterUserUsecase // 会員登録usecase
	loginUC    *auth.LoginUsecase        // ログインusecase
}

// DIコンストラクタ
func NewAuthHandler(registerUC *auth.RegisterUserUsecase, loginUC *auth.LoginUsecase) *AuthHandler {
	return &AuthHandler{registerUC: registerUC, loginUC: loginUC}
}

// 認証不要のルート
func (h *AuthHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/user/register", h.Register)
	e.POST("/user/login", h.Login)
	e.POST("/admin/login", h.AdminLogin)
}

// /user/register のリクエストボディ。
type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// /user/login, /admin/login のリクエストボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterはPOST /user/registerのハンドラ
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.registerUC.Execute(c.Request().Context(), auth.RegisterUserInput{
		Username:        req.Username,
		Email:           req.Email,
		Phone:           req.Phone,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return writeAuthError(c, err)
	}

	return respond(c, http.StatusCreated, "user registered", echo.Map{"user": out.User})
}

// LoginはPOST /user/login のハンドラ。
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.loginUC.Execute(c.Request().Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return writeAuthError(c, err)
	}
	return loginResponse(c, out)
}

// ADMINロールのユーザーだけ通す
func (h *AuthHandler) AdminLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.loginUC.ExecuteAdmin(c.Request().Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return writeAuthError(c, err)
	}
	return loginResponse(c, out)
}

func loginResponse(c echo.Context, out auth.LoginOutput) error {
	return respond(c, http.StatusOK, "login successful", echo.Map{
		"token":      out.Token,
		"expires_in": out.ExpiresIn,
		"user":       out.User,
	})
}

func writeAuthError(c echo.Context, err error) error {
	switch {
	case validator.IsInputError(err):
		return fail(c, http.StatusBadRequest, err.Error())
	case validator.IsConflictError(err):
		return fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		return fail(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrUserInactive), errors.Is(err, auth.ErrNotAdmin):
		return fail(c, http.StatusForbidden, err.Error())
	}
	return writeError(c, err)
}
