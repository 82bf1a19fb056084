package handler

import (
	"encoding/json"
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminUserHandler struct {
	uc *usecase.UserUsecase
}

func NewAdminUserHandler(uc *usecase.UserUsecase) *AdminUserHandler {
	return &AdminUserHandler{uc: uc}
}

// /admin 配下（JWT必須 + token_version一致 + ADMIN限定）に登録される
func (h *AdminUserHandler) RegisterRoutes(admin *echo.Group) {
	admin.GET("/getuser", h.List)
	admin.POST("/update-user", h.Update)
	admin.POST("/delete-user", h.Delete)
	admin.POST("/users/:id/force-logout", h.ForceLogout)
}

// 省略した項目は変更しない
type adminUserRequest struct {
	ID       json.RawMessage `json:"id"`
	Username *string         `json:"username"`
	Name     *string         `json:"name"`
	Email    *string         `json:"email"`
	Phone    *string         `json:"phone"`
	Address  *string         `json:"address"`
	Role     *string         `json:"role"`
	IsActive *bool           `json:"is_active"`
}

func (h *AdminUserHandler) List(c echo.Context) error {
	users, err := h.uc.AdminList(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "", echo.Map{"users": users})
}

func (h *AdminUserHandler) Update(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req adminUserRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	targetID, err := parseFlexibleInt(req.ID)
	if err != nil || targetID <= 0 {
		return fail(c, http.StatusBadRequest, "invalid user id")
	}

	u, err := h.uc.AdminUpdate(c.Request().Context(), adminID, targetID, usecase.AdminUpdateUserInput{
		Username: req.Username,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Address:  req.Address,
		Role:     req.Role,
		IsActive: req.IsActive,
	})
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "user updated", echo.Map{"user": u})
}

// 物理削除。カートと住所も消える
func (h *AdminUserHandler) Delete(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req adminUserRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	targetID, err := parseFlexibleInt(req.ID)
	if err != nil || targetID <= 0 {
		return fail(c, http.StatusBadRequest, "invalid user id")
	}

	if err := h.uc.AdminDelete(c.Request().Context(), adminID, targetID); err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "user deleted", nil)
}

// token_versionを上げて発行済みトークンを無効にする
func (h *AdminUserHandler) ForceLogout(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	userID, ok := pathID(c, "id")
	if !ok {
		return fail(c, http.StatusBadRequest, "invalid user_id")
	}

	res, err := h.uc.ForceLogout(c.Request().Context(), adminID, userID)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "user logged out", echo.Map{
		"user_id":           res.UserID,
		"new_token_version": res.NewTokenVersion,
	})
}
