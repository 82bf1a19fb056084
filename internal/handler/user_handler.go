package handler

import (
	"errors"
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// ログイン中ユーザー自身のプロフィール
type UserHandler struct {
	uc     *usecase.UserUsecase
	images ImageStore
}

func NewUserHandler(uc *usecase.UserUsecase, images ImageStore) *UserHandler {
	return &UserHandler{uc: uc, images: images}
}

func (h *UserHandler) RegisterRoutes(user *echo.Group) {
	user.GET("/get-user", h.getUser)
	user.PUT("/update-profile", h.updateProfile)
}

type profileRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (h *UserHandler) getUser(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	u, err := h.uc.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "", echo.Map{"user": u})
}

// multipartならimageをavatarsに保存してURLを入れる
func (h *UserHandler) updateProfile(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var in usecase.UpdateProfileInput
	var uploaded string
	if isMultipart(c) {
		in.Name = c.FormValue("name")
		in.Phone = c.FormValue("phone")
		in.Address = c.FormValue("address")

		fh, err := c.FormFile("image")
		if err == nil {
			url, err := h.images.Save("avatars", fh)
			if err != nil {
				return formError(c, err)
			}
			uploaded = url
			in.Image = &url
		} else if !errors.Is(err, http.ErrMissingFile) {
			return fail(c, http.StatusBadRequest, "invalid body")
		}
	} else {
		var req profileRequest
		if err := c.Bind(&req); err != nil {
			return fail(c, http.StatusBadRequest, "invalid body")
		}
		in.Name = req.Name
		in.Phone = req.Phone
		in.Address = req.Address
	}

	u, err := h.uc.UpdateProfile(c.Request().Context(), userID, in)
	if err != nil {
		discardUploads(c, h.images, uploaded)
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "profile updated", echo.Map{"user": u})
}
