package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// authAdmin。TokenVersionGuardの後に置き、DBのロールで判定する
func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := UserID(c); !ok {
				return unauthorized(c)
			}

			//USERは拒否、ADMINだけ許可
			if !IsAdmin(c) {
				return c.JSON(http.StatusForbidden, errorJSON("admin only"))
			}

			return next(c)
		}
	}
}
