package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// 管理画面への注文イベント配信（/admin/ws/orders）
type OrderStreamHandler struct {
	hub http.Handler
}

func NewOrderStreamHandler(hub http.Handler) *OrderStreamHandler {
	return &OrderStreamHandler{hub: hub}
}

// ブラウザのWebSocketはヘッダーを付けられないので ?access_token= も受ける
func (h *OrderStreamHandler) RegisterRoutes(e *echo.Echo, mw ...echo.MiddlewareFunc) {
	e.GET("/admin/ws/orders", h.serve, mw...)
}

func (h *OrderStreamHandler) serve(c echo.Context) error {
	h.hub.ServeHTTP(c.Response(), c.Request())
	return nil
}
