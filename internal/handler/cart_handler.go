package handler

import (
	"encoding/json"
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /user/*cart のHTTP
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

// product_id / quantity は数値でも数字文字列でも受ける
type cartItemRequest struct {
	ProductID json.RawMessage `json:"product_id"`
	Quantity  json.RawMessage `json:"quantity"`
	Size      string          `json:"size"`
}

// 認証済みの /user グループに登録
func (h *CartHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/cart", h.getCart)
	g.POST("/add_cart", h.addItem)
	g.PUT("/edit_cart", h.editItem)
	g.DELETE("/remove_cart", h.removeItem)
	g.DELETE("/clear_cart", h.clear)
}

func (h *CartHandler) getCart(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	out, err := h.uc.GetCart(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "", echo.Map{"cart": out})
}

func (h *CartHandler) addItem(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req cartItemRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	productID, err := parseFlexibleInt(req.ProductID)
	if err != nil {
		return fail(c, http.StatusBadRequest, "product id and quantity are required")
	}
	qty, err := parseFlexibleInt(req.Quantity)
	if err != nil {
		return fail(c, http.StatusBadRequest, "product id and quantity are required")
	}

	out, err := h.uc.AddItem(c.Request().Context(), userID, usecase.AddCartInput{
		ProductID: productID,
		Quantity:  qty,
		Size:      req.Size,
	})
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "item added to cart", echo.Map{"cart": out})
}

func (h *CartHandler) editItem(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req cartItemRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	productID, err := parseFlexibleInt(req.ProductID)
	if err != nil {
		return fail(c, http.StatusBadRequest, "product id is required")
	}
	//数値でない・負数は400
	qty, err := parseFlexibleInt(req.Quantity)
	if err != nil {
		return fail(c, http.StatusBadRequest, "quantity must be a non-negative number")
	}

	out, err := h.uc.UpdateItem(c.Request().Context(), userID, usecase.UpdateCartInput{
		ProductID: productID,
		Quantity:  qty,
	})
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "cart updated", echo.Map{"cart": out})
}

func (h *CartHandler) removeItem(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	// DELETEでもbodyかクエリで受ける
	var req cartItemRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	raw := req.ProductID
	if len(raw) == 0 {
		raw = json.RawMessage(c.QueryParam("product_id"))
	}
	productID, err := parseFlexibleInt(raw)
	if err != nil {
		return fail(c, http.StatusBadRequest, "product id is required")
	}

	out, err := h.uc.RemoveItem(c.Request().Context(), userID, productID)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "item removed from cart", echo.Map{"cart": out})
}

func (h *CartHandler) clear(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	out, err := h.uc.Clear(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "cart cleared", echo.Map{"cart": out})
}
