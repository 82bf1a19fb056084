package handler

import (
	"net/http"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

// 住所はaddress_idかshipping_addressのどちらか
type OrderCreateRequest struct {
	AddressID       int64                 `json:"address_id"`
	ShippingAddress model.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                `json:"payment_method"`
}

type OrderStatusRequest struct {
	Status string `json:"status"`
}

func (h *OrderHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/createorders", h.create)
	g.POST("/checkout", h.create)
	g.GET("/get-orders", h.list)
	g.GET("/orders/:orderId", h.detail)
	g.GET("/orders/:orderId/payment", h.payment)
	g.POST("/cancel-order/:orderId", h.cancel)
	g.PUT("/orders/:orderId/status", h.updateStatus)
}

func (h *OrderHandler) create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req OrderCreateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	//二重送信防止キーはヘッダーから受け取る（bodyには入れない）
	idemKey := c.Request().Header.Get("X-Idempotency-Key")

	out, created, err := h.uc.PlaceOrder(c.Request().Context(), userID, usecase.PlaceOrderInput{
		AddressID:       req.AddressID,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		IdempotencyKey:  idemKey,
	})
	if err != nil {
		return writeError(c, err)
	}

	if !created {
		return respond(c, http.StatusOK, "order already placed", echo.Map{"order": out})
	}
	return respond(c, http.StatusCreated, "order placed", echo.Map{"order": out})
}

func (h *OrderHandler) list(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	page, err := queryInt(c, "page", 1)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid page")
	}
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid limit")
	}

	orders, total, err := h.uc.ListMyOrders(c.Request().Context(), userID, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "", echo.Map{"orders": orders, "total": total})
}

func (h *OrderHandler) detail(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, ok := pathID(c, "orderId")
	if !ok {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	out, err := h.uc.GetMyOrder(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "", echo.Map{"order": out})
}

func (h *OrderHandler) payment(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, ok := pathID(c, "orderId")
	if !ok {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	out, err := h.uc.GetPayment(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "", echo.Map{"payment": out})
}

func (h *OrderHandler) cancel(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, ok := pathID(c, "orderId")
	if !ok {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	out, err := h.uc.CancelOrder(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "order cancelled", echo.Map{"order": out})
}

// 受取確認（delivered→success）かキャンセルだけ
func (h *OrderHandler) updateStatus(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, ok := pathID(c, "orderId")
	if !ok {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	var req OrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.uc.UpdateStatusByUser(c.Request().Context(), userID, id, req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "order status updated", echo.Map{"order": out})
}
