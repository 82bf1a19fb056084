package handler

import (
	"bytes"
	"net/http"

	"storefront/internal/domain/model"
	"storefront/internal/infra/export"
	"storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminOrderHandler struct {
	uc *usecase.AdminOrderUsecase
}

func NewAdminOrderHandler(uc *usecase.AdminOrderUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc}
}

// versionを付けると読み込み後に他の管理者が更新していた場合409
type OrderStatusUpdateRequest struct {
	Status  string `json:"status"`
	Version *int64 `json:"version"`
}

type PaymentStatusUpdateRequest struct {
	PaymentStatus string `json:"payment_status"`
	Version       *int64 `json:"version"`
}

// 管理者グループに登録
func (h *AdminOrderHandler) RegisterRoutes(admin *echo.Group) {
	admin.GET("/orders", h.list)
	admin.GET("/orders/export", h.export)
	admin.GET("/order/:id", h.detail)
	admin.PUT("/order/:id/status", h.updateStatus)
	admin.PUT("/order/:id/payment-status", h.updatePaymentStatus)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	f, err := orderFilter(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	out, err := h.uc.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "", echo.Map{
		"orders": out.Items,
		"total":  out.Total,
		"page":   out.Page,
		"limit":  out.Limit,
	})
}

func (h *AdminOrderHandler) export(c echo.Context) error {
	f, err := orderFilter(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	outs, err := h.uc.ListForExport(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}

	orders := make([]model.Order, 0, len(outs))
	items := make(map[int64][]model.OrderItem, len(outs))
	for _, o := range outs {
		orders = append(orders, o.Order)
		items[o.ID] = o.Items
	}

	var buf bytes.Buffer
	if err := export.WriteOrders(&buf, orders, items); err != nil {
		return writeError(c, err)
	}
	return sendXLSX(c, "orders.xlsx", buf.Bytes())
}

func (h *AdminOrderHandler) detail(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	out, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "", echo.Map{"order": out})
}

func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	orderID, ok := pathID(c, "id")
	if !ok {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	var req OrderStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	//操作した管理者IDを取得（監査ログ用）
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	out, err := h.uc.UpdateStatus(c.Request().Context(), adminID, orderID, usecase.AdminUpdateOrderStatusInput{
		Status:  req.Status,
		Version: req.Version,
	})
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "order status updated", echo.Map{"order": out})
}

func (h *AdminOrderHandler) updatePaymentStatus(c echo.Context) error {
	orderID, ok := pathID(c, "id")
	if !ok {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	var req PaymentStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	out, err := h.uc.UpdatePaymentStatus(c.Request().Context(), adminID, orderID, usecase.AdminUpdatePaymentStatusInput{
		PaymentStatus: req.PaymentStatus,
		Version:       req.Version,
	})
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "payment status updated", echo.Map{"order": out})
}

type filterError string

func (e filterError) Error() string { return string(e) }

// page, limit, status, user_id, from, to（RFC3339）
func orderFilter(c echo.Context) (repository.AdminOrderListFilter, error) {
	var f repository.AdminOrderListFilter
	var err error

	if f.Page, err = queryInt(c, "page", 1); err != nil {
		return f, filterError("invalid page")
	}
	if f.Limit, err = queryInt(c, "limit", 50); err != nil {
		return f, filterError("invalid limit")
	}
	f.Status = c.QueryParam("status")

	if f.UserID, err = queryInt64Ptr(c, "user_id"); err != nil {
		return f, filterError("invalid user_id")
	}

	if f.From, err = queryTime(c, "from"); err != nil {
		return f, filterError("invalid from")
	}
	if f.To, err = queryTime(c, "to"); err != nil {
		return f, filterError("invalid to")
	}
	return f, nil
}
