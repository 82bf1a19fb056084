package handler

import (
	"net/http"
	"strconv"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 管理画面の集計（読み取りのみ）
type StatsHandler struct {
	uc *usecase.StatsUsecase
}

func NewStatsHandler(uc *usecase.StatsUsecase) *StatsHandler {
	return &StatsHandler{uc: uc}
}

func (h *StatsHandler) RegisterRoutes(admin *echo.Group) {
	admin.GET("/dashboard", h.dashboard)
	admin.GET("/order-stats", h.orderStats)
	admin.GET("/review-stats", h.reviewStats)
	admin.GET("/audit-logs", h.auditLogs)
}

func (h *StatsHandler) dashboard(c echo.Context) error {
	s, err := h.uc.Dashboard(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "", echo.Map{"stats": s})
}

func (h *StatsHandler) orderStats(c echo.Context) error {
	s, err := h.uc.OrderStats(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "", echo.Map{"stats": s})
}

func (h *StatsHandler) reviewStats(c echo.Context) error {
	s, err := h.uc.ReviewStats(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "", echo.Map{"stats": s})
}

// actor_id, action, resource_type, resource_id, from, to (RFC3339), limit, offset
func (h *StatsHandler) auditLogs(c echo.Context) error {
	var f repo.AuditLogFilter
	var err error

	if f.ActorUserID, err = queryInt64Ptr(c, "actor_id"); err != nil {
		return fail(c, http.StatusBadRequest, "invalid actor_id")
	}
	if f.ResourceID, err = queryInt64Ptr(c, "resource_id"); err != nil {
		return fail(c, http.StatusBadRequest, "invalid resource_id")
	}
	if v := c.QueryParam("action"); v != "" {
		a := model.AuditAction(v)
		f.Action = &a
	}
	if v := c.QueryParam("resource_type"); v != "" {
		t := model.AuditResourceType(v)
		f.ResourceType = &t
	}
	if f.CreatedFrom, err = queryTime(c, "from"); err != nil {
		return fail(c, http.StatusBadRequest, "invalid from")
	}
	if f.CreatedTo, err = queryTime(c, "to"); err != nil {
		return fail(c, http.StatusBadRequest, "invalid to")
	}
	if f.Limit, err = queryInt(c, "limit", 50); err != nil || f.Limit < 1 || f.Limit > 200 {
		return fail(c, http.StatusBadRequest, "invalid limit")
	}
	if v := c.QueryParam("offset"); v != "" {
		if f.Offset, err = strconv.Atoi(v); err != nil || f.Offset < 0 {
			return fail(c, http.StatusBadRequest, "invalid offset")
		}
	}

	logs, err := h.uc.AuditLogs(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "", echo.Map{"logs": logs})
}

func queryTime(c echo.Context, name string) (*time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
