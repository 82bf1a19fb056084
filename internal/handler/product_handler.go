package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /user/products の閲覧API
type ProductHandler struct {
	uc      *usecase.ProductUsecase
	reviews *usecase.ReviewUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase, reviews *usecase.ReviewUsecase) *ProductHandler {
	return &ProductHandler{uc: uc, reviews: reviews}
}

func (h *ProductHandler) RegisterRoutes(user *echo.Group) {
	user.GET("/products", h.list)
	user.GET("/products/:productId", h.detail)
	user.GET("/products/:productId/reviews", h.reviewsOf)
}

func (h *ProductHandler) list(c echo.Context) error {
	// page（default 1）
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid page")
	}
	// limit（default 20）
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid limit")
	}
	minPrice, err := queryInt64Ptr(c, "min_price")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid min_price")
	}
	maxPrice, err := queryInt64Ptr(c, "max_price")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid max_price")
	}

	out, err := h.uc.ListProducts(c.Request().Context(), usecase.ListProductsInput{
		Page:     page,
		Limit:    limit,
		Category: c.QueryParam("category"),
		Q:        c.QueryParam("q"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Sort:     c.QueryParam("sort"),
	})
	if err != nil {
		return writeError(c, err)
	}

	return respond(c, http.StatusOK, "", echo.Map{
		"products": out.Items,
		"total":    out.Total,
		"page":     out.Page,
		"limit":    out.Limit,
	})
}

func (h *ProductHandler) detail(c echo.Context) error {
	id, ok := pathID(c, "productId")
	if !ok {
		return fail(c, http.StatusBadRequest, "invalid product id")
	}

	p, err := h.uc.GetProduct(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "", echo.Map{"product": p})
}

// 削除済み商品のレビューも読める
func (h *ProductHandler) reviewsOf(c echo.Context) error {
	id, ok := pathID(c, "productId")
	if !ok {
		return fail(c, http.StatusBadRequest, "invalid product id")
	}
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid page")
	}
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid limit")
	}

	out, err := h.reviews.List(c.Request().Context(), reviewFilterFor(&id, nil, nil, page, limit))
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "", echo.Map{
		"reviews": out.Items,
		"total":   out.Total,
	})
}
