package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/middleware"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

const maxReviewUploads = 5

// product_idsは配列、product_idは単数指定
type reviewRequest struct {
	OrderID    json.RawMessage   `json:"order_id"`
	ProductID  json.RawMessage   `json:"product_id"`
	ProductIDs []json.RawMessage `json:"product_ids"`
	Rating     json.RawMessage   `json:"rating"`
	Comment    *string           `json:"comment"`
	Images     []string          `json:"images"`
}

type ReviewHandler struct {
	uc     *usecase.ReviewUsecase
	images ImageStore
}

func NewReviewHandler(uc *usecase.ReviewUsecase, images ImageStore) *ReviewHandler {
	return &ReviewHandler{uc: uc, images: images}
}

func (h *ReviewHandler) RegisterRoutes(user *echo.Group) {
	user.POST("/review", h.submit)
	user.GET("/reviews", h.listMine)
	user.PUT("/reviews/:reviewId", h.update)
	user.DELETE("/reviews/:reviewId", h.delete)
}

func (h *ReviewHandler) RegisterAdminRoutes(admin *echo.Group) {
	admin.GET("/reviews", h.adminList)
	admin.GET("/reviews/:id", h.adminGet)
	admin.DELETE("/reviews/:id", h.delete)
	admin.GET("/product-reviews/:productId", h.adminListBy("productId"))
	admin.GET("/order-reviews/:orderId", h.adminListBy("orderId"))
	admin.GET("/user-reviews/:userId", h.adminListBy("userId"))
}

func (h *ReviewHandler) submit(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	in, uploaded, err := h.readSubmit(c)
	if err != nil {
		return formError(c, err)
	}

	created, err := h.uc.Submit(c.Request().Context(), userID, in)
	if err != nil {
		discardUploads(c, h.images, uploaded...)
		return writeError(c, err)
	}
	return respond(c, http.StatusCreated, "review added", echo.Map{"reviews": created})
}

func (h *ReviewHandler) update(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	reviewID, ok := pathID(c, "reviewId")
	if !ok {
		return fail(c, http.StatusBadRequest, "invalid review id")
	}

	var in usecase.UpdateReviewInput
	var uploaded []string
	if isMultipart(c) {
		if v := strings.TrimSpace(c.FormValue("rating")); v != "" {
			rating, err := strconv.Atoi(v)
			if err != nil {
				return fail(c, http.StatusBadRequest, "rating must be a number")
			}
			in.Rating = &rating
		}
		if form, err := c.MultipartForm(); err == nil {
			if _, ok := form.Value["comment"]; ok {
				comment := c.FormValue("comment")
				in.Comment = &comment
			}
		}
		urls, err := h.saveImages(c)
		if err != nil {
			return formError(c, err)
		}
		if len(urls) > 0 {
			uploaded = urls
			in.Images = urls
		}
	} else {
		var req reviewRequest
		if err := c.Bind(&req); err != nil {
			return fail(c, http.StatusBadRequest, "invalid body")
		}
		if len(req.Rating) > 0 && string(req.Rating) != "null" {
			rating, err := parseFlexibleInt(req.Rating)
			if err != nil {
				return fail(c, http.StatusBadRequest, "rating must be a number")
			}
			r := int(rating)
			in.Rating = &r
		}
		in.Comment = req.Comment
		in.Images = req.Images
	}

	rv, err := h.uc.Update(c.Request().Context(), userID, reviewID, in)
	if err != nil {
		discardUploads(c, h.images, uploaded...)
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "review updated", echo.Map{"review": rv})
}

// 本人用と管理者用で共通。管理者かどうかはミドルウェアが入れたロールで見る
func (h *ReviewHandler) delete(c echo.Context) error {
	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	name := "reviewId"
	if c.Param("id") != "" {
		name = "id"
	}
	reviewID, ok := pathID(c, name)
	if !ok {
		return fail(c, http.StatusBadRequest, "invalid review id")
	}

	isAdmin := name == "id" && middleware.IsAdmin(c)
	if err := h.uc.Delete(c.Request().Context(), actorID, isAdmin, reviewID); err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "review deleted", nil)
}

func (h *ReviewHandler) listMine(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	page, limit, ok := pageParams(c)
	if !ok {
		return fail(c, http.StatusBadRequest, "invalid page or limit")
	}

	out, err := h.uc.ListMine(c.Request().Context(), userID, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "", echo.Map{"reviews": out.Items, "total": out.Total})
}

func (h *ReviewHandler) adminList(c echo.Context) error {
	page, limit, ok := pageParams(c)
	if !ok {
		return fail(c, http.StatusBadRequest, "invalid page or limit")
	}

	f := repo.ReviewFilter{Page: page, Limit: limit}
	var err error
	if f.ProductID, err = queryInt64Ptr(c, "product_id"); err != nil {
		return fail(c, http.StatusBadRequest, "invalid product_id")
	}
	if f.UserID, err = queryInt64Ptr(c, "user_id"); err != nil {
		return fail(c, http.StatusBadRequest, "invalid user_id")
	}
	if f.OrderID, err = queryInt64Ptr(c, "order_id"); err != nil {
		return fail(c, http.StatusBadRequest, "invalid order_id")
	}
	if v := c.QueryParam("rating"); v != "" {
		rating, err := strconv.Atoi(v)
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid rating")
		}
		f.Rating = &rating
	}

	out, err := h.uc.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "", echo.Map{
		"reviews": out.Items,
		"total":   out.Total,
		"page":    out.Page,
		"limit":   out.Limit,
	})
}

func (h *ReviewHandler) adminGet(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return fail(c, http.StatusBadRequest, "invalid review id")
	}
	rv, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "", echo.Map{"review": rv})
}

// /product-reviews/:productId などパスのIDで絞り込む
func (h *ReviewHandler) adminListBy(param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, param)
		if !ok {
			return fail(c, http.StatusBadRequest, "invalid id")
		}
		page, limit, ok := pageParams(c)
		if !ok {
			return fail(c, http.StatusBadRequest, "invalid page or limit")
		}

		var f repo.ReviewFilter
		switch param {
		case "productId":
			f = reviewFilterFor(&id, nil, nil, page, limit)
		case "orderId":
			f = reviewFilterFor(nil, nil, &id, page, limit)
		default:
			f = reviewFilterFor(nil, &id, nil, page, limit)
		}

		out, err := h.uc.List(c.Request().Context(), f)
		if err != nil {
			return writeError(c, err)
		}
		return respond(c, http.StatusOK, "", echo.Map{"reviews": out.Items, "total": out.Total})
	}
}

var errTooManyImages = errors.New("too many images")

// uploadedはこのリクエストで保存した画像のURL。JSONで渡されたURLは含まない
func (h *ReviewHandler) readSubmit(c echo.Context) (usecase.SubmitReviewInput, []string, error) {
	var in usecase.SubmitReviewInput

	if isMultipart(c) {
		orderID, err := parseFlexibleInt(json.RawMessage(strings.TrimSpace(c.FormValue("order_id"))))
		if err != nil {
			return in, nil, errInvalidBody
		}
		in.OrderID = orderID

		ids, err := parseIDList(c.FormValue("product_ids"))
		if err != nil {
			return in, nil, err
		}
		if len(ids) == 0 && strings.TrimSpace(c.FormValue("product_id")) != "" {
			if ids, err = parseIDList(c.FormValue("product_id")); err != nil {
				return in, nil, err
			}
		}
		in.ProductIDs = ids

		rating, err := strconv.Atoi(strings.TrimSpace(c.FormValue("rating")))
		if err != nil {
			return in, nil, errInvalidBody
		}
		in.Rating = rating
		in.Comment = c.FormValue("comment")

		urls, err := h.saveImages(c)
		if err != nil {
			return in, nil, err
		}
		in.Images = urls
		return in, urls, nil
	}

	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return in, nil, errInvalidBody
	}
	orderID, err := parseFlexibleInt(req.OrderID)
	if err != nil {
		return in, nil, errInvalidBody
	}
	in.OrderID = orderID

	for _, raw := range req.ProductIDs {
		id, err := parseFlexibleInt(raw)
		if err != nil {
			return in, nil, errInvalidBody
		}
		in.ProductIDs = append(in.ProductIDs, id)
	}
	if len(in.ProductIDs) == 0 && len(req.ProductID) > 0 && string(req.ProductID) != "null" {
		id, err := parseFlexibleInt(req.ProductID)
		if err != nil {
			return in, nil, errInvalidBody
		}
		in.ProductIDs = []int64{id}
	}

	rating, err := parseFlexibleInt(req.Rating)
	if err != nil {
		return in, nil, errInvalidBody
	}
	in.Rating = int(rating)
	if req.Comment != nil {
		in.Comment = *req.Comment
	}
	in.Images = req.Images
	return in, nil, nil
}

// imagesフィールドのファイルを保存（最大5枚）
func (h *ReviewHandler) saveImages(c echo.Context) ([]string, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, errInvalidBody
	}
	files := form.File["images"]
	if len(files) > maxReviewUploads {
		return nil, errTooManyImages
	}

	urls := make([]string, 0, len(files))
	for _, fh := range files {
		url, err := h.images.Save("reviews", fh)
		if err != nil {
			discardUploads(c, h.images, urls...)
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func reviewFilterFor(productID, userID, orderID *int64, page, limit int) repo.ReviewFilter {
	return repo.ReviewFilter{
		ProductID: productID,
		UserID:    userID,
		OrderID:   orderID,
		Page:      page,
		Limit:     limit,
	}
}

// 既定はpage=1, limit=50
func pageParams(c echo.Context) (int, int, bool) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return 0, 0, false
	}
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return 0, 0, false
	}
	return page, limit, true
}

// "1,2" または "[1,2]"
func parseIDList(v string) ([]int64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	v = strings.TrimSuffix(strings.TrimPrefix(v, "["), "]")

	var ids []int64
	for _, part := range strings.Split(v, ",") {
		part = strings.Trim(strings.TrimSpace(part), `"`)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, errInvalidBody
		}
		ids = append(ids, id)
	}
	return ids, nil
}
