package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"storefront/internal/infra/export"
	"storefront/internal/infra/storage"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 画像を保存して公開URLを返す。Deleteは保存後に処理が失敗したときの後始末
type ImageStore interface {
	Save(folder string, fh *multipart.FileHeader) (string, error)
	Delete(url string) error
}

// このリクエストで保存した画像を消す。失敗はログだけ
func discardUploads(c echo.Context, images ImageStore, urls ...string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := images.Delete(url); err != nil {
			c.Logger().Warnf("request_id=%s discard upload %s: %v", requestID(c), url, err)
		}
	}
}

// JSONで送る場合。sizeは配列でもカンマ区切り文字列でもよい
type productRequest struct {
	ID          json.RawMessage `json:"id"`
	Category    string          `json:"category"`
	Name        string          `json:"name"`
	Color       string          `json:"color"`
	Size        json.RawMessage `json:"size"`
	Description string          `json:"description"`
	Price       json.RawMessage `json:"price"`
	ImageLink   string          `json:"image_link"`
	Image       string          `json:"image"`
}

// /admin/add|edit|delete|list
type AdminProductHandler struct {
	uc     *usecase.ProductUsecase
	images ImageStore
}

// DI
func NewAdminProductHandler(uc *usecase.ProductUsecase, images ImageStore) *AdminProductHandler {
	return &AdminProductHandler{uc: uc, images: images}
}

// 管理者グループに登録
func (h *AdminProductHandler) RegisterRoutes(admin *echo.Group) {
	admin.POST("/add", h.createProduct)
	admin.POST("/edit", h.updateProduct)
	admin.POST("/delete", h.deleteProduct)
	admin.GET("/list", h.listProducts)
	admin.GET("/products/export", h.exportProducts)
}

func (h *AdminProductHandler) createProduct(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	_, in, uploaded, err := h.readProduct(c)
	if err != nil {
		return formError(c, err)
	}

	p, err := h.uc.AdminCreateProduct(c.Request().Context(), adminID, in)
	if err != nil {
		discardUploads(c, h.images, uploaded)
		return writeError(c, err)
	}
	return respond(c, http.StatusCreated, "product added", echo.Map{"product": p})
}

func (h *AdminProductHandler) updateProduct(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	id, in, uploaded, err := h.readProduct(c)
	if err != nil {
		return formError(c, err)
	}
	if id <= 0 {
		discardUploads(c, h.images, uploaded)
		return fail(c, http.StatusBadRequest, "invalid product id")
	}

	p, err := h.uc.AdminUpdateProduct(c.Request().Context(), adminID, id, in)
	if err != nil {
		discardUploads(c, h.images, uploaded)
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "product updated", echo.Map{"product": p})
}

func (h *AdminProductHandler) deleteProduct(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	id, err := parseFlexibleInt(req.ID)
	if err != nil || id <= 0 {
		return fail(c, http.StatusBadRequest, "invalid product id")
	}

	if err := h.uc.AdminDeleteProduct(c.Request().Context(), adminID, id); err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "product deleted", nil)
}

func (h *AdminProductHandler) listProducts(c echo.Context) error {
	list, err := h.uc.ListAll(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, "", echo.Map{"products": list})
}

func (h *AdminProductHandler) exportProducts(c echo.Context) error {
	list, err := h.uc.ListAll(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}

	var buf bytes.Buffer
	if err := export.WriteProducts(&buf, list); err != nil {
		return writeError(c, err)
	}
	return sendXLSX(c, "products.xlsx", buf.Bytes())
}

var (
	errInvalidBody  = errors.New("invalid body")
	errInvalidPrice = errors.New("price must be a number")
	errInvalidSize  = errors.New("size must be an array or comma separated")
)

// multipartならフォーム値とimageファイル、それ以外はJSON。
// uploadedはこのリクエストで保存した画像のURL
func (h *AdminProductHandler) readProduct(c echo.Context) (id int64, in usecase.AdminProductInput, uploaded string, err error) {
	if isMultipart(c) {
		in.Category = c.FormValue("category")
		in.Name = c.FormValue("name")
		in.Color = c.FormValue("color")
		in.Description = c.FormValue("description")

		sizes, err := parseSizes(c.FormValue("size"))
		if err != nil {
			return 0, in, "", err
		}
		in.Sizes = sizes

		if v := strings.TrimSpace(c.FormValue("price")); v != "" {
			price, err := parseFlexibleInt(json.RawMessage(v))
			if err != nil {
				return 0, in, "", errInvalidPrice
			}
			in.Price = &price
		}

		if v := strings.TrimSpace(c.FormValue("id")); v != "" {
			if id, err = parseFlexibleInt(json.RawMessage(v)); err != nil {
				return 0, in, "", errInvalidBody
			}
		}

		// 入力チェックが済んでから保存する
		uploaded, err = h.uploadedImage(c, "products")
		if err != nil {
			return 0, in, "", err
		}
		in.Image = uploaded
		if in.Image == "" {
			in.Image = c.FormValue("image_link")
		}
		return id, in, uploaded, nil
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return 0, in, "", errInvalidBody
	}
	in.Category = req.Category
	in.Name = req.Name
	in.Color = req.Color
	in.Description = req.Description

	sizes, err := parseSizesJSON(req.Size)
	if err != nil {
		return 0, in, "", err
	}
	in.Sizes = sizes

	if len(req.Price) > 0 && string(req.Price) != "null" {
		price, err := parseFlexibleInt(req.Price)
		if err != nil {
			return 0, in, "", errInvalidPrice
		}
		in.Price = &price
	}

	in.Image = req.ImageLink
	if in.Image == "" {
		in.Image = req.Image
	}

	if len(req.ID) > 0 {
		if id, err = parseFlexibleInt(req.ID); err != nil {
			return 0, in, "", errInvalidBody
		}
	}
	return id, in, "", nil
}

// ファイルが無ければ空文字
func (h *AdminProductHandler) uploadedImage(c echo.Context, folder string) (string, error) {
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", errInvalidBody
	}
	return h.images.Save(folder, fh)
}

func formError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, storage.ErrUnsupportedType),
		errors.Is(err, storage.ErrTooLarge),
		errors.Is(err, errInvalidBody),
		errors.Is(err, errInvalidPrice),
		errors.Is(err, errInvalidSize),
		errors.Is(err, errTooManyImages):
		return fail(c, http.StatusBadRequest, err.Error())
	}
	return writeError(c, err)
}

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

// "S,M,L" または ["S","M","L"]
func parseSizes(v string) ([]string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if strings.HasPrefix(v, "[") {
		var list []string
		if err := json.Unmarshal([]byte(v), &list); err != nil {
			return nil, errInvalidSize
		}
		return list, nil
	}
	return strings.Split(v, ","), nil
}

func parseSizesJSON(raw json.RawMessage) ([]string, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil, nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return nil, errInvalidSize
		}
		return parseSizes(str)
	}
	return parseSizes(s)
}
