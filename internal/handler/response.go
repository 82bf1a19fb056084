package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/infra/export"
	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// すべてのレスポンスは {"success": bool, "message"?: string, ...} の形
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, ErrorResponse{Success: false, Message: message})
}

// payloadのキーをトップレベルに並べる
func respond(c echo.Context, status int, message string, payload echo.Map) error {
	body := echo.Map{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	return c.JSON(status, body)
}

// usecaseのエラーをHTTPに。原因はログにだけ出す
func writeError(c echo.Context, err error) error {
	if he, ok := usecase.AsHTTPError(err); ok {
		if he.Err != nil || he.Status >= http.StatusInternalServerError {
			c.Logger().Errorf("request_id=%s status=%d message=%q err=%v",
				requestID(c), he.Status, he.Message, he.Err)
		}
		return fail(c, he.Status, he.Message)
	}

	c.Logger().Errorf("request_id=%s unexpected error: %v", requestID(c), err)
	return fail(c, http.StatusInternalServerError, "internal server error")
}

func requestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}

func getUserIDFromContext(c echo.Context) (int64, bool) {
	return middleware.UserID(c)
}

func pathID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// 空ならdef
func queryInt(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func queryInt64Ptr(c echo.Context, name string) (*int64, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

var errNotNumber = errors.New("not a number")

// JSONの数値と数字文字列の両方を受ける
func parseFlexibleInt(raw json.RawMessage) (int64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, errNotNumber
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0, errNotNumber
		}
		s = strings.TrimSpace(str)
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errNotNumber
	}
	return i, nil
}

func sendXLSX(c echo.Context, filename string, data []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+filename)
	return c.Blob(http.StatusOK, export.ContentType, data)
}
