package server_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type productDTO struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Price         int64    `json:"price"`
	Sizes         []string `json:"size"`
	AverageRating float64  `json:"average_rating"`
	ReviewCount   int64    `json:"review_count"`
}

type productResponse struct {
	apiResponse
	Product productDTO `json:"product"`
}

type cartResponse struct {
	apiResponse
	Cart struct {
		TotalAmount int64 `json:"total_amount"`
		Items       []struct {
			ProductID int64  `json:"product_id"`
			Quantity  int64  `json:"quantity"`
			Size      string `json:"size"`
			Subtotal  int64  `json:"subtotal"`
		} `json:"items"`
	} `json:"cart"`
}

type orderDTO struct {
	ID            int64  `json:"id"`
	TotalPrice    int64  `json:"total_price"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	IsPaid        bool   `json:"is_paid"`
	IsDelivered   bool   `json:"is_delivered"`
	Version       int64  `json:"version"`
	Items         []struct {
		ProductID int64 `json:"product_id"`
		Price     int64 `json:"price"`
		Quantity  int64 `json:"quantity"`
	} `json:"items"`
}

type orderResponse struct {
	apiResponse
	Order orderDTO `json:"order"`
}

func createProduct(t *testing.T, c *TestClient, admin, name string, price int64) productDTO {
	t.Helper()

	resp, body := c.doJSON(t, http.MethodPost, "/admin/add", admin, map[string]any{
		"category":    "shirts",
		"name":        name,
		"color":       "black",
		"size":        []string{"M", "L"},
		"description": name + " description",
		"price":       price,
		"image_link":  "http://img/" + name + ".png",
	})
	requireStatus(t, resp, http.StatusCreated, body)
	return mustDecode[productResponse](t, body).Product
}

func addToCart(t *testing.T, c *TestClient, token string, productID, qty int64) cartResponse {
	t.Helper()

	resp, body := c.doJSON(t, http.MethodPost, "/user/add_cart", token, map[string]any{
		"product_id": productID,
		"quantity":   qty,
	})
	requireStatus(t, resp, http.StatusOK, body)
	return mustDecode[cartResponse](t, body)
}

func checkout(t *testing.T, c *TestClient, token, key string) orderDTO {
	t.Helper()

	resp, body := c.doJSON(t, http.MethodPost, "/user/checkout", token, map[string]any{
		"payment_method": "COD",
		"shipping_address": map[string]string{
			"address":     "1-2-3 Chuo",
			"city":        "Tokyo",
			"postal_code": "100-0001",
			"country":     "JP",
		},
	}, "X-Idempotency-Key", key)
	requireStatus(t, resp, http.StatusCreated, body)
	return mustDecode[orderResponse](t, body).Order
}

// pending → approved → prepare → delivered → success
func completeOrder(t *testing.T, c *TestClient, admin string, order orderDTO) orderDTO {
	t.Helper()

	for _, status := range []string{"approved", "prepare", "delivered", "success"} {
		resp, body := c.doJSON(t, http.MethodPut, "/admin/order/"+toStr(order.ID)+"/status", admin, map[string]any{
			"status":  status,
			"version": order.Version,
		})
		requireStatus(t, resp, http.StatusOK, body)
		order = mustDecode[orderResponse](t, body).Order
		require.Equal(t, status, order.Status)
	}
	return order
}

func submitReview(t *testing.T, c *TestClient, token string, orderID, productID int64, rating int) {
	t.Helper()

	resp, body := c.doJSON(t, http.MethodPost, "/user/review", token, map[string]any{
		"order_id":   orderID,
		"product_id": productID,
		"rating":     rating,
		"comment":    "ok",
	})
	requireStatus(t, resp, http.StatusCreated, body)
}

func TestStorefrontFlow(t *testing.T) {
	c := NewTestClient(t)

	admin := c.adminLogin(t)
	shirt := createProduct(t, c, admin, "shirt", 100)
	socks := createProduct(t, c, admin, "socks", 50)
	assert.Equal(t, []string{"M", "L"}, shirt.Sizes)

	alice := c.registerUser(t, "alice", "alice@example.com", "0900000001")

	// 100×2 + 50×1
	addToCart(t, c, alice, shirt.ID, 2)
	cart := addToCart(t, c, alice, socks.ID, 1)
	assert.Equal(t, int64(250), cart.Cart.TotalAmount)
	require.Len(t, cart.Cart.Items, 2)
	assert.Equal(t, "M", cart.Cart.Items[0].Size)

	order := checkout(t, c, alice, "alice-1")
	assert.Equal(t, int64(250), order.TotalPrice)
	assert.Equal(t, "pending", order.Status)
	require.Len(t, order.Items, 2)

	// 同じキーは同じ注文を返す
	resp, body := c.doJSON(t, http.MethodPost, "/user/checkout", alice, map[string]any{
		"payment_method":   "COD",
		"shipping_address": map[string]string{"address": "x", "city": "x", "postal_code": "x", "country": "x"},
	}, "X-Idempotency-Key", "alice-1")
	requireStatus(t, resp, http.StatusOK, body)
	assert.Equal(t, order.ID, mustDecode[orderResponse](t, body).Order.ID)

	// 注文後はカートが空
	resp, body = c.doJSON(t, http.MethodGet, "/user/cart", alice, nil)
	requireStatus(t, resp, http.StatusOK, body)
	assert.Zero(t, mustDecode[cartResponse](t, body).Cart.TotalAmount)

	stale := order.Version
	order = completeOrder(t, c, admin, order)
	assert.True(t, order.IsPaid)
	assert.True(t, order.IsDelivered)
	assert.Equal(t, "paid", order.PaymentStatus)

	// 古いversionでの更新は409
	resp, body = c.doJSON(t, http.MethodPut, "/admin/order/"+toStr(order.ID)+"/payment-status", admin, map[string]any{
		"payment_status": "refunded",
		"version":        stale,
	})
	requireStatus(t, resp, http.StatusConflict, body)

	// 完了した注文はキャンセルできない
	resp, body = c.doJSON(t, http.MethodPost, "/user/cancel-order/"+toStr(order.ID), alice, nil)
	requireStatus(t, resp, http.StatusConflict, body)

	submitReview(t, c, alice, order.ID, shirt.ID, 4)

	bob := c.registerUser(t, "bob", "bob@example.com", "0900000002")
	addToCart(t, c, bob, shirt.ID, 1)
	bobOrder := completeOrder(t, c, admin, checkout(t, c, bob, "bob-1"))
	submitReview(t, c, bob, bobOrder.ID, shirt.ID, 2)

	resp, body = c.doJSON(t, http.MethodGet, "/user/products/"+toStr(shirt.ID), alice, nil)
	requireStatus(t, resp, http.StatusOK, body)
	got := mustDecode[productResponse](t, body).Product
	assert.InDelta(t, 3.0, got.AverageRating, 0.0001)
	assert.Equal(t, int64(2), got.ReviewCount)

	// 同じ商品を同じ注文で二度は書けない
	resp, body = c.doJSON(t, http.MethodPost, "/user/review", bob, map[string]any{
		"order_id":   bobOrder.ID,
		"product_id": shirt.ID,
		"rating":     5,
	})
	requireStatus(t, resp, http.StatusConflict, body)
}

func TestAuthGuards(t *testing.T) {
	c := NewTestClient(t)

	resp, body := c.doJSON(t, http.MethodGet, "/health", "", nil)
	requireStatus(t, resp, http.StatusOK, body)

	resp, body = c.doJSON(t, http.MethodGet, "/user/cart", "", nil)
	requireStatus(t, resp, http.StatusUnauthorized, body)

	alice := c.registerUser(t, "alice", "alice@example.com", "0900000001")

	// USERは管理APIに入れない
	resp, body = c.doJSON(t, http.MethodGet, "/admin/orders", alice, nil)
	requireStatus(t, resp, http.StatusForbidden, body)

	resp, body = c.doJSON(t, http.MethodPost, "/admin/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "s3cret-pass",
	})
	requireStatus(t, resp, http.StatusForbidden, body)

	resp, body = c.doJSON(t, http.MethodPost, "/user/register", "", map[string]string{
		"username":         "alice2",
		"email":            "alice@example.com",
		"phone":            "0900000009",
		"password":         "s3cret-pass",
		"confirm_password": "s3cret-pass",
	})
	requireStatus(t, resp, http.StatusConflict, body)

	resp, body = c.doJSON(t, http.MethodPost, "/user/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong-pass-1",
	})
	requireStatus(t, resp, http.StatusUnauthorized, body)

	// 強制ログアウト後は古いトークンが使えない
	admin := c.adminLogin(t)
	resp, body = c.doJSON(t, http.MethodGet, "/user/get-user", alice, nil)
	requireStatus(t, resp, http.StatusOK, body)
	me := mustDecode[struct {
		User userDTO `json:"user"`
	}](t, body)

	resp, body = c.doJSON(t, http.MethodPost, "/admin/users/"+toStr(me.User.ID)+"/force-logout", admin, nil)
	requireStatus(t, resp, http.StatusOK, body)

	resp, body = c.doJSON(t, http.MethodGet, "/user/get-user", alice, nil)
	requireStatus(t, resp, http.StatusUnauthorized, body)
}
