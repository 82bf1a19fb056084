package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 100×2 + 50×1 のカートを作る
func (e *testEnv) fillCart(t *testing.T, userID int64) (model.Product, model.Product) {
	t.Helper()
	ctx := context.Background()
	shirt := e.seedProduct(t, "shirt", 100)
	hat := e.seedProduct(t, "hat", 50)
	_, err := e.cart.AddItem(ctx, userID, usecase.AddCartInput{ProductID: shirt.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = e.cart.AddItem(ctx, userID, usecase.AddCartInput{ProductID: hat.ID, Quantity: 1})
	require.NoError(t, err)
	return shirt, hat
}

func (e *testEnv) placeOrder(t *testing.T, userID int64) usecase.OrderOutput {
	t.Helper()
	out, created, err := e.orders.PlaceOrder(context.Background(), userID, usecase.PlaceOrderInput{
		ShippingAddress: testShipping,
		PaymentMethod:   "COD",
	})
	require.NoError(t, err)
	require.True(t, created)
	return out
}

func TestOrderUsecase_PlaceOrder_SnapshotsCartAndClearsIt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.seedUser(t, model.RoleUser)
	shirt, _ := env.fillCart(t, u.ID)

	out := env.placeOrder(t, u.ID)

	assert.Equal(t, int64(250), out.TotalPrice)
	assert.Equal(t, model.OrderStatusPending, out.Status)
	assert.Equal(t, model.PaymentStatusPending, out.PaymentStatus)
	assert.Equal(t, testShipping, out.ShippingAddress)
	require.Len(t, out.Items, 2)
	assert.Equal(t, "shirt", out.Items[0].Name)
	assert.Equal(t, int64(100), out.Items[0].Price)
	assert.Equal(t, "black", out.Items[0].Color)

	cart, err := env.cart.GetCart(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, int64(0), cart.TotalAmount)

	// 後から価格が変わっても注文は変わらない
	require.NoError(t, env.db.Model(&model.Product{}).Where("id = ?", shirt.ID).Update("price", 999).Error)
	got, err := env.orders.GetMyOrder(ctx, u.ID, out.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(250), got.TotalPrice)
	assert.Equal(t, int64(100), got.Items[0].Price)

	assert.Equal(t, 1, env.events.Len())
}

func TestOrderUsecase_PlaceOrder_Rejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.seedUser(t, model.RoleUser)

	// カートが空
	_, _, err := env.orders.PlaceOrder(ctx, u.ID, usecase.PlaceOrderInput{ShippingAddress: testShipping, PaymentMethod: "COD"})
	assertStatus(t, err, http.StatusBadRequest)

	env.fillCart(t, u.ID)

	_, _, err = env.orders.PlaceOrder(ctx, u.ID, usecase.PlaceOrderInput{ShippingAddress: testShipping})
	assertStatus(t, err, http.StatusBadRequest)

	_, _, err = env.orders.PlaceOrder(ctx, u.ID, usecase.PlaceOrderInput{ShippingAddress: testShipping, PaymentMethod: "CARD"})
	assertStatus(t, err, http.StatusBadRequest)

	_, _, err = env.orders.PlaceOrder(ctx, u.ID, usecase.PlaceOrderInput{
		ShippingAddress: model.ShippingAddress{Address: "x"},
		PaymentMethod:   "COD",
	})
	assertStatus(t, err, http.StatusBadRequest)

	// 失敗してもカートはそのまま
	cart, err := env.cart.GetCart(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
	assert.Equal(t, int64(250), cart.TotalAmount)
	assert.Equal(t, 0, env.events.Len())
}

func TestOrderUsecase_PlaceOrder_SameIdempotencyKeyReturnsSameOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.seedUser(t, model.RoleUser)
	env.fillCart(t, u.ID)

	in := usecase.PlaceOrderInput{ShippingAddress: testShipping, PaymentMethod: "COD", IdempotencyKey: "checkout-1"}
	first, created, err := env.orders.PlaceOrder(ctx, u.ID, in)
	require.NoError(t, err)
	require.True(t, created)

	// カートを詰め直しても同じキーなら触らない
	env.fillCart(t, u.ID)
	again, created, err := env.orders.PlaceOrder(ctx, u.ID, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Len(t, again.Items, 2)

	cart, err := env.cart.GetCart(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)

	_, total, err := env.orders.ListMyOrders(ctx, u.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestOrderUsecase_PlaceOrder_SavedAddress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.seedUser(t, model.RoleUser)
	other := env.seedUser(t, model.RoleUser)
	env.fillCart(t, u.ID)

	addr, err := env.addresses.Create(ctx, u.ID, usecase.AddressRequest{
		Label: "home", Address: "9-9 Kita", City: "Osaka", PostalCode: "530-0001", Country: "JP",
	})
	require.NoError(t, err)
	otherAddr, err := env.addresses.Create(ctx, other.ID, usecase.AddressRequest{
		Address: "1 Main", City: "Nagoya", PostalCode: "450-0001", Country: "JP",
	})
	require.NoError(t, err)

	_, _, err = env.orders.PlaceOrder(ctx, u.ID, usecase.PlaceOrderInput{AddressID: otherAddr.ID, PaymentMethod: "COD"})
	assertStatus(t, err, http.StatusForbidden)

	out, _, err := env.orders.PlaceOrder(ctx, u.ID, usecase.PlaceOrderInput{AddressID: addr.ID, PaymentMethod: "COD"})
	require.NoError(t, err)
	assert.Equal(t, "Osaka", out.ShippingAddress.City)
}

func TestOrderUsecase_QRPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.seedUser(t, model.RoleUser)
	env.fillCart(t, u.ID)

	out, _, err := env.orders.PlaceOrder(ctx, u.ID, usecase.PlaceOrderInput{ShippingAddress: testShipping, PaymentMethod: "QR_PAYMENT"})
	require.NoError(t, err)

	pay, err := env.orders.GetPayment(ctx, u.ID, out.ID)
	require.NoError(t, err)
	require.NotNil(t, pay.QR)
	assert.Equal(t, "Test Bank", pay.QR.BankName)
	assert.Contains(t, pay.QR.QRCode, "|250|")
	require.NotNil(t, pay.QR.QRExpiresAt)
	assert.True(t, pay.QR.QRExpiresAt.After(testNow))
	assert.False(t, pay.QRExpired)
}

func TestOrderUsecase_CancelOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.seedUser(t, model.RoleUser)
	stranger := env.seedUser(t, model.RoleUser)
	env.fillCart(t, u.ID)
	order := env.placeOrder(t, u.ID)

	// 他人の注文は存在しない扱い
	_, err := env.orders.CancelOrder(ctx, stranger.ID, order.ID)
	assertStatus(t, err, http.StatusNotFound)

	out, err := env.orders.CancelOrder(ctx, u.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, out.Status)
	assert.Equal(t, model.PaymentStatusRefunded, out.PaymentStatus)

	_, err = env.orders.CancelOrder(ctx, u.ID, order.ID)
	assertStatus(t, err, http.StatusConflict)
}

func TestOrderUsecase_CancelCompletedOrderConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedUser(t, model.RoleAdmin)
	u := env.seedUser(t, model.RoleUser)
	env.fillCart(t, u.ID)
	order := env.placeOrder(t, u.ID)

	_, err := env.adminOrder.UpdateStatus(ctx, admin.ID, order.ID, usecase.AdminUpdateOrderStatusInput{Status: "success"})
	require.NoError(t, err)

	_, err = env.orders.CancelOrder(ctx, u.ID, order.ID)
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, he.Status)
	assert.Equal(t, "order already completed", he.Message)
}

func TestOrderUsecase_UpdateStatusByUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedUser(t, model.RoleAdmin)
	u := env.seedUser(t, model.RoleUser)
	env.fillCart(t, u.ID)
	order := env.placeOrder(t, u.ID)

	// 配送前の受け取り確認はできない
	_, err := env.orders.UpdateStatusByUser(ctx, u.ID, order.ID, "success")
	assertStatus(t, err, http.StatusForbidden)

	_, err = env.orders.UpdateStatusByUser(ctx, u.ID, order.ID, "approved")
	assertStatus(t, err, http.StatusForbidden)

	_, err = env.adminOrder.UpdateStatus(ctx, admin.ID, order.ID, usecase.AdminUpdateOrderStatusInput{Status: "delivered"})
	require.NoError(t, err)

	out, err := env.orders.UpdateStatusByUser(ctx, u.ID, order.ID, "success")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusSuccess, out.Status)
	assert.True(t, out.IsPaid)
	assert.True(t, out.IsDelivered)
	assert.Equal(t, model.PaymentStatusPaid, out.PaymentStatus)
}

func TestAdminOrderUsecase_FullLifecycleAndAudit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedUser(t, model.RoleAdmin)
	u := env.seedUser(t, model.RoleUser)
	env.fillCart(t, u.ID)
	order := env.placeOrder(t, u.ID)

	for _, st := range []string{"approved", "prepare", "delivered", "success"} {
		out, err := env.adminOrder.UpdateStatus(ctx, admin.ID, order.ID, usecase.AdminUpdateOrderStatusInput{Status: st})
		require.NoError(t, err, st)
		assert.Equal(t, model.OrderStatus(st), out.Status)
	}

	got := env.reloadOrder(t, order.ID)
	assert.Equal(t, model.OrderStatusSuccess, got.Status)
	assert.True(t, got.IsPaid)
	require.NotNil(t, got.PaidAt)
	require.NotNil(t, got.DeliveredAt)

	// 終端からは戻せない
	_, err := env.adminOrder.UpdateStatus(ctx, admin.ID, order.ID, usecase.AdminUpdateOrderStatusInput{Status: "pending"})
	assertStatus(t, err, http.StatusConflict)

	var logs []model.AuditLog
	require.NoError(t, env.db.Where("action = ?", model.AuditActionUpdateOrderStatus).Find(&logs).Error)
	assert.Len(t, logs, 4)
	assert.Equal(t, admin.ID, logs[0].ActorUserID)
	assert.Contains(t, logs[0].BeforeJSON, `"status":"pending"`)
	assert.Contains(t, logs[0].AfterJSON, `"status":"approved"`)
}

// 同じversionを読んだ2人の管理者: 先に書いた方だけ通る
func TestAdminOrderUsecase_StaleVersionConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	adminA := env.seedUser(t, model.RoleAdmin)
	adminB := env.seedUser(t, model.RoleAdmin)
	u := env.seedUser(t, model.RoleUser)
	env.fillCart(t, u.ID)
	order := env.placeOrder(t, u.ID)

	seenByA, err := env.adminOrder.Get(ctx, order.ID)
	require.NoError(t, err)
	seenByB, err := env.adminOrder.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, seenByA.Version, seenByB.Version)

	_, err = env.adminOrder.UpdateStatus(ctx, adminB.ID, order.ID, usecase.AdminUpdateOrderStatusInput{
		Status:  "cancelled",
		Version: int64Ptr(seenByB.Version),
	})
	require.NoError(t, err)

	_, err = env.adminOrder.UpdateStatus(ctx, adminA.ID, order.ID, usecase.AdminUpdateOrderStatusInput{
		Status:  "approved",
		Version: int64Ptr(seenByA.Version),
	})
	assertStatus(t, err, http.StatusConflict)

	got := env.reloadOrder(t, order.ID)
	assert.Equal(t, model.OrderStatusCancelled, got.Status)
	assert.Equal(t, seenByA.Version+1, got.Version)
}

func TestAdminOrderUsecase_ListFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedUser(t, model.RoleAdmin)
	u := env.seedUser(t, model.RoleUser)

	env.fillCart(t, u.ID)
	first := env.placeOrder(t, u.ID)
	env.fillCart(t, u.ID)
	env.placeOrder(t, u.ID)

	_, err := env.adminOrder.UpdateStatus(ctx, admin.ID, first.ID, usecase.AdminUpdateOrderStatusInput{Status: "approved"})
	require.NoError(t, err)

	out, err := env.adminOrder.List(ctx, adminFilter("approved"))
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, first.ID, out.Items[0].ID)
	assert.Len(t, out.Items[0].Items, 2)

	all, err := env.adminOrder.ListForExport(ctx, adminFilter(""))
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func adminFilter(status string) repo.AdminOrderListFilter {
	return repo.AdminOrderListFilter{Page: 1, Limit: 20, Status: status}
}
