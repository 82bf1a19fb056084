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

// 商品をカートに入れて注文し、successまで進める
func (e *testEnv) completedOrder(t *testing.T, adminID, userID int64, products ...model.Product) usecase.OrderOutput {
	t.Helper()
	ctx := context.Background()
	for _, p := range products {
		_, err := e.cart.AddItem(ctx, userID, usecase.AddCartInput{ProductID: p.ID, Quantity: 1})
		require.NoError(t, err)
	}
	order := e.placeOrder(t, userID)
	_, err := e.adminOrder.UpdateStatus(ctx, adminID, order.ID, usecase.AdminUpdateOrderStatusInput{Status: "success"})
	require.NoError(t, err)
	return order
}

func TestReviewUsecase_Submit_RecomputesAverage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedUser(t, model.RoleAdmin)
	alice := env.seedUser(t, model.RoleUser)
	bob := env.seedUser(t, model.RoleUser)
	shirt := env.seedProduct(t, "shirt", 100)

	o1 := env.completedOrder(t, admin.ID, alice.ID, shirt)
	o2 := env.completedOrder(t, admin.ID, bob.ID, shirt)

	created, err := env.reviews.Submit(ctx, alice.ID, usecase.SubmitReviewInput{OrderID: o1.ID, Rating: 4, Comment: " nice "})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "nice", created[0].Comment)
	assert.NotNil(t, created[0].Images)

	_, err = env.reviews.Submit(ctx, bob.ID, usecase.SubmitReviewInput{OrderID: o2.ID, ProductIDs: []int64{shirt.ID}, Rating: 2})
	require.NoError(t, err)

	p := env.reloadProduct(t, shirt.ID)
	assert.InDelta(t, 3.0, p.AverageRating, 0.0001)
	assert.Equal(t, int64(2), p.ReviewCount)
	assert.True(t, env.reloadOrder(t, o1.ID).IsReviewed)
}

func TestReviewUsecase_Submit_EmptyProductIDsReviewsWholeOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedUser(t, model.RoleAdmin)
	u := env.seedUser(t, model.RoleUser)
	shirt := env.seedProduct(t, "shirt", 100)
	hat := env.seedProduct(t, "hat", 50)
	order := env.completedOrder(t, admin.ID, u.ID, shirt, hat)

	created, err := env.reviews.Submit(ctx, u.ID, usecase.SubmitReviewInput{OrderID: order.ID, Rating: 5})
	require.NoError(t, err)
	assert.Len(t, created, 2)
	assert.Equal(t, int64(1), env.reloadProduct(t, hat.ID).ReviewCount)
}

func TestReviewUsecase_Submit_Rejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedUser(t, model.RoleAdmin)
	u := env.seedUser(t, model.RoleUser)
	stranger := env.seedUser(t, model.RoleUser)
	shirt := env.seedProduct(t, "shirt", 100)
	other := env.seedProduct(t, "other", 10)

	// 未完了の注文
	_, err := env.cart.AddItem(ctx, u.ID, usecase.AddCartInput{ProductID: shirt.ID, Quantity: 1})
	require.NoError(t, err)
	pending := env.placeOrder(t, u.ID)
	_, err = env.reviews.Submit(ctx, u.ID, usecase.SubmitReviewInput{OrderID: pending.ID, Rating: 4})
	assertStatus(t, err, http.StatusConflict)

	done := env.completedOrder(t, admin.ID, u.ID, shirt)

	tests := []struct {
		name   string
		userID int64
		in     usecase.SubmitReviewInput
		want   int
	}{
		{"rating too low", u.ID, usecase.SubmitReviewInput{OrderID: done.ID, Rating: 0}, http.StatusBadRequest},
		{"rating too high", u.ID, usecase.SubmitReviewInput{OrderID: done.ID, Rating: 6}, http.StatusBadRequest},
		{"missing order", u.ID, usecase.SubmitReviewInput{Rating: 3}, http.StatusBadRequest},
		{"too many images", u.ID, usecase.SubmitReviewInput{OrderID: done.ID, Rating: 3, Images: []string{"a", "b", "c", "d", "e", "f"}}, http.StatusBadRequest},
		{"product not in order", u.ID, usecase.SubmitReviewInput{OrderID: done.ID, ProductIDs: []int64{other.ID}, Rating: 3}, http.StatusBadRequest},
		{"someone else's order", stranger.ID, usecase.SubmitReviewInput{OrderID: done.ID, Rating: 3}, http.StatusNotFound},
		{"unknown order", u.ID, usecase.SubmitReviewInput{OrderID: 9999, Rating: 3}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.reviews.Submit(ctx, tt.userID, tt.in)
			assertStatus(t, err, tt.want)
		})
	}

	_, err = env.reviews.Submit(ctx, u.ID, usecase.SubmitReviewInput{OrderID: done.ID, Rating: 3})
	require.NoError(t, err)
	_, err = env.reviews.Submit(ctx, u.ID, usecase.SubmitReviewInput{OrderID: done.ID, Rating: 3})
	assertStatus(t, err, http.StatusConflict)
}

func TestReviewUsecase_UpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedUser(t, model.RoleAdmin)
	alice := env.seedUser(t, model.RoleUser)
	bob := env.seedUser(t, model.RoleUser)
	shirt := env.seedProduct(t, "shirt", 100)

	o1 := env.completedOrder(t, admin.ID, alice.ID, shirt)
	o2 := env.completedOrder(t, admin.ID, bob.ID, shirt)
	aliceReviews, err := env.reviews.Submit(ctx, alice.ID, usecase.SubmitReviewInput{OrderID: o1.ID, Rating: 4})
	require.NoError(t, err)
	bobReviews, err := env.reviews.Submit(ctx, bob.ID, usecase.SubmitReviewInput{OrderID: o2.ID, Rating: 2})
	require.NoError(t, err)

	rating := 5
	_, err = env.reviews.Update(ctx, bob.ID, aliceReviews[0].ID, usecase.UpdateReviewInput{Rating: &rating})
	assertStatus(t, err, http.StatusForbidden)

	comment := "changed my mind"
	updated, err := env.reviews.Update(ctx, alice.ID, aliceReviews[0].ID, usecase.UpdateReviewInput{Rating: &rating, Comment: &comment})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)
	assert.InDelta(t, 3.5, env.reloadProduct(t, shirt.ID).AverageRating, 0.0001)

	// 他人のレビューは消せない
	err = env.reviews.Delete(ctx, alice.ID, false, bobReviews[0].ID)
	assertStatus(t, err, http.StatusForbidden)

	require.NoError(t, env.reviews.Delete(ctx, bob.ID, false, bobReviews[0].ID))
	p := env.reloadProduct(t, shirt.ID)
	assert.InDelta(t, 5.0, p.AverageRating, 0.0001)
	assert.Equal(t, int64(1), p.ReviewCount)
	assert.False(t, env.reloadOrder(t, o2.ID).IsReviewed)

	// 管理者の削除は監査ログに残る
	require.NoError(t, env.reviews.Delete(ctx, admin.ID, true, aliceReviews[0].ID))
	p = env.reloadProduct(t, shirt.ID)
	assert.Equal(t, 0.0, p.AverageRating)
	assert.Equal(t, int64(0), p.ReviewCount)

	var logs []model.AuditLog
	require.NoError(t, env.db.Where("action = ?", model.AuditActionDeleteReview).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, admin.ID, logs[0].ActorUserID)

	err = env.reviews.Delete(ctx, admin.ID, true, aliceReviews[0].ID)
	assertStatus(t, err, http.StatusNotFound)
}

func TestReviewUsecase_ListFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedUser(t, model.RoleAdmin)
	alice := env.seedUser(t, model.RoleUser)
	bob := env.seedUser(t, model.RoleUser)
	shirt := env.seedProduct(t, "shirt", 100)
	hat := env.seedProduct(t, "hat", 50)

	o1 := env.completedOrder(t, admin.ID, alice.ID, shirt, hat)
	o2 := env.completedOrder(t, admin.ID, bob.ID, shirt)
	_, err := env.reviews.Submit(ctx, alice.ID, usecase.SubmitReviewInput{OrderID: o1.ID, Rating: 4})
	require.NoError(t, err)
	_, err = env.reviews.Submit(ctx, bob.ID, usecase.SubmitReviewInput{OrderID: o2.ID, Rating: 1})
	require.NoError(t, err)

	mine, err := env.reviews.ListMine(ctx, alice.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), mine.Total)
	assert.Equal(t, 1, mine.Page)
	assert.Equal(t, 50, mine.Limit)

	byProduct, err := env.reviews.List(ctx, repo.ReviewFilter{ProductID: &shirt.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), byProduct.Total)

	low := 1
	byRating, err := env.reviews.List(ctx, repo.ReviewFilter{Rating: &low})
	require.NoError(t, err)
	require.Len(t, byRating.Items, 1)
	assert.Equal(t, bob.ID, byRating.Items[0].UserID)

	bad := 9
	_, err = env.reviews.List(ctx, repo.ReviewFilter{Rating: &bad})
	assertStatus(t, err, http.StatusBadRequest)
}
