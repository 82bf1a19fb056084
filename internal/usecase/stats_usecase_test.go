package usecase_test

import (
	"context"
	"testing"

	"storefront/internal/domain/model"
	infraRepo "storefront/internal/infra/repository"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsUsecase_AfterLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	stats := usecase.NewStatsUsecase(infraRepo.NewStatsGormRepository(env.db), env.tx)

	admin := env.seedUser(t, model.RoleAdmin)
	u := env.seedUser(t, model.RoleUser)
	shirt := env.seedProduct(t, "shirt", 100)

	orderID := env.completedOrder(t, admin.ID, u.ID, shirt).ID
	_, err := env.reviews.Submit(ctx, u.ID, usecase.SubmitReviewInput{OrderID: orderID, Rating: 5})
	require.NoError(t, err)

	dash, err := stats.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), dash.TotalProducts)
	assert.Equal(t, int64(2), dash.TotalUsers)

	orders, err := stats.OrderStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), orders.TotalOrders)
	assert.Equal(t, int64(100), orders.Revenue)

	reviews, err := stats.ReviewStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reviews.TotalReviews)
	assert.Equal(t, int64(1), reviews.RatingDistribution["5"])
	assert.Equal(t, int64(0), reviews.RatingDistribution["1"])

	action := model.AuditActionUpdateOrderStatus
	logs, err := stats.AuditLogs(ctx, repo.AuditLogFilter{Action: &action, Limit: 50})
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	for _, l := range logs {
		assert.Equal(t, admin.ID, l.ActorUserID)
		assert.Equal(t, orderID, l.ResourceID)
	}

	none := int64(9999)
	logs, err = stats.AuditLogs(ctx, repo.AuditLogFilter{ActorUserID: &none, Limit: 50})
	require.NoError(t, err)
	assert.NotNil(t, logs)
	assert.Empty(t, logs)
}
