package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 管理画面の集計（読み取りのみ）
type StatsRepository interface {
	Dashboard(ctx context.Context) (model.DashboardStats, error)
	Orders(ctx context.Context) (model.OrderStats, error)
	Reviews(ctx context.Context) (model.ReviewStats, error)
}
