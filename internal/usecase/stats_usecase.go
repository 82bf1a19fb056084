package usecase

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// 管理画面の集計と監査ログ（読み取りのみ）
type StatsUsecase struct {
	stats repo.StatsRepository
	tx    repo.TransactionManager
}

func NewStatsUsecase(stats repo.StatsRepository, tx repo.TransactionManager) *StatsUsecase {
	return &StatsUsecase{stats: stats, tx: tx}
}

func (u *StatsUsecase) Dashboard(ctx context.Context) (model.DashboardStats, error) {
	out, err := u.stats.Dashboard(ctx)
	if err != nil {
		return model.DashboardStats{}, internalError(err)
	}
	return out, nil
}

func (u *StatsUsecase) OrderStats(ctx context.Context) (model.OrderStats, error) {
	out, err := u.stats.Orders(ctx)
	if err != nil {
		return model.OrderStats{}, internalError(err)
	}
	return out, nil
}

func (u *StatsUsecase) ReviewStats(ctx context.Context) (model.ReviewStats, error) {
	out, err := u.stats.Reviews(ctx)
	if err != nil {
		return model.ReviewStats{}, internalError(err)
	}
	return out, nil
}

func (u *StatsUsecase) AuditLogs(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	var out []model.AuditLog
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		logs, err := r.AuditLogs().List(ctx, f)
		if err != nil {
			return internalError(err)
		}
		out = logs
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.AuditLog{}
	}
	return out, nil
}
