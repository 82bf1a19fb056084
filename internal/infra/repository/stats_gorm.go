package repository

import (
	"context"
	"strconv"

	"storefront/internal/domain/model"

	"gorm.io/gorm"
)

type StatsGormRepository struct {
	db *gorm.DB
}

func NewStatsGormRepository(db *gorm.DB) *StatsGormRepository {
	return &StatsGormRepository{db: db}
}

func (r *StatsGormRepository) Dashboard(ctx context.Context) (model.DashboardStats, error) {
	db := r.db.WithContext(ctx)
	out := model.DashboardStats{
		ProductsByCategory: []model.CategoryCount{},
		LatestProducts:     []model.Product{},
		LatestUsers:        []model.User{},
	}

	if err := db.Model(&model.Product{}).Count(&out.TotalProducts).Error; err != nil {
		return model.DashboardStats{}, err
	}
	if err := db.Model(&model.User{}).Count(&out.TotalUsers).Error; err != nil {
		return model.DashboardStats{}, err
	}

	//カテゴリ別件数
	if err := db.Model(&model.Product{}).
		Select("category, COUNT(*) AS count").
		Group("category").
		Order("category asc").
		Scan(&out.ProductsByCategory).Error; err != nil {
		return model.DashboardStats{}, err
	}

	if err := db.Order("created_at desc").Order("id desc").Limit(model.LatestLimit).Find(&out.LatestProducts).Error; err != nil {
		return model.DashboardStats{}, err
	}
	if err := db.Order("created_at desc").Order("id desc").Limit(model.LatestLimit).Find(&out.LatestUsers).Error; err != nil {
		return model.DashboardStats{}, err
	}

	return out, nil
}

func (r *StatsGormRepository) Orders(ctx context.Context) (model.OrderStats, error) {
	db := r.db.WithContext(ctx)
	out := model.OrderStats{
		OrdersByStatus:        []model.StatusCount{},
		OrdersByPaymentMethod: []model.PaymentMethodCount{},
		LatestOrders:          []model.Order{},
	}

	if err := db.Model(&model.Order{}).Count(&out.TotalOrders).Error; err != nil {
		return model.OrderStats{}, err
	}
	if err := db.Model(&model.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status asc").
		Scan(&out.OrdersByStatus).Error; err != nil {
		return model.OrderStats{}, err
	}
	if err := db.Model(&model.Order{}).
		Select("payment_method, COUNT(*) AS count").
		Group("payment_method").
		Order("payment_method asc").
		Scan(&out.OrdersByPaymentMethod).Error; err != nil {
		return model.OrderStats{}, err
	}

	//支払済みの合計
	if err := db.Model(&model.Order{}).
		Select("COALESCE(SUM(total_price), 0)").
		Where("is_paid = ?", true).
		Scan(&out.Revenue).Error; err != nil {
		return model.OrderStats{}, err
	}

	if err := db.Order("created_at desc").Order("id desc").Limit(model.LatestLimit).Find(&out.LatestOrders).Error; err != nil {
		return model.OrderStats{}, err
	}

	return out, nil
}

func (r *StatsGormRepository) Reviews(ctx context.Context) (model.ReviewStats, error) {
	db := r.db.WithContext(ctx)
	out := model.ReviewStats{
		RatingDistribution: make(map[string]int64, model.MaxRating),
		LatestReviews:      []model.Review{},
	}

	var summary struct {
		Avg   *float64
		Count int64
	}
	if err := db.Model(&model.Review{}).
		Select("AVG(rating) AS avg, COUNT(*) AS count").
		Scan(&summary).Error; err != nil {
		return model.ReviewStats{}, err
	}
	out.TotalReviews = summary.Count
	if summary.Avg != nil {
		out.AverageRating = *summary.Avg
	}

	//1〜5を0で埋めてから集計を入れる
	for i := model.MinRating; i <= model.MaxRating; i++ {
		out.RatingDistribution[strconv.Itoa(i)] = 0
	}
	var rows []struct {
		Rating int
		Count  int64
	}
	if err := db.Model(&model.Review{}).
		Select("rating, COUNT(*) AS count").
		Group("rating").
		Scan(&rows).Error; err != nil {
		return model.ReviewStats{}, err
	}
	for _, row := range rows {
		out.RatingDistribution[strconv.Itoa(row.Rating)] = row.Count
	}

	if err := db.Order("created_at desc").Order("id desc").Limit(model.LatestLimit).Find(&out.LatestReviews).Error; err != nil {
		return model.ReviewStats{}, err
	}

	return out, nil
}
