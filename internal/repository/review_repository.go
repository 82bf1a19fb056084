package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type ReviewFilter struct {
	ProductID *int64
	UserID    *int64
	OrderID   *int64
	Rating    *int
	Page      int
	Limit     int
}

type ReviewRepository interface {
	// 同じ(order, product)が既にあればErrDuplicate
	Create(ctx context.Context, review *model.Review) error
	FindByID(ctx context.Context, id int64) (model.Review, error)
	ExistsForOrderProduct(ctx context.Context, orderID, productID int64) (bool, error)
	Update(ctx context.Context, review model.Review) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f ReviewFilter) ([]model.Review, int64, error)
	CountByOrderID(ctx context.Context, orderID int64) (int64, error)

	// 商品のレビュー平均と件数（集計クエリ）
	RatingSummary(ctx context.Context, productID int64) (float64, int64, error)
}
