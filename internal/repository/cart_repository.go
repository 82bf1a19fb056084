package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type CartRepository interface {
	CreateForUser(ctx context.Context, userID int64) (model.Cart, error)

	// 行ロック付きで取得し、無ければ作る（トランザクション内で使う）
	GetOrCreateForUpdate(ctx context.Context, userID int64) (model.Cart, error)

	FindByUserID(ctx context.Context, userID int64) (model.Cart, error)
	UpdateTotal(ctx context.Context, cartID int64, total int64) error

	// 明細を全削除し合計を0にする
	Clear(ctx context.Context, cartID int64) error

	DeleteByUserID(ctx context.Context, userID int64) error
}
