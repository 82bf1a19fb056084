package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	FindByCartAndProduct(ctx context.Context, cartID, productID int64) (model.CartItem, error)
	Create(ctx context.Context, item *model.CartItem) error
	// 数量・単価・サイズを更新
	Update(ctx context.Context, item model.CartItem) error
	// 無ければfalse
	DeleteByCartAndProduct(ctx context.Context, cartID, productID int64) (bool, error)
}
