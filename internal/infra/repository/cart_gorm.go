package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

func (r *CartGormRepository) CreateForUser(ctx context.Context, userID int64) (model.Cart, error) {
	now := time.Now()
	cart := model.Cart{UserID: userID, CreatedAt: now, UpdatedAt: now}
	if err := r.db.WithContext(ctx).Create(&cart).Error; err != nil {
		return model.Cart{}, translate(err)
	}
	return cart, nil
}

// ユーザーのカートを行ロック付きで取得し、無ければ作成
func (r *CartGormRepository) GetOrCreateForUpdate(ctx context.Context, userID int64) (model.Cart, error) {
	var cart model.Cart

	findErr := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&cart).Error

	if findErr == nil {
		return cart, nil
	}
	if !isNotFound(findErr) {
		return model.Cart{}, findErr
	}

	// 無ければ作る
	created, err := r.CreateForUser(ctx, userID)
	if err != nil {
		return model.Cart{}, err
	}
	return created, nil
}

func (r *CartGormRepository) FindByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return model.Cart{}, translate(err)
	}
	return cart, nil
}

func (r *CartGormRepository) UpdateTotal(ctx context.Context, cartID int64, total int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]any{"total_amount": total, "updated_at": time.Now()})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 指定カートの明細を全削除
func (r *CartGormRepository) Clear(ctx context.Context, cartID int64) error {
	if err := r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
		return err
	}
	return r.UpdateTotal(ctx, cartID, 0)
}

func (r *CartGormRepository) DeleteByUserID(ctx context.Context, userID int64) error {
	var cart model.Cart
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Where("cart_id = ?", cart.ID).Delete(&model.CartItem{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&model.Cart{}, cart.ID).Error
}
