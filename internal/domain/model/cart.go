package model

import (
	"errors"
	"math"
	"time"
)

// 1明細あたりの数量上限
const MaxCartQuantity int64 = 999

// 金額がint64に収まらない
var ErrAmountOverflow = errors.New("amount overflow")

// 1ユーザーにつき1つ。会員登録時に作成する
// TotalAmountは明細から毎回再計算した値
type Cart struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"not null;uniqueIndex" json:"user_id"`
	TotalAmount int64     `gorm:"not null;default:0" json:"total_amount"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// price × quantity。負の値とオーバーフローはエラー
func LineAmount(price, quantity int64) (int64, error) {
	if price < 0 || quantity < 0 {
		return 0, ErrAmountOverflow
	}
	if quantity != 0 && price > math.MaxInt64/quantity {
		return 0, ErrAmountOverflow
	}
	return price * quantity, nil
}

func addAmount(total, v int64) (int64, error) {
	if v > math.MaxInt64-total {
		return 0, ErrAmountOverflow
	}
	return total + v, nil
}

// Σ(price × quantity)
func CartTotal(items []CartItem) (int64, error) {
	var total int64
	for _, it := range items {
		line, err := LineAmount(it.Price, it.Quantity)
		if err != nil {
			return 0, err
		}
		if total, err = addAmount(total, line); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// 注文明細の合計。CartTotalと同じ計算
func OrderItemsTotal(items []OrderItem) (int64, error) {
	var total int64
	for _, it := range items {
		line, err := LineAmount(it.Price, it.Quantity)
		if err != nil {
			return 0, err
		}
		if total, err = addAmount(total, line); err != nil {
			return 0, err
		}
	}
	return total, nil
}
