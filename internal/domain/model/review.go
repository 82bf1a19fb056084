package model

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

// (order, product)ごとに1件
type Review struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	OrderID   int64     `gorm:"not null;uniqueIndex:idx_reviews_order_product" json:"order_id"`
	ProductID int64     `gorm:"not null;index;uniqueIndex:idx_reviews_order_product" json:"product_id"`
	Rating    int       `gorm:"not null;index" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`
	Images    []string  `gorm:"type:text;serializer:json" json:"images"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}
