package model

import (
	"time"

	"gorm.io/gorm"
)

// 価格は最小通貨単位の整数
type Product struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Category      string         `gorm:"type:varchar(100);not null;index" json:"category"`
	Name          string         `gorm:"type:varchar(255);not null" json:"name"`
	Color         string         `gorm:"type:varchar(100);not null" json:"color"`
	Sizes         []string       `gorm:"type:text;serializer:json" json:"size"`
	Description   string         `gorm:"type:text;not null" json:"description"`
	Price         int64          `gorm:"not null" json:"price"`
	Image         string         `gorm:"type:text" json:"image"`
	AverageRating float64        `gorm:"not null;default:0" json:"average_rating"`
	ReviewCount   int64          `gorm:"not null;default:0" json:"review_count"`
	CreatedAt     time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// 指定サイズが商品に存在するか
func (p Product) HasSize(size string) bool {
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}

// 未指定なら先頭サイズ
func (p Product) DefaultSize() string {
	if len(p.Sizes) == 0 {
		return ""
	}
	return p.Sizes[0]
}
